package controller

import (
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
)

func TestIsDialogMessage(t *testing.T) {
	tests := []struct {
		name   string
		update *models.Update
		want   bool
	}{
		{"callback only", &models.Update{CallbackQuery: &models.CallbackQuery{Data: "noop"}}, false},
		{"plain text", &models.Update{Message: &models.Message{Text: "05.03.2026"}}, true},
		{"command", &models.Update{Message: &models.Message{Text: "/cancel"}}, false},
		{"empty text", &models.Update{Message: &models.Message{}}, false},
		{"document with caption", &models.Update{Message: &models.Message{
			Document: &models.Document{FileID: "f1", FileName: "test.pdf"},
			Caption:  "методика",
		}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isDialogMessage(tt.update))
		})
	}
}
