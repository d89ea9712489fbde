package handlers

import (
	"net/http"
	"time"

	"github.com/Freeeeeet/psychologist_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/psychologist_bot/internal/controller/state"
	"go.uber.org/zap"
)

// Handlers содержит все зависимости для обработки команд и текстовых сообщений
type Handlers struct {
	services     callbacktypes.Services
	stateManager *state.Manager
	httpClient   *http.Client // скачивание файлов из Telegram
	location     *time.Location
	logger       *zap.Logger
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	services callbacktypes.Services,
	stateManager *state.Manager,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		services:     services,
		stateManager: stateManager,
		httpClient:   &http.Client{Timeout: 2 * time.Minute},
		location:     time.Local,
		logger:       logger,
	}
}
