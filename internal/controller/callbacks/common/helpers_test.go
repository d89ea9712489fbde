package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackArgs(t *testing.T) {
	assert.Equal(t, []string{"new", "2"}, CallbackArgs("req_list:new:2"))
	assert.Equal(t, []string{""}, CallbackArgs("chats:"))
	assert.Nil(t, CallbackArgs("my_chat"))
}

func TestParseIDs(t *testing.T) {
	id, err := ParseIDFromCallback("view_req:123")
	require.NoError(t, err)
	assert.Equal(t, int64(123), id)

	first, second, err := ParseIDsFromCallback("assign_to:12:5")
	require.NoError(t, err)
	assert.Equal(t, int64(12), first)
	assert.Equal(t, int64(5), second)

	for _, data := range []string{"view_req", "view_req:1:2", "view_req:abc", "view_req:"} {
		_, err := ParseIDFromCallback(data)
		assert.Error(t, err, data)
	}
	_, _, err = ParseIDsFromCallback("assign_to:12")
	assert.Error(t, err)
}

func TestIsMessageNotModifiedError(t *testing.T) {
	assert.True(t, IsMessageNotModifiedError(errors.New("bad request, Bad Request: message is not modified")))
	assert.False(t, IsMessageNotModifiedError(errors.New("chat not found")))
	assert.False(t, IsMessageNotModifiedError(nil))
}
