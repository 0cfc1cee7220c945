package telegram

import (
	"testing"

	"crypto-telegram-bot/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationRoundTrip(t *testing.T) {
	for _, id := range []int64{42, -1001234567890, 0} {
		conversation := Conversation(id)
		back, err := ChatID(conversation)
		require.NoError(t, err)
		assert.Equal(t, id, back)
	}
	assert.Equal(t, types.ConversationID("-100"), Conversation(-100))
}

func TestChatIDInvalid(t *testing.T) {
	_, err := ChatID("general")
	assert.Error(t, err)
}
