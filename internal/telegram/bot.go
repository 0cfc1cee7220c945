package telegram

import (
	"strconv"

	"crypto-telegram-bot/internal/types"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// NewBot creates new telegram bot
func NewBot(c BotConfig) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	bot.Debug = c.Debug
	log.Infof("Authorized on account %s", bot.Self.UserName)

	return &Bot{
		Bot:    bot,
		Config: c,
	}, nil
}

// GetUpdatesChannel gets new updates updates
func (b *Bot) GetUpdatesChannel() (tgbotapi.UpdatesChannel, error) {
	updatesConfig := tgbotapi.NewUpdate(0)
	if b.Config.UpdatesTimeout > 0 {
		updatesConfig.Timeout = b.Config.UpdatesTimeout
	}
	return b.Bot.GetUpdatesChan(updatesConfig), nil
}

// StopReceivingUpdates ends long polling; the updates channel is closed afterwards.
func (b *Bot) StopReceivingUpdates() {
	b.Bot.StopReceivingUpdates()
}

// SendMessage sends a plain text telegram message
func (b *Bot) SendMessage(m Message) error {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.DisableWebPagePreview = true
	_, err := b.Bot.Send(msg)
	return errors.Wrapf(err, "could not send message to chat %d", m.ChatID)
}

// SendText sends text to a conversation.
func (b *Bot) SendText(conversation types.ConversationID, text string) error {
	chatID, err := ChatID(conversation)
	if err != nil {
		return err
	}
	return b.SendMessage(Message{ChatID: chatID, Text: text})
}

// SendPhoto uploads a PNG to a conversation.
func (b *Bot) SendPhoto(conversation types.ConversationID, name string, data []byte, caption string) error {
	chatID, err := ChatID(conversation)
	if err != nil {
		return err
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
		Name:  name,
		Bytes: data,
	})
	photo.Caption = caption
	_, err = b.Bot.Send(photo)
	return errors.Wrapf(err, "could not send photo %s to chat %d", name, chatID)
}

// Conversation converts a telegram chat id to a conversation id.
func Conversation(chatID int64) types.ConversationID {
	return types.ConversationID(strconv.FormatInt(chatID, 10))
}

// ChatID converts a conversation id back to a telegram chat id.
func ChatID(conversation types.ConversationID) (int64, error) {
	chatID, err := strconv.ParseInt(string(conversation), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid telegram conversation %q", conversation)
	}
	return chatID, nil
}
