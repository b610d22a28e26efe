package telegram

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Messenger maps relay replies onto Telegram chats. The reply token is the chat id.
type Messenger struct {
	api            sender
	operatorChatID int64
}

func NewMessenger(api sender, operatorChatID int64) *Messenger {
	return &Messenger{api: api, operatorChatID: operatorChatID}
}

func (m *Messenger) Reply(_ context.Context, replyToken, text string) error {
	chatID, err := chatIDFromToken(replyToken)
	if err != nil {
		return err
	}
	if _, err := m.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
	}
	return nil
}

func (m *Messenger) ReplyImage(_ context.Context, replyToken, url string) error {
	chatID, err := chatIDFromToken(replyToken)
	if err != nil {
		return err
	}
	if _, err := m.api.Send(tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(url))); err != nil {
		return fmt.Errorf("failed to send photo to chat %d: %w", chatID, err)
	}
	return nil
}

func (m *Messenger) Push(_ context.Context, text string) error {
	if m.operatorChatID == 0 {
		return fmt.Errorf("telegram operator chat id not set")
	}
	if _, err := m.api.Send(tgbotapi.NewMessage(m.operatorChatID, text)); err != nil {
		return fmt.Errorf("failed to push to operator: %w", err)
	}
	return nil
}

func chatIDFromToken(token string) (int64, error) {
	id, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram reply token %q: %w", token, err)
	}
	return id, nil
}

func replyToken(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
