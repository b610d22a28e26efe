package line

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

type messagingClient interface {
	ReplyMessage(req *messaging_api.ReplyMessageRequest) (*messaging_api.ReplyMessageResponse, error)
	PushMessage(req *messaging_api.PushMessageRequest, xLineRetryKey string) (*messaging_api.PushMessageResponse, error)
}

type blobClient interface {
	GetMessageContent(messageID string) (*http.Response, error)
}

// Messenger replies to LINE events and pushes notifications to the operator.
type Messenger struct {
	api        messagingClient
	blob       blobClient
	operatorID string
}

func NewMessenger(channelToken, operatorID string) (*Messenger, error) {
	api, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create LINE messaging client: %w", err)
	}
	blob, err := messaging_api.NewMessagingApiBlobAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create LINE blob client: %w", err)
	}
	return &Messenger{api: api, blob: blob, operatorID: operatorID}, nil
}

func (m *Messenger) Reply(_ context.Context, replyToken, text string) error {
	_, err := m.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   []messaging_api.MessageInterface{messaging_api.TextMessage{Text: text}},
	})
	if err != nil {
		return fmt.Errorf("failed to reply text: %w", err)
	}
	return nil
}

func (m *Messenger) ReplyImage(_ context.Context, replyToken, url string) error {
	_, err := m.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{messaging_api.ImageMessage{
			OriginalContentUrl: url,
			PreviewImageUrl:    url,
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to reply image: %w", err)
	}
	return nil
}

// Push sends text to the operator. Each push carries a fresh retry key so LINE
// drops duplicates if the request is re-sent.
func (m *Messenger) Push(_ context.Context, text string) error {
	if m.operatorID == "" {
		return fmt.Errorf("LINE operator id not set")
	}
	_, err := m.api.PushMessage(&messaging_api.PushMessageRequest{
		To:       m.operatorID,
		Messages: []messaging_api.MessageInterface{messaging_api.TextMessage{Text: text}},
	}, uuid.NewString())
	if err != nil {
		return fmt.Errorf("failed to push message: %w", err)
	}
	return nil
}

// Content opens the binary content of a user message. The caller closes it.
func (m *Messenger) Content(messageID string) (io.ReadCloser, error) {
	resp, err := m.blob.GetMessageContent(messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get message content: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("message content error (status %d)", resp.StatusCode)
	}
	return resp.Body, nil
}
