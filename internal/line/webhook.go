package line

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"go.uber.org/zap"

	"github.com/wutienyang/ChatGPT-Line-Bot/internal/models"
	"github.com/wutienyang/ChatGPT-Line-Bot/internal/relay"
)

type relayHandler interface {
	HandleText(ctx context.Context, m relay.Messenger, ev models.TextEvent)
	HandleAudio(ctx context.Context, m relay.Messenger, ev models.AudioEvent, content io.Reader)
}

type contentMessenger interface {
	relay.Messenger
	Content(messageID string) (io.ReadCloser, error)
}

// Webhook verifies LINE callbacks and hands decoded events to the relay.
type Webhook struct {
	secret    string
	messenger contentMessenger
	relay     relayHandler
	logger    *zap.Logger
}

func NewWebhook(channelSecret string, messenger *Messenger, h *relay.Handler, logger *zap.Logger) *Webhook {
	return newWebhook(channelSecret, messenger, h, logger)
}

func newWebhook(secret string, m contentMessenger, h relayHandler, logger *zap.Logger) *Webhook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Webhook{secret: secret, messenger: m, relay: h, logger: logger}
}

func (wh *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cb, err := webhook.ParseRequest(wh.secret, r)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			wh.logger.Warn("invalid LINE signature, check the channel secret")
			http.Error(w, "invalid signature", http.StatusBadRequest)
			return
		}
		wh.logger.Error("failed to parse LINE callback", zap.Error(err))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	for _, event := range cb.Events {
		wh.dispatch(r.Context(), event)
	}

	_, _ = io.WriteString(w, "OK")
}

func (wh *Webhook) dispatch(ctx context.Context, event webhook.EventInterface) {
	e, ok := event.(webhook.MessageEvent)
	if !ok {
		return
	}
	userID := sourceUserID(e.Source)

	switch msg := e.Message.(type) {
	case webhook.TextMessageContent:
		wh.relay.HandleText(ctx, wh.messenger, models.TextEvent{
			UserID:     userID,
			ReplyToken: e.ReplyToken,
			Text:       msg.Text,
		})

	case webhook.AudioMessageContent:
		content, err := wh.messenger.Content(msg.Id)
		if err != nil {
			wh.logger.Error("failed to fetch audio", zap.String("user_id", userID), zap.Error(err))
			if err := wh.messenger.Reply(ctx, e.ReplyToken, relay.DefaultFallbackReply); err != nil {
				wh.logger.Error("failed to reply", zap.Error(err))
			}
			return
		}
		defer content.Close()

		wh.relay.HandleAudio(ctx, wh.messenger, models.AudioEvent{
			UserID:     userID,
			ReplyToken: e.ReplyToken,
			MessageID:  msg.Id,
			FileName:   msg.Id + ".m4a",
		}, content)
	}
}

func sourceUserID(src webhook.SourceInterface) string {
	switch s := src.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	}
	return ""
}
