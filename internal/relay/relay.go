package relay

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/wutienyang/ChatGPT-Line-Bot/internal/ai"
	"github.com/wutienyang/ChatGPT-Line-Bot/internal/command"
	"github.com/wutienyang/ChatGPT-Line-Bot/internal/handlers"
	"github.com/wutienyang/ChatGPT-Line-Bot/internal/models"
	"github.com/wutienyang/ChatGPT-Line-Bot/internal/prompt"
)

const DefaultFallbackReply = "Sorry, I'm having trouble processing your request. Please try again later."

// Messenger is the outbound side of a chat channel.
type Messenger interface {
	Reply(ctx context.Context, replyToken, text string) error
	ReplyImage(ctx context.Context, replyToken, url string) error
	// Push sends a one-way message to the operator.
	Push(ctx context.Context, text string) error
}

type Deps struct {
	Router        *command.Router
	Catalog       *prompt.Catalog
	Chat          *ai.Chat
	Image         *ai.Image
	Transcription *ai.Transcription
	Translator    *ai.Translator
	Logger        *zap.Logger

	FallbackReply string
	// TempDir holds voice recordings while they are transcribed.
	TempDir string
}

// Handler turns decoded channel events into replies. It never lets a failed
// request escape: every error is logged and answered with the fallback reply.
type Handler struct {
	Deps
}

func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.FallbackReply == "" {
		d.FallbackReply = DefaultFallbackReply
	}
	return &Handler{Deps: d}
}

func (h *Handler) HandleText(ctx context.Context, m Messenger, ev models.TextEvent) {
	log := h.Logger.With(zap.String("user_id", ev.UserID))
	defer h.recoverTo(ctx, m, ev.ReplyToken, log)

	cmd := h.Router.Route(ev.UserID, ev.Text)
	log = log.With(zap.Stringer("command", cmd.Kind))
	log.Info("text message received", zap.Int("length", len(ev.Text)))

	if cmd.Notifies() {
		h.push(ctx, m, "prompt : "+h.Catalog.Active(), log)
	}

	switch cmd.Kind {
	case command.ShowAll:
		h.reply(ctx, m, ev.ReplyToken, h.Catalog.Dump(), log)

	case command.GenerateImage:
		url, err := h.Image.Generate(ctx, cmd.Text)
		if err != nil {
			h.fail(ctx, m, ev.ReplyToken, log, err)
			return
		}
		if err := m.ReplyImage(ctx, ev.ReplyToken, url); err != nil {
			log.Error("failed to reply image", zap.Error(err))
		}

	case command.Chat:
		start := time.Now()
		response, err := h.Chat.GetResponse(ctx, ev.UserID, cmd.Text)
		if err != nil {
			h.fail(ctx, m, ev.ReplyToken, log, err)
			return
		}
		log.Info("AI responded", zap.Duration("duration", time.Since(start)))
		h.reply(ctx, m, ev.ReplyToken, response, log)
	}
}

// HandleAudio transcribes a voice message, translates it with the active prompt,
// shows the transcript to the operator and replies with the translation.
func (h *Handler) HandleAudio(ctx context.Context, m Messenger, ev models.AudioEvent, content io.Reader) {
	log := h.Logger.With(zap.String("user_id", ev.UserID), zap.String("message_id", ev.MessageID))
	defer h.recoverTo(ctx, m, ev.ReplyToken, log)
	log.Info("audio message received")

	audio, err := handlers.SaveTempAudio(h.TempDir, ev.FileName, content)
	if err != nil {
		h.fail(ctx, m, ev.ReplyToken, log, err)
		return
	}
	defer func() {
		if err := audio.Close(); err != nil {
			log.Warn("failed to release temp audio", zap.Error(err))
		}
	}()

	transcript, err := h.Transcription.Generate(ctx, audio, audio.Name())
	if err != nil {
		h.fail(ctx, m, ev.ReplyToken, log, err)
		return
	}

	translation, err := h.Translator.Translate(ctx, transcript, h.Catalog.Active())
	if err != nil {
		h.fail(ctx, m, ev.ReplyToken, log, err)
		return
	}

	h.push(ctx, m, "voice : "+transcript, log)
	h.reply(ctx, m, ev.ReplyToken, translation, log)
}

func (h *Handler) reply(ctx context.Context, m Messenger, token, text string, log *zap.Logger) {
	if err := m.Reply(ctx, token, text); err != nil {
		log.Error("failed to reply", zap.Error(err))
	}
}

func (h *Handler) push(ctx context.Context, m Messenger, text string, log *zap.Logger) {
	if err := m.Push(ctx, text); err != nil {
		log.Warn("failed to push operator notification", zap.Error(err))
	}
}

func (h *Handler) fail(ctx context.Context, m Messenger, token string, log *zap.Logger, err error) {
	log.Error("request failed", zap.Error(err))
	h.reply(ctx, m, token, h.FallbackReply, log)
}

func (h *Handler) recoverTo(ctx context.Context, m Messenger, token string, log *zap.Logger) {
	if r := recover(); r != nil {
		h.fail(ctx, m, token, log, fmt.Errorf("panic: %v", r))
	}
}
