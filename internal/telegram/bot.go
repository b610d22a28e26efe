package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/wutienyang/ChatGPT-Line-Bot/internal/handlers"
	"github.com/wutienyang/ChatGPT-Line-Bot/internal/memory"
	"github.com/wutienyang/ChatGPT-Line-Bot/internal/models"
	"github.com/wutienyang/ChatGPT-Line-Bot/internal/relay"
)

type botAPI interface {
	sender
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type relayHandler interface {
	HandleText(ctx context.Context, m relay.Messenger, ev models.TextEvent)
	HandleAudio(ctx context.Context, m relay.Messenger, ev models.AudioEvent, content io.Reader)
}

const helpMsg = `Commands:
/help - Show this help message.
/clear - Clear conversation history (the AI forgets earlier messages).
/prompt - Show the active prompt.
/all - List the preset prompts.
/1, /2 ... - Switch to a preset prompt.
/set <text> - Use <text> as the prompt.
/imagine <text> - Generate an image.

Send a voice message to get it transcribed and translated.`

type Bot struct {
	api       botAPI
	relay     relayHandler
	memory    *memory.Memory
	messenger *Messenger
	client    *http.Client
	logger    *zap.Logger
}

func NewBot(token string, operatorChatID int64, h *relay.Handler, mem *memory.Memory, logger *zap.Logger) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token not set")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = false

	return newBot(api, operatorChatID, h, mem, logger), nil
}

func newBot(api botAPI, operatorChatID int64, h relayHandler, mem *memory.Memory, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		api:       api,
		relay:     h,
		memory:    mem,
		messenger: NewMessenger(api, operatorChatID),
		client:    http.DefaultClient,
		logger:    logger,
	}
}

// Run long-polls for updates until ctx is cancelled. Each update is handled on
// its own goroutine; Run returns once all of them have finished.
func (b *Bot) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	if api, ok := b.api.(*tgbotapi.BotAPI); ok {
		b.logger.Info("telegram bot started", zap.String("username", api.Self.UserName))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	message := update.Message
	if message == nil || message.From == nil {
		return
	}

	chatID := message.Chat.ID
	userID := fmt.Sprintf("telegram:%d", message.From.ID)
	token := replyToken(chatID)

	switch {
	case message.IsCommand() && message.Command() == "start":
		b.reply(ctx, token, fmt.Sprintf("Hello %s! Send me any message and I'll respond using AI.\n\n%s", message.From.FirstName, helpMsg))
	case message.IsCommand() && message.Command() == "help":
		b.reply(ctx, token, helpMsg)
	case message.IsCommand() && message.Command() == "clear":
		b.memory.Reset(userID)
		b.reply(ctx, token, "Conversation history cleared!")
	case message.Voice != nil:
		b.handleVoice(ctx, message, userID, token)
	case message.Text != "":
		b.relay.HandleText(ctx, b.messenger, models.TextEvent{
			UserID:     userID,
			ReplyToken: token,
			Text:       commandText(message),
		})
	default:
		b.reply(ctx, token, "I only support text and voice messages for now.")
	}
}

// commandText drops the "@botname" suffix group chats add to commands, so
// "/prompt@MyBot" routes like "/prompt".
func commandText(message *tgbotapi.Message) string {
	if !message.IsCommand() {
		return message.Text
	}
	withAt := message.CommandWithAt()
	if !strings.Contains(withAt, "@") {
		return message.Text
	}
	return "/" + message.Command() + strings.TrimPrefix(message.Text, "/"+withAt)
}

func (b *Bot) handleVoice(ctx context.Context, message *tgbotapi.Message, userID, token string) {
	log := b.logger.With(zap.String("user_id", userID))

	url, err := b.api.GetFileDirectURL(message.Voice.FileID)
	if err != nil {
		log.Error("failed to get voice file from telegram", zap.Error(err))
		b.reply(ctx, token, relay.DefaultFallbackReply)
		return
	}

	body, err := handlers.Download(ctx, b.client, url)
	if err != nil {
		log.Error("failed to download voice file", zap.Error(err))
		b.reply(ctx, token, relay.DefaultFallbackReply)
		return
	}
	defer body.Close()

	b.relay.HandleAudio(ctx, b.messenger, models.AudioEvent{
		UserID:     userID,
		ReplyToken: token,
		MessageID:  message.Voice.FileUniqueID,
		FileName:   "voice.ogg",
	}, body)
}

func (b *Bot) reply(ctx context.Context, token, text string) {
	if err := b.messenger.Reply(ctx, token, text); err != nil {
		b.logger.Error("failed to send message", zap.Error(err))
	}
}

// Messenger exposes the bot's outbound side, e.g. for operator notifications.
func (b *Bot) Messenger() *Messenger { return b.messenger }
