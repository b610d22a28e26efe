package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wutienyang/ChatGPT-Line-Bot/internal/ai"
	"github.com/wutienyang/ChatGPT-Line-Bot/internal/command"
	"github.com/wutienyang/ChatGPT-Line-Bot/internal/config"
	"github.com/wutienyang/ChatGPT-Line-Bot/internal/handlers"
	"github.com/wutienyang/ChatGPT-Line-Bot/internal/line"
	"github.com/wutienyang/ChatGPT-Line-Bot/internal/logger"
	"github.com/wutienyang/ChatGPT-Line-Bot/internal/memory"
	"github.com/wutienyang/ChatGPT-Line-Bot/internal/prompt"
	"github.com/wutienyang/ChatGPT-Line-Bot/internal/relay"
	"github.com/wutienyang/ChatGPT-Line-Bot/internal/server"
	"github.com/wutienyang/ChatGPT-Line-Bot/internal/telegram"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the LINE webhook and run the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

type app struct {
	handler  *relay.Handler
	memory   *memory.Memory
	server   *server.Server
	telegram *telegram.Bot
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load(configName)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a, err := buildApp(cfg, log, func(h *relay.Handler, mem *memory.Memory) (*telegram.Bot, error) {
		return telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.OperatorChatID, h, mem, log)
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      a.server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if a.telegram != nil {
		g.Go(func() error { return a.telegram.Run(ctx) })
	}

	err = g.Wait()
	log.Info("relay stopped")
	return err
}

type botFactory func(h *relay.Handler, mem *memory.Memory) (*telegram.Bot, error)

// buildApp wires the core components and the enabled channels. newBot is only
// called when Telegram is configured.
func buildApp(cfg config.Config, log *zap.Logger, newBot botFactory) (*app, error) {
	presets := prompt.Defaults()
	if cfg.Prompts.File != "" {
		var err error
		presets, err = prompt.LoadFile(cfg.Prompts.File, presets)
		if err != nil {
			return nil, err
		}
	}
	catalog, err := prompt.NewCatalog(presets, cfg.Chat.DefaultPrompt)
	if err != nil {
		return nil, err
	}

	gateway, err := ai.NewOpenAIGateway(ai.OpenAIConfig{
		APIKey:       cfg.OpenAI.APIKey,
		BaseURL:      cfg.OpenAI.BaseURL,
		Model:        cfg.OpenAI.Model,
		ImageSize:    cfg.OpenAI.ImageSize,
		WhisperModel: cfg.OpenAI.WhisperModel,
	})
	if err != nil {
		return nil, err
	}

	mem := memory.New(cfg.Chat.SystemMessage, cfg.Chat.MaxHistory)
	var prompts ai.PromptSource
	if cfg.Chat.ApplyActivePrompt {
		prompts = catalog
	}

	h := relay.NewHandler(relay.Deps{
		Router:        command.NewRouter(catalog, cfg.Chat.StrictImagine),
		Catalog:       catalog,
		Chat:          ai.NewChat(gateway, mem, prompts),
		Image:         ai.NewImage(gateway),
		Transcription: ai.NewTranscription(gateway),
		Translator:    ai.NewTranslator(gateway),
		Logger:        log,
		FallbackReply: cfg.Chat.FallbackReply,
		TempDir:       cfg.Server.TempDir,
	})

	opts := server.Options{
		Stock:  handlers.NewStockScraper(cfg.Stock.URL, cfg.Stock.MaxRetries),
		Logger: log,
	}
	if cfg.Line.Enabled() {
		messenger, err := line.NewMessenger(cfg.Line.ChannelToken, cfg.Line.OperatorID)
		if err != nil {
			return nil, err
		}
		opts.Callback = line.NewWebhook(cfg.Line.ChannelSecret, messenger, h, log)
		opts.Notifier = messenger
	}

	a := &app{handler: h, memory: mem}
	if cfg.Telegram.Enabled() && newBot != nil {
		a.telegram, err = newBot(h, mem)
		if err != nil {
			return nil, err
		}
		if opts.Notifier == nil {
			opts.Notifier = a.telegram.Messenger()
		}
	}

	a.server = server.New(opts)
	return a, nil
}
