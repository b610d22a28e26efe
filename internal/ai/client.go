package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/wutienyang/ChatGPT-Line-Bot/internal/models"
)

// ErrGateway marks every failure that comes from the hosted model services.
var ErrGateway = errors.New("model gateway error")

// Gateway is the set of hosted capabilities the relay depends on.
type Gateway interface {
	ChatCompletion(ctx context.Context, messages []models.Message) (string, error)
	ImageGeneration(ctx context.Context, prompt string) (string, error)
	Transcribe(ctx context.Context, audio io.Reader, fileName string) (string, error)
}

type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	ImageSize    string
	WhisperModel string
}

// OpenAIGateway talks to the OpenAI API (or any compatible endpoint).
type OpenAIGateway struct {
	client       *openai.Client
	model        string
	imageSize    string
	whisperModel string
}

func NewOpenAIGateway(cfg OpenAIConfig) (*OpenAIGateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key not set")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	g := &OpenAIGateway{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        cfg.Model,
		imageSize:    cfg.ImageSize,
		whisperModel: cfg.WhisperModel,
	}
	if g.model == "" {
		g.model = openai.GPT3Dot5Turbo
	}
	if g.imageSize == "" {
		g.imageSize = openai.CreateImageSize512x512
	}
	if g.whisperModel == "" {
		g.whisperModel = openai.Whisper1
	}
	return g, nil
}

func (g *OpenAIGateway) ChatCompletion(ctx context.Context, messages []models.Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %w", ErrGateway, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: chat completion returned no choices", ErrGateway)
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGateway) ImageGeneration(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		N:              1,
		Size:           g.imageSize,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return "", fmt.Errorf("%w: image generation: %w", ErrGateway, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", fmt.Errorf("%w: image generation returned no url", ErrGateway)
	}
	return resp.Data[0].URL, nil
}

func (g *OpenAIGateway) Transcribe(ctx context.Context, audio io.Reader, fileName string) (string, error) {
	resp, err := g.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    g.whisperModel,
		Reader:   audio,
		FilePath: fileName,
	})
	if err != nil {
		return "", fmt.Errorf("%w: transcription: %w", ErrGateway, err)
	}
	return resp.Text, nil
}
