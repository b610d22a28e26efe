package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wutienyang/ChatGPT-Line-Bot/internal/memory"
	"github.com/wutienyang/ChatGPT-Line-Bot/internal/models"
)

// ErrEmptyPrompt is returned when an image or translation request carries no text.
var ErrEmptyPrompt = errors.New("prompt cannot be empty")

// PromptSource provides the prompt that is currently active for all users.
type PromptSource interface {
	Active() string
}

// Chat runs one conversational turn against the gateway.
type Chat struct {
	gateway Gateway
	memory  *memory.Memory
	prompts PromptSource
}

// NewChat returns a Chat. When prompts is non-nil the active prompt is sent as a
// second system message on every request; it is never stored in memory.
func NewChat(gateway Gateway, mem *memory.Memory, prompts PromptSource) *Chat {
	return &Chat{gateway: gateway, memory: mem, prompts: prompts}
}

// GetResponse appends text to the user's history, asks the model and records its
// reply. Gateway errors are returned as they are; nothing is retried.
func (c *Chat) GetResponse(ctx context.Context, userID, text string) (string, error) {
	unlock := c.memory.Lock(userID)
	defer unlock()

	c.memory.AppendUser(userID, text)
	messages := c.memory.BuildRequest(userID)
	if c.prompts != nil {
		messages = withActivePrompt(messages, c.prompts.Active())
	}

	reply, err := c.gateway.ChatCompletion(ctx, messages)
	if err != nil {
		return "", err
	}

	c.memory.AppendAssistant(userID, reply)
	return reply, nil
}

func withActivePrompt(messages []models.Message, active string) []models.Message {
	if strings.TrimSpace(active) == "" || len(messages) == 0 {
		return messages
	}
	out := make([]models.Message, 0, len(messages)+1)
	out = append(out, messages[0], models.Message{Role: models.RoleSystem, Content: active})
	return append(out, messages[1:]...)
}

type Image struct {
	gateway Gateway
}

func NewImage(gateway Gateway) *Image {
	return &Image{gateway: gateway}
}

// Generate returns the URL of an image for prompt.
func (i *Image) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	return i.gateway.ImageGeneration(ctx, prompt)
}

// Transcription turns recorded audio into text. The caller owns the audio source
// and whatever file backs it.
type Transcription struct {
	gateway Gateway
}

func NewTranscription(gateway Gateway) *Transcription {
	return &Transcription{gateway: gateway}
}

func (t *Transcription) Generate(ctx context.Context, audio io.Reader, fileName string) (string, error) {
	text, err := t.gateway.Transcribe(ctx, audio, fileName)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Translator rewrites a single piece of text with an instruction, outside of
// any conversation history.
type Translator struct {
	gateway Gateway
}

func NewTranslator(gateway Gateway) *Translator {
	return &Translator{gateway: gateway}
}

func (t *Translator) Translate(ctx context.Context, text, instruction string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyPrompt
	}

	content := fmt.Sprintf("%s \n %s", text, instruction)
	return t.gateway.ChatCompletion(ctx, []models.Message{
		{Role: models.RoleUser, Content: content},
	})
}
