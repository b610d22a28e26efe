package ai

import (
	"context"
	"io"
	"sync"

	"github.com/wutienyang/ChatGPT-Line-Bot/internal/models"
)

type fakeGateway struct {
	mu sync.Mutex

	reply      string
	imageURL   string
	transcript string
	err        error

	chatCalls  [][]models.Message
	imageCalls []string
	audioSeen  []string
}

func (f *fakeGateway) ChatCompletion(_ context.Context, messages []models.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatCalls = append(f.chatCalls, messages)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeGateway) ImageGeneration(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageCalls = append(f.imageCalls, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.imageURL, nil
}

func (f *fakeGateway) Transcribe(_ context.Context, audio io.Reader, fileName string) (string, error) {
	raw, _ := io.ReadAll(audio)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audioSeen = append(f.audioSeen, fileName+":"+string(raw))
	if f.err != nil {
		return "", f.err
	}
	return f.transcript, nil
}
