package handlers

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// TempAudio is a voice recording persisted to a private temporary file.
// Close removes the file; it is safe to call more than once.
type TempAudio struct {
	file *os.File
	name string
}

// SaveTempAudio copies r into a fresh file in dir (os.TempDir when empty).
// name only contributes its extension, which speech services use to detect the
// format.
func SaveTempAudio(dir, name string, r io.Reader) (*TempAudio, error) {
	ext := filepath.Ext(name)
	if ext == "" {
		ext = ".m4a"
	}

	f, err := os.CreateTemp(dir, "voice-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp audio file: %w", err)
	}
	a := &TempAudio{file: f, name: "voice" + ext}

	if _, err := io.Copy(f, r); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to write temp audio file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to rewind temp audio file: %w", err)
	}
	return a, nil
}

func (a *TempAudio) Read(p []byte) (int, error) { return a.file.Read(p) }

// Name is the file name to report to the speech service.
func (a *TempAudio) Name() string { return a.name }

func (a *TempAudio) Path() string { return a.file.Name() }

func (a *TempAudio) Close() error {
	if a.file == nil {
		return nil
	}
	path := a.file.Name()
	_ = a.file.Close()
	a.file = nil
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp audio file: %w", err)
	}
	return nil
}
