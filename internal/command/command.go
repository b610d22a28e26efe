package command

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wutienyang/ChatGPT-Line-Bot/internal/prompt"
)

type Kind int

const (
	Chat Kind = iota
	ShowPrompt
	ShowAll
	SelectPreset
	SetCustom
	GenerateImage
)

func (k Kind) String() string {
	switch k {
	case ShowPrompt:
		return "show_prompt"
	case ShowAll:
		return "show_all"
	case SelectPreset:
		return "select_preset"
	case SetCustom:
		return "set_custom"
	case GenerateImage:
		return "generate_image"
	default:
		return "chat"
	}
}

// Command is the parsed form of one inbound text message. Key is set for
// SelectPreset; Text carries the prompt for SetCustom, GenerateImage and Chat.
type Command struct {
	Kind Kind
	Key  string
	Text string
}

// Notifies reports whether the operator should be told about the active prompt
// after this command.
func (c Command) Notifies() bool {
	return c.Kind != Chat && c.Kind != GenerateImage
}

const (
	cmdPrompt  = "/prompt"
	cmdAll     = "/all"
	cmdSet     = "/set "
	cmdImagine = "/imagine"
)

// Router turns raw text into commands and applies prompt changes to the catalog.
type Router struct {
	catalog *prompt.Catalog
	// StrictImagine requires whitespace or end of input after "/imagine".
	// Without it "/imagineer" becomes an image request for "er".
	StrictImagine bool
}

func NewRouter(catalog *prompt.Catalog, strictImagine bool) *Router {
	return &Router{catalog: catalog, StrictImagine: strictImagine}
}

// Route parses raw and, for preset and /set commands, updates the active prompt.
// Text that matches nothing is a Chat command carrying raw unchanged.
func (r *Router) Route(userID, raw string) Command {
	text := strings.TrimSpace(raw)

	switch {
	case text == cmdPrompt:
		return Command{Kind: ShowPrompt}
	case text == cmdAll:
		return Command{Kind: ShowAll}
	}

	if _, ok := r.catalog.Select(text); ok {
		return Command{Kind: SelectPreset, Key: text}
	}

	if text == strings.TrimSpace(cmdSet) || strings.HasPrefix(text, cmdSet) {
		custom := strings.TrimSpace(strings.TrimPrefix(text, strings.TrimSpace(cmdSet)))
		if !r.catalog.SetActive(custom) {
			return Command{Kind: ShowPrompt}
		}
		return Command{Kind: SetCustom, Text: custom}
	}

	if strings.HasPrefix(text, cmdImagine) && r.imagineDelimited(text) {
		return Command{Kind: GenerateImage, Text: strings.TrimSpace(text[len(cmdImagine):])}
	}

	return Command{Kind: Chat, Text: raw}
}

func (r *Router) imagineDelimited(text string) bool {
	if !r.StrictImagine || len(text) == len(cmdImagine) {
		return true
	}
	next, _ := utf8.DecodeRuneInString(text[len(cmdImagine):])
	return unicode.IsSpace(next)
}
