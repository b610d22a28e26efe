package prompt

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	TranslateKey = "/1"
	GrammarKey   = "/2"
)

// Defaults returns the presets the bot ships with.
func Defaults() map[string]string {
	return map[string]string{
		TranslateKey: "Help me to translate this sentence to English, only target language, no need original language.",
		GrammarKey:   "Please help me to fix the grammar and provide more simple and clear sentences without repeating the provided sentences.",
	}
}

// Catalog maps command keys to prompt text and holds the prompt that is active
// for every user of the process.
type Catalog struct {
	mu      sync.RWMutex
	presets map[string]string
	active  string
}

// NewCatalog copies presets and installs initial as the active prompt. initial may be
// a preset key or free text; it must not be blank.
func NewCatalog(presets map[string]string, initial string) (*Catalog, error) {
	c := &Catalog{presets: make(map[string]string, len(presets))}
	for k, v := range presets {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			return nil, fmt.Errorf("preset %q: key and prompt must not be empty", k)
		}
		c.presets[k] = v
	}

	initial = strings.TrimSpace(initial)
	if p, ok := c.presets[initial]; ok {
		initial = p
	}
	if initial == "" {
		return nil, fmt.Errorf("initial prompt must not be empty")
	}
	c.active = initial
	return c, nil
}

func (c *Catalog) Lookup(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.presets[key]
	return p, ok
}

func (c *Catalog) Active() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// SetActive replaces the active prompt. Blank text is rejected so the active
// prompt is never empty.
func (c *Catalog) SetActive(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	c.mu.Lock()
	c.active = text
	c.mu.Unlock()
	return true
}

// Select makes the preset stored under key the active prompt.
func (c *Catalog) Select(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.presets[key]
	if ok {
		c.active = p
	}
	return p, ok
}

func (c *Catalog) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.presets))
	for k := range c.presets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Dump renders every preset as "key : prompt", one per line, sorted by key.
func (c *Catalog) Dump() string {
	var sb strings.Builder
	for i, k := range c.Keys() {
		p, _ := c.Lookup(k)
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s : %s", k, p)
	}
	return sb.String()
}

type catalogFile struct {
	Prompts map[string]string `yaml:"prompts"`
}

// LoadFile reads extra presets from a YAML document of the form
//
//	prompts:
//	  /3: "Summarize this text."
//
// and merges them over base. Entries in the file win.
func LoadFile(path string, base map[string]string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file: %w", err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", path, err)
	}

	merged := make(map[string]string, len(base)+len(f.Prompts))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range f.Prompts {
		merged[k] = v
	}
	return merged, nil
}
