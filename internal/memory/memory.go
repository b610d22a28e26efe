package memory

import (
	"sync"

	"github.com/wutienyang/ChatGPT-Line-Bot/internal/models"
)

// DefaultMaxHistory matches the window the bot kept per chat before it had a
// configurable cap.
const DefaultMaxHistory = 20

type conversation struct {
	turn    sync.Mutex // held for a whole user -> model -> assistant exchange
	mu      sync.Mutex // guards entries
	entries []models.Message
}

// Memory keeps a bounded history per user behind a fixed system message.
type Memory struct {
	system     models.Message
	maxHistory int

	mu    sync.Mutex
	users map[string]*conversation
}

// New returns a Memory. maxHistory counts user and assistant entries; the system
// message is not part of it. Eviction drops whole turns, oldest first, so the
// retained history may hold fewer than maxHistory entries. A non-positive value selects DefaultMaxHistory.
func New(systemMessage string, maxHistory int) *Memory {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Memory{
		system:     models.Message{Role: models.RoleSystem, Content: systemMessage},
		maxHistory: maxHistory,
		users:      make(map[string]*conversation),
	}
}

// lookup returns the user's conversation without creating one.
func (m *Memory) lookup(userID string) (*conversation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.users[userID]
	return c, ok
}

func (m *Memory) conversation(userID string) *conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.users[userID]
	if !ok {
		c = &conversation{}
		m.users[userID] = c
	}
	return c
}

// Lock serialises turns of one user. Appends and reads stay safe without it; it
// only keeps concurrent turns of the same user from interleaving.
func (m *Memory) Lock(userID string) (unlock func()) {
	c := m.conversation(userID)
	c.turn.Lock()
	return c.turn.Unlock
}

func (m *Memory) AppendUser(userID, text string) {
	m.append(userID, models.Message{Role: models.RoleUser, Content: text})
}

func (m *Memory) AppendAssistant(userID, text string) {
	m.append(userID, models.Message{Role: models.RoleAssistant, Content: text})
}

func (m *Memory) append(userID string, msg models.Message) {
	c := m.conversation(userID)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append(c.entries, msg)
	if len(c.entries) <= m.maxHistory {
		return
	}
	// Retained history always opens with a user entry so no reply outlives its question.
	start := len(c.entries) - m.maxHistory
	for start < len(c.entries) && c.entries[start].Role != models.RoleUser {
		start++
	}
	c.entries = append(c.entries[:0:0], c.entries[start:]...)
}

// BuildRequest returns the system message followed by the user's retained
// history, oldest first. The result is a copy.
func (m *Memory) BuildRequest(userID string) []models.Message {
	c, ok := m.lookup(userID)
	if !ok {
		return []models.Message{m.system}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.Message, 0, len(c.entries)+1)
	out = append(out, m.system)
	return append(out, c.entries...)
}

// Reset drops everything but the system message for userID.
func (m *Memory) Reset(userID string) {
	c, ok := m.lookup(userID)
	if !ok {
		return
	}
	c.mu.Lock()
	c.entries = nil
	c.mu.Unlock()
}

// Len reports the number of retained user and assistant entries.
func (m *Memory) Len(userID string) int {
	c, ok := m.lookup(userID)
	if !ok {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (m *Memory) MaxHistory() int { return m.maxHistory }
