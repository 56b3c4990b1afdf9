// Package session holds conversation history and transcript persistence.
package session

import (
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Cyclone1070/sysmate/internal/provider"
)

// perMessageOverhead approximates role and framing tokens.
const perMessageOverhead = 4

// Budget bounds a window. Zero fields are unlimited.
type Budget struct {
	MaxMessages int
	MaxTokens   int
}

// Window is the subsequence of history sent to a provider.
type Window struct {
	Messages []provider.Message
	// Trimmed is the number of messages the budget left out.
	Trimmed int
	// Orphans counts tool results dropped because their call is missing.
	Orphans int
	Tokens  int
}

// History is the ordered conversation. Only the orchestrator mutates it.
type History struct {
	mu       sync.RWMutex
	messages []provider.Message
	now      func() time.Time
}

// NewHistory creates a history seeded with msgs, e.g. a resumed transcript.
func NewHistory(msgs ...provider.Message) *History {
	h := &History{now: time.Now}
	h.messages = append(h.messages, msgs...)
	return h
}

// Append adds m, assigning an ID and timestamp if missing, and returns the
// stored message.
func (h *History) Append(m provider.Message) provider.Message {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = h.now()
	}
	h.mu.Lock()
	h.messages = append(h.messages, m)
	h.mu.Unlock()
	return m
}

// Reset clears the history.
func (h *History) Reset() {
	h.mu.Lock()
	h.messages = nil
	h.mu.Unlock()
}

// Messages returns a copy of the full history.
func (h *History) Messages() []provider.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]provider.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of messages.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// Last returns the newest message.
func (h *History) Last() (provider.Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.messages) == 0 {
		return provider.Message{}, false
	}
	return h.messages[len(h.messages)-1], true
}

// Window returns the most recent suffix of history fitting b, oldest first.
// An assistant message with tool calls and the tool results answering it
// form one unit that is kept or dropped whole. Tool results without their
// call are never included. The newest unit is always included.
func (h *History) Window(b Budget) Window {
	msgs := h.Messages()
	units, orphans := groupUnits(msgs)

	var (
		keep     int
		count    int
		tokens   int
		selected []unit
	)
	for i := len(units) - 1; i >= 0; i-- {
		u := units[i]
		n, t := len(u.messages), u.tokens()
		fits := (b.MaxMessages == 0 || count+n <= b.MaxMessages) &&
			(b.MaxTokens == 0 || tokens+t <= b.MaxTokens)
		if !fits && len(selected) > 0 {
			break
		}
		selected = append(selected, u)
		count += n
		tokens += t
		keep += n
	}

	out := make([]provider.Message, 0, keep)
	for i := len(selected) - 1; i >= 0; i-- {
		out = append(out, selected[i].messages...)
	}
	return Window{Messages: out, Trimmed: len(msgs) - orphans - len(out), Orphans: orphans, Tokens: tokens}
}

type unit struct {
	messages []provider.Message
}

func (u unit) tokens() int {
	total := 0
	for _, m := range u.messages {
		total += EstimateTokens(m)
	}
	return total
}

// groupUnits splits history into atomic windowing units. Orphan tool
// results are dropped and counted.
func groupUnits(msgs []provider.Message) (units []unit, orphans int) {
	for i := 0; i < len(msgs); i++ {
		m := msgs[i]
		switch {
		case m.HasToolCalls():
			pending := make(map[string]bool, len(m.ToolCalls))
			for _, c := range m.ToolCalls {
				pending[c.ID] = true
			}
			u := unit{messages: []provider.Message{m}}
			for i+1 < len(msgs) && msgs[i+1].Role == provider.RoleTool {
				next := msgs[i+1]
				i++
				if !pending[next.ToolCallID] {
					orphans++
					continue
				}
				delete(pending, next.ToolCallID)
				u.messages = append(u.messages, next)
			}
			units = append(units, u)
		case m.Role == provider.RoleTool:
			orphans++
		default:
			units = append(units, unit{messages: []provider.Message{m}})
		}
	}
	return units, orphans
}

// EstimateTokens approximates the token cost of m: a quarter token per
// rune of content, a quarter per byte of tool arguments, plus a fixed
// overhead.
func EstimateTokens(m provider.Message) int {
	runes := utf8.RuneCountInString(m.Content)
	args := 0
	for _, c := range m.ToolCalls {
		args += len(c.Arguments) + len(c.Name)
	}
	return (runes+3)/4 + (args+3)/4 + perMessageOverhead
}
