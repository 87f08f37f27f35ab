package session

import (
	"strings"
	"time"

	"github.com/lucasmaia/atende/internal/model/order"
)

// PromptFunc renders the system turn that opens every new session.
type PromptFunc func(storeName, orderCode string) string

// Manager owns the session state machine: load-or-create, transcript
// appends, completion detection and the open to closed transition. It holds
// no I/O; persistence is the orchestrator's job.
type Manager struct {
	storeName string
	prompt    PromptFunc
	newCode   CodeFunc
	now       func() time.Time
}

// Option customizes a Manager, mainly for tests.
type Option func(*Manager)

// WithCodeFunc replaces the order-code generator.
func WithCodeFunc(f CodeFunc) Option {
	return func(m *Manager) {
		m.newCode = f
	}
}

// WithClock replaces the creation-time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager for the given store name.
func NewManager(storeName string, prompt PromptFunc, opts ...Option) *Manager {
	m := &Manager{
		storeName: storeName,
		prompt:    prompt,
		newCode:   NewCode,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Resolve returns prev untouched while it is still open. An absent record
// and a closed record both mint a brand-new session, but the branches stay
// separate: a closed record is prior order history, never a reopen
// candidate.
func (m *Manager) Resolve(prev *order.Session, identity, displayName string) *order.Session {
	if prev != nil {
		if prev.Open() {
			return prev
		}
		// Closed order on record; supersede it with a fresh session.
		return m.newSession(identity, displayName)
	}
	// First contact for this identity.
	return m.newSession(identity, displayName)
}

func (m *Manager) newSession(identity, displayName string) *order.Session {
	code := m.newCode()
	return &order.Session{
		Status:    order.StatusOpen,
		OrderCode: code,
		OpenedAt:  m.now().UTC(),
		Customer: order.Customer{
			DisplayName:    displayName,
			ChannelAddress: identity,
		},
		Transcript: []order.Turn{
			{Role: order.RoleSystem, Text: m.prompt(m.storeName, code)},
		},
		OrderSummary: "",
	}
}

// AppendTurn adds one entry to the transcript. Empty text is dropped;
// existing entries are never touched.
func (m *Manager) AppendTurn(s *order.Session, role order.Role, text string) {
	if text == "" {
		return
	}
	s.Transcript = append(s.Transcript, order.Turn{Role: role, Text: text})
}

// CheckCompletion reports whether the agent reply carries the session's
// order code. The literal substring match is the sole completion signal; a
// reply that quotes the code for any other reason also closes the session.
func (m *Manager) CheckCompletion(s *order.Session, reply string) bool {
	return s.Open() && strings.Contains(reply, s.OrderCode)
}

// Close records the order summary and seals the session. Terminal; callers
// gate on CheckCompletion so a closed session is never closed twice.
func (m *Manager) Close(s *order.Session, summary string) {
	s.OrderSummary = summary
	s.Status = order.StatusClosed
}
