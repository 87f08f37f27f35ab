package order

import "time"

// Status marks whether a conversation still accepts turns.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Role tags a transcript turn with its speaker.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
)

// Turn is a single transcript entry. The transcript is replayed verbatim to
// the language model, so entry order is semantically meaningful.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Customer identifies who the conversation belongs to. ChannelAddress is the
// canonical identity the session record is keyed by.
type Customer struct {
	DisplayName    string `json:"displayName"`
	ChannelAddress string `json:"channelAddress"`
}

// Session is the full persisted state of one customer's ordering
// conversation. OrderCode is minted once at creation and never changes; the
// transcript is append-only while the session is open.
type Session struct {
	Status       Status    `json:"status"`
	OrderCode    string    `json:"orderCode"`
	OpenedAt     time.Time `json:"openedAt"`
	Customer     Customer  `json:"customer"`
	Transcript   []Turn    `json:"transcript"`
	OrderSummary string    `json:"orderSummary"`
}

// Open reports whether the session still accepts turns.
func (s *Session) Open() bool {
	return s.Status == StatusOpen
}
