package session

import "time"

// Message is one conversational turn kept in a session's history.
type Message struct {
	Role      string    `json:"role"` // user | assistant
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session holds a user's conversation state for the simple Q&A path so
// follow-up questions carry context.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
	History   []Message `json:"history"`
}

// RecentHistory returns up to limit most recent turns as plain strings for
// prompt assembly.
func (s *Session) RecentHistory(limit int) []string {
	if limit <= 0 || len(s.History) == 0 {
		return nil
	}
	start := 0
	if len(s.History) > limit {
		start = len(s.History) - limit
	}
	out := make([]string, 0, len(s.History)-start)
	for _, m := range s.History[start:] {
		out = append(out, m.Role+": "+m.Content)
	}
	return out
}
