package models

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultHistoryLimit caps how many reports one session keeps.
	DefaultHistoryLimit = 20
	// SessionDuration is how long an idle session survives before pruning.
	SessionDuration = 24 * time.Hour
)

// HistoryEntry is one finished (or failed) run kept in session memory.
// Nothing here is persisted beyond the process lifetime.
type HistoryEntry struct {
	Report    *Report
	Err       string // non-empty when the run failed partway
	CreatedAt time.Time
}

// Failed reports whether the run behind this entry ended in an error.
func (e *HistoryEntry) Failed() bool {
	return e.Err != ""
}

// Session holds one browser session's report history.
type Session struct {
	ID       string
	Entries  []*HistoryEntry
	LastSeen time.Time
}

// SessionService manages in-memory sessions keyed by a cookie token.
type SessionService struct {
	mu           sync.Mutex
	sessions     map[string]*Session
	HistoryLimit int
	Duration     time.Duration
}

// NewSessionService constructor creates an empty in-memory session store.
func NewSessionService() *SessionService {
	return &SessionService{
		sessions:     make(map[string]*Session),
		HistoryLimit: DefaultHistoryLimit,
		Duration:     SessionDuration,
	}
}

// Create starts a new session and returns it.
func (ss *SessionService) Create() *Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	ss.pruneLocked()

	s := &Session{
		ID:       uuid.NewString(),
		LastSeen: time.Now(),
	}
	ss.sessions[s.ID] = s
	return s
}

// Get returns the session for the given token, or nil if it does not
// exist or has expired.
func (ss *SessionService) Get(id string) *Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	s, ok := ss.sessions[id]
	if !ok {
		return nil
	}
	if time.Since(s.LastSeen) > ss.Duration {
		delete(ss.sessions, id)
		return nil
	}
	s.LastSeen = time.Now()
	return s
}

// Add appends an entry to the session's history, dropping the oldest
// entry once the history limit is reached.
func (ss *SessionService) Add(sessionID string, entry *HistoryEntry) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	s, ok := ss.sessions[sessionID]
	if !ok {
		return
	}
	s.Entries = append(s.Entries, entry)
	if len(s.Entries) > ss.HistoryLimit {
		s.Entries = s.Entries[len(s.Entries)-ss.HistoryLimit:]
	}
	s.LastSeen = time.Now()
}

// Entry looks up a report by ID within one session. Sessions never see
// each other's reports.
func (ss *SessionService) Entry(sessionID, reportID string) (*HistoryEntry, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	s, ok := ss.sessions[sessionID]
	if !ok {
		return nil, ErrReportNotFound
	}
	for _, e := range s.Entries {
		if e.Report != nil && e.Report.ID == reportID {
			return e, nil
		}
	}
	return nil, ErrReportNotFound
}

// History returns a snapshot of the session's entries, newest first.
func (ss *SessionService) History(sessionID string) []*HistoryEntry {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	s, ok := ss.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]*HistoryEntry, len(s.Entries))
	for i, e := range s.Entries {
		out[len(s.Entries)-1-i] = e
	}
	return out
}

// pruneLocked drops sessions idle past the duration. Caller holds mu.
func (ss *SessionService) pruneLocked() {
	cutoff := time.Now().Add(-ss.Duration)
	for id, s := range ss.sessions {
		if s.LastSeen.Before(cutoff) {
			delete(ss.sessions, id)
		}
	}
}
