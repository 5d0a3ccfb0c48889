// internal/domain/session/session.go
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Listener is notified with the new identity after every transition.
// uid == "" means anonymous.
type Listener func(uid string)

// Session owns the current identity of one storefront client (browser tab / device)
// and fans out identity transitions to its subscribers.
//
// Identity is nullable: "" = anonymous / logged-out.
type Session struct {
	id        string
	createdAt time.Time

	mu        sync.Mutex
	uid       string
	lastSeen  time.Time
	nextSubID int
	subs      []subscription

	// notifyMu serializes notifications so listeners observe transitions in order.
	notifyMu sync.Mutex
}

type subscription struct {
	id int
	fn Listener
}

// New creates an anonymous session with a random id.
func New(now time.Time) *Session {
	return &Session{
		id:        uuid.NewString(),
		createdAt: now,
		lastSeen:  now,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Identity returns the current uid and whether one is set.
func (s *Session) Identity() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uid, s.uid != ""
}

// SetIdentity switches the identity. Listeners run synchronously, in
// subscription order, only when the value actually changes.
func (s *Session) SetIdentity(uid string) {
	uid = strings.TrimSpace(uid)

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.uid == uid {
		s.mu.Unlock()
		return
	}
	s.uid = uid
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(uid)
	}
}

// ClearIdentity is logout.
func (s *Session) ClearIdentity() {
	s.SetIdentity("")
}

// Subscribe registers fn and returns its unsubscribe func.
func (s *Session) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i := range s.subs {
				if s.subs[i].id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Touch records activity (used for idle eviction).
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
