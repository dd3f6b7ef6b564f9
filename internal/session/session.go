// Package session tracks per-browser login state in memory. Nothing here
// is persisted or shared between browser sessions; the only shared state
// in the system is the database itself.
package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const CookieName = "portal_session"

// Session is a point-in-time copy of one browser's state. Handlers only
// ever see copies; the live entries stay inside the Manager and are
// mutated under its lock.
type Session struct {
	ID          string
	LoggedIn    bool
	Email       string
	FullName    string
	ShowArticle bool
	ExpiresAt   time.Time
}

type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// FromRequest returns the browser's session, creating a fresh anonymous
// one when the cookie is absent, unknown or expired. The cookie is
// (re)issued on the response either way so the ID stays pinned to this
// browser.
func (m *Manager) FromRequest(w http.ResponseWriter, r *http.Request) Session {
	if c, err := r.Cookie(CookieName); err == nil {
		if sess, ok := m.lookup(c.Value); ok {
			return sess
		}
	}

	sess := m.create(false, "", "")
	m.setCookie(w, sess.ID)
	return sess
}

func (m *Manager) lookup(id string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	if time.Now().After(sess.ExpiresAt) {
		delete(m.sessions, id)
		return Session{}, false
	}
	sess.ExpiresAt = time.Now().Add(m.ttl)
	return *sess, true
}

// create publishes a fully populated session: every field is set before
// the map insert, so no concurrent reader can see a half-written entry.
func (m *Manager) create(loggedIn bool, email, fullName string) Session {
	sess := &Session{
		ID:        uuid.New().String(),
		LoggedIn:  loggedIn,
		Email:     email,
		FullName:  fullName,
		ExpiresAt: time.Now().Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
	return *sess
}

// Login marks the browser authenticated. The session ID is rotated so a
// pre-login cookie value cannot be replayed as a logged-in one.
func (m *Manager) Login(w http.ResponseWriter, old Session, email, fullName string) Session {
	m.mu.Lock()
	delete(m.sessions, old.ID)
	m.mu.Unlock()

	sess := m.create(true, email, fullName)
	m.setCookie(w, sess.ID)
	return sess
}

func (m *Manager) Logout(w http.ResponseWriter, sess Session) {
	m.mu.Lock()
	delete(m.sessions, sess.ID)
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// ToggleArticle flips the article flag for a logged-in session. The
// write happens under the lock; anonymous or vanished sessions are a
// no-op.
func (m *Manager) ToggleArticle(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[id]; ok && sess.LoggedIn {
		sess.ShowArticle = !sess.ShowArticle
	}
}

func (m *Manager) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Sweep drops expired sessions every interval until done is closed.
func (m *Manager) Sweep(done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for id, sess := range m.sessions {
				if now.After(sess.ExpiresAt) {
					delete(m.sessions, id)
				}
			}
			m.mu.Unlock()
		}
	}
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
