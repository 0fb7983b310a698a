package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionHeader carries the session ID for non-browser API clients.
const SessionHeader = "X-Session-ID"

// Session is the authenticated identity attached to a request.
type Session struct {
	ID     string
	UserID string
}

// SessionStore resolves sessions issued by the auth service. Sessions are
// written elsewhere; this store reads them and slides their expiry.
type SessionStore struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
}

type sessionPayload struct {
	UserID string `json:"user_id"`
}

// NewSessionStore constructs a SessionStore. A positive ttl is re-applied
// to the session key on every load.
func NewSessionStore(client *redis.Client, cookieName string, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, cookieName: cookieName, ttl: ttl}
}

// Load returns the session referenced by the request, or nil when the
// request carries no usable session.
func (s *SessionStore) Load(ctx context.Context, r *http.Request) (*Session, error) {
	id := s.sessionID(r)
	if id == "" {
		return nil, nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	var cmd *redis.StringCmd
	if s.ttl > 0 {
		cmd = s.client.GetEx(ctx, s.redisKey(id), s.ttl)
	} else {
		cmd = s.client.Get(ctx, s.redisKey(id))
	}
	payload, err := cmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}
	if strings.TrimSpace(stored.UserID) == "" {
		return nil, nil
	}
	return &Session{ID: id, UserID: stored.UserID}, nil
}

// CookieName returns the cookie identifier used for sessions.
func (s *SessionStore) CookieName() string {
	return s.cookieName
}

func (s *SessionStore) sessionID(r *http.Request) string {
	if cookie, err := r.Cookie(s.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return strings.TrimSpace(r.Header.Get(SessionHeader))
}

func (s *SessionStore) redisKey(id string) string {
	return "session:" + id
}
