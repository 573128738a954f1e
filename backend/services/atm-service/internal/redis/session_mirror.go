package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"smartatm/backend/libs/logging"
	"smartatm/backend/services/atm-service/internal/atm"
)

// SessionKey holds the live session snapshot.
const SessionKey = "atm:session:current"

// ErrNoSession is returned by Get when no session is mirrored.
var ErrNoSession = errors.New("redisstore: no active session")

// SessionSnapshot is what other processes see of the live session. The card is masked.
type SessionSnapshot struct {
	SessionID string    `json:"session_id"`
	Card      string    `json:"card"`
	State     atm.State `json:"state"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionMirror publishes session snapshots to redis.
type SessionMirror struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionMirror returns a mirror whose entries expire after ttl (0 keeps them).
func NewSessionMirror(client *redis.Client, ttl time.Duration) *SessionMirror {
	return &SessionMirror{client: client, ttl: ttl, now: time.Now}
}

// Save stores the snapshot of s.
func (m *SessionMirror) Save(ctx context.Context, s atm.Session) error {
	data, err := json.Marshal(SessionSnapshot{
		SessionID: s.ID,
		Card:      logging.MaskCard(s.Card),
		State:     s.State,
		StartedAt: s.StartedAt,
		UpdatedAt: m.now().UTC(),
	})
	if err != nil {
		return err
	}
	return m.client.Set(ctx, SessionKey, data, m.ttl).Err()
}

// Clear removes the snapshot.
func (m *SessionMirror) Clear(ctx context.Context) error {
	return m.client.Del(ctx, SessionKey).Err()
}

// Get returns the mirrored snapshot, or ErrNoSession when nothing is mirrored.
func (m *SessionMirror) Get(ctx context.Context) (*SessionSnapshot, error) {
	raw, err := m.client.Get(ctx, SessionKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	var snap SessionSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
