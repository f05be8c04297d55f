package importer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Status tracks a session through upload and execution.
type Status string

const (
	StatusInvalid   Status = "invalid"
	StatusValidated Status = "validated"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Session is an uploaded workbook awaiting or having completed execution.
type Session struct {
	ID         string           `json:"id"`
	Filename   string           `json:"filename"`
	UploadedAt time.Time        `json:"uploaded_at"`
	Counts     map[string]int   `json:"counts"`
	Errors     ValidationErrors `json:"errors"`
	Batch      Batch            `json:"batch,omitempty"`
	Status     Status           `json:"status"`
	Result     *Result          `json:"result,omitempty"`
	Failure    string           `json:"failure,omitempty"`
}

// Importable reports whether the batch passed validation.
func (s *Session) Importable() bool {
	return len(s.Errors) == 0
}

// SessionStore keeps sessions in Redis for a bounded time.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore constructs the Redis-backed store.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionStore{client: client, ttl: ttl}
}

func sessionKey(id string) string { return "import:session:" + id }
func claimKey(id string) string   { return "import:claim:" + id }

// Save writes the session, refreshing its TTL.
func (s *SessionStore) Save(ctx context.Context, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(sess.ID), raw, s.ttl).Err()
}

// Load reads a session or returns ErrSessionNotFound.
func (s *SessionStore) Load(ctx context.Context, id string) (*Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Claim marks a session as taken by a run. It returns false when another run
// already claimed it.
func (s *SessionStore) Claim(ctx context.Context, id string) (bool, error) {
	return s.client.SetNX(ctx, claimKey(id), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
}

// Release drops the claim so the session can run again. Only valid when the
// aborted run created nothing.
func (s *SessionStore) Release(ctx context.Context, id string) error {
	return s.client.Del(ctx, claimKey(id)).Err()
}
