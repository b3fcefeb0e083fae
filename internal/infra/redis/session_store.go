package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/domain/ports/adapter"
	"hotspot-portal/internal/domain/ports/repository"
)

var _ repository.SessionStore = (*SessionStore)(nil)

// SessionStore keeps portal sessions as JSON with a sliding TTL.
// Tokens are sealed before they reach Redis when a sealer is configured.
type SessionStore struct {
	client RedisClient
	sealer adapter.TokenSealer
	ttl    time.Duration
}

func NewSessionStore(client RedisClient, sealer adapter.TokenSealer, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionStore{client: client, sealer: sealer, ttl: ttl}
}

func (s *SessionStore) key(id string) string { return "portal_session:" + id }

// sessionRecord is the at-rest shape; Access/Refresh hold ciphertext.
type sessionRecord struct {
	model.Session
	Tokens *model.Tokens `json:"tokens,omitempty"` // shadows Session.Tokens
	Sealed bool          `json:"sealed,omitempty"`
}

func (s *SessionStore) Save(ctx context.Context, sess *model.Session) error {
	rec := sessionRecord{Session: *sess}
	if sess.Tokens != nil {
		t := *sess.Tokens
		if s.sealer != nil {
			var err error
			if t.Access, err = s.sealer.Encrypt(t.Access); err != nil {
				return fmt.Errorf("seal access token: %w", err)
			}
			if t.Refresh, err = s.sealer.Encrypt(t.Refresh); err != nil {
				return fmt.Errorf("seal refresh token: %w", err)
			}
			rec.Sealed = true
		}
		rec.Tokens = &t
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(sess.ID), data, s.ttl)
}

func (s *SessionStore) Get(ctx context.Context, id string) (*model.Session, error) {
	data, err := s.client.Get(ctx, s.key(id))
	if err != nil {
		return nil, err
	}

	var rec sessionRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, err
	}
	sess := rec.Session
	sess.Tokens = nil
	if rec.Tokens != nil {
		t := *rec.Tokens
		if rec.Sealed {
			if s.sealer == nil {
				return nil, errors.New("session tokens are sealed but no sealer is configured")
			}
			if t.Access, err = s.sealer.Decrypt(t.Access); err != nil {
				return nil, fmt.Errorf("open access token: %w", err)
			}
			if t.Refresh, err = s.sealer.Decrypt(t.Refresh); err != nil {
				return nil, fmt.Errorf("open refresh token: %w", err)
			}
		}
		sess.Tokens = &t
	}
	return &sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id))
}
