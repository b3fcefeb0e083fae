package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hotspot-portal/internal/domain"
	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/domain/ports/adapter"
	"hotspot-portal/internal/domain/ports/repository"
	"hotspot-portal/internal/infra/logging"
)

// Compile-time check
var _ SessionUseCase = (*sessionUC)(nil)

// SessionUseCase owns the per-browser session context that replaces ambient
// token storage. Every flow receives the session explicitly.
type SessionUseCase interface {
	// Load returns the stored session, or a fresh anonymous one when id is
	// empty or unknown.
	Load(ctx context.Context, id string) (*model.Session, error)
	Save(ctx context.Context, sess *model.Session) error
	// Login exchanges credentials for backend tokens.
	Login(ctx context.Context, sess *model.Session, username, password string) error
	// Teardown drops credentials after the backend rejected them.
	Teardown(ctx context.Context, sess *model.Session) error
}

type sessionUC struct {
	store     repository.SessionStore
	backend   adapter.BillingBackend
	inspector adapter.TokenInspector
	log       *zerolog.Logger
}

func NewSessionUseCase(store repository.SessionStore, backend adapter.BillingBackend, inspector adapter.TokenInspector, logger *zerolog.Logger) *sessionUC {
	return &sessionUC{store: store, backend: backend, inspector: inspector, log: logger}
}

func (u *sessionUC) Load(ctx context.Context, id string) (*model.Session, error) {
	if id != "" {
		sess, err := u.store.Get(ctx, id)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return model.NewSession(uuid.NewString()), nil
}

func (u *sessionUC) Save(ctx context.Context, sess *model.Session) error {
	return u.store.Save(ctx, sess)
}

func (u *sessionUC) Login(ctx context.Context, sess *model.Session, username, password string) error {
	defer logging.TraceDuration(u.log, "SessionUC.Login")()

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("username and password are required: %w", domain.ErrInvalidArgument)
	}
	res, err := u.backend.Login(ctx, username, password)
	if err != nil {
		return err
	}
	name := username
	if res.Customer != nil && res.Customer.Username != "" {
		name = res.Customer.Username
	}
	authenticate(sess, res.Tokens, name, u.inspector)
	return u.store.Save(ctx, sess)
}

func (u *sessionUC) Teardown(ctx context.Context, sess *model.Session) error {
	logging.With(ctx, u.log).Info().Str("session_id", sess.ID).Msg("session credentials cleared")
	sess.Clear()
	return u.store.Save(ctx, sess)
}

// authenticate stores tokens on the session with the expiry read from the
// access token when it is a JWT.
func authenticate(sess *model.Session, t model.Tokens, username string, inspector adapter.TokenInspector) {
	var exp *time.Time
	if inspector != nil {
		exp = inspector.Expiry(t.Access)
	}
	sess.Authenticate(t, username, exp)
}
