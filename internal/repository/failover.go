package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"arenapanel/internal/access"
	"arenapanel/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverSessionStore routes calls to primary until it fails, then to
// fallback. Primary is retried once per recoveryInterval.
type FailoverSessionStore struct {
	primary  domain.SessionStore
	fallback domain.SessionStore
	logger   *zerolog.Logger

	mu        sync.Mutex
	down      bool
	lastCheck time.Time
	now       func() time.Time
}

func NewFailoverSessionStore(primary, fallback domain.SessionStore, logger *zerolog.Logger) *FailoverSessionStore {
	return &FailoverSessionStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// usePrimary reports whether the next call should go to primary.
func (r *FailoverSessionStore) usePrimary() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.down {
		return true
	}
	if r.now().Sub(r.lastCheck) > recoveryInterval {
		r.lastCheck = r.now()
		return true
	}
	return false
}

// record inspects a primary result; it returns true when the call should be
// repeated against the fallback.
func (r *FailoverSessionStore) record(err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err == nil || errors.Is(err, ErrSessionNotFound) {
		if r.down {
			r.logger.Info().Msg("primary session store recovered")
		}
		r.down = false
		return false
	}

	if !r.down {
		r.logger.Error().Err(err).Msg("primary session store failed, falling back to memory")
	}
	r.down = true
	r.lastCheck = r.now()
	return true
}

func (r *FailoverSessionStore) GetSession(ctx context.Context, id string) (*access.Session, error) {
	if r.usePrimary() {
		s, err := r.primary.GetSession(ctx, id)
		if !r.record(err) {
			return s, err
		}
	}
	return r.fallback.GetSession(ctx, id)
}

func (r *FailoverSessionStore) SetSession(ctx context.Context, session access.Session, ttl time.Duration) error {
	if r.usePrimary() {
		if err := r.primary.SetSession(ctx, session, ttl); !r.record(err) {
			return err
		}
	}
	return r.fallback.SetSession(ctx, session, ttl)
}

func (r *FailoverSessionStore) DeleteSession(ctx context.Context, id string) error {
	// the session may live in either store
	_ = r.fallback.DeleteSession(ctx, id)
	if r.usePrimary() {
		if err := r.primary.DeleteSession(ctx, id); !r.record(err) {
			return err
		}
	}
	return nil
}

func (r *FailoverSessionStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		ok, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if !r.record(err) {
			return ok, err
		}
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
