package repository

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/pkg/cache"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/util"
)

// sharedQueryTimeout bounds a ledger query shared by concurrent misses.
const sharedQueryTimeout = 10 * time.Second

// CachedLedgerStore caches MonthlyTotals results and drops a user's cached
// totals whenever new entries for that user are stored. Concurrent misses
// for the same key share one ClickHouse query.
type CachedLedgerStore struct {
	next   domrepo.LedgerStore
	cache  cache.Service
	ttl    time.Duration
	l      *applogger.Logger
	flight singleflight.Group
}

func NewCachedLedgerStore(next domrepo.LedgerStore, c cache.Service, ttl time.Duration, l *applogger.Logger) *CachedLedgerStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CachedLedgerStore{next: next, cache: c, ttl: ttl, l: l}
}

func (s *CachedLedgerStore) Init(ctx context.Context) error {
	return s.next.Init(ctx)
}

func (s *CachedLedgerStore) StoreBatch(ctx context.Context, entries []*models.LedgerEntry) error {
	if err := s.next.StoreBatch(ctx, entries); err != nil {
		return err
	}
	users := make(map[string]struct{})
	for _, e := range entries {
		if e != nil {
			users[e.UserID] = struct{}{}
		}
	}
	for user := range users {
		if err := s.cache.DeleteByPattern(ctx, userTotalsPattern(user)); err != nil {
			s.l.Warn("ledger cache invalidation failed", applogger.String("user_id", user), applogger.Error(err))
		}
	}
	return nil
}

func (s *CachedLedgerStore) MonthlyTotals(ctx context.Context, userID string, n int, until time.Time) ([]models.MonthlyTotal, error) {
	key := monthlyTotalsKey(userID, n, until)

	var cached []models.MonthlyTotal
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.l.Warn("ledger cache read failed", applogger.String("key", key), applogger.Error(err))
	}

	// the shared query must outlive any single caller; each caller only
	// waits as long as its own context allows
	ch := s.flight.DoChan(key, func() (interface{}, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedQueryTimeout)
		defer cancel()
		totals, err := s.next.MonthlyTotals(qctx, userID, n, until)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(qctx, key, totals, s.ttl); err != nil {
			s.l.Warn("ledger cache write failed", applogger.String("key", key), applogger.Error(err))
		}
		return totals, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]models.MonthlyTotal), nil
	}
}

func (s *CachedLedgerStore) Health(ctx context.Context) error {
	return s.next.Health(ctx)
}

func (s *CachedLedgerStore) Close() error {
	return s.next.Close()
}

func userTotalsPattern(userID string) string {
	return cache.PrefixPattern("ledger", "totals", userID)
}

// monthlyTotalsKey is ledger:totals:<user>:<n>:<until date|latest>.
func monthlyTotalsKey(userID string, n int, until time.Time) string {
	bound := "latest"
	if !until.IsZero() {
		bound = until.UTC().Format(util.DateLayout)
	}
	return cache.Key("ledger", "totals", userID, n, bound)
}

var _ domrepo.LedgerStore = (*CachedLedgerStore)(nil)
