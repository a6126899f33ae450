package scores

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/playmatatu/dropzone/internal/game"
	"github.com/playmatatu/dropzone/internal/models"
)

// Service records attempts, maintains profiles and assembles stats views.
// It is safe for concurrent use.
type Service struct {
	backend   Backend
	locker    ProfileLocker
	cache     StatsCache
	publisher Publisher
	now       func() time.Time
	newID     func() string
	timeout   time.Duration
}

type Option func(*Service)

// WithLocker sets the per-user profile lock. Default is a LocalLocker.
func WithLocker(l ProfileLocker) Option {
	return func(s *Service) { s.locker = l }
}

// WithCache sets where last-known stats are kept. Default is a MemoryCache.
func WithCache(c StatsCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithPublisher sets the attempt event publisher. Default publishes nothing.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTimeout bounds every store round trip. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

func NewService(backend Backend, opts ...Option) *Service {
	s := &Service{
		backend:   backend,
		locker:    NewLocalLocker(),
		cache:     NewMemoryCache(),
		publisher: noopPublisher{},
		now:       time.Now,
		newID:     uuid.NewString,
		timeout:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// timestamp is millisecond precision so stored and in-memory values compare equal.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// RecordAttempt appends an attempt for userID and folds it into the profile.
// Every failure is logged here; the returned error is already classified.
func (s *Service) RecordAttempt(ctx context.Context, userID string, score int, distance float64) (models.Profile, error) {
	if userID == "" {
		log.Printf("[SCORES] Attempt not saved: %v", ErrUnauthenticated)
		return models.Profile{}, ErrUnauthenticated
	}
	if score < 0 || score > game.MaxScore {
		log.Printf("[SCORES] Attempt not saved for %s: %v (%d)", userID, ErrInvalidScore, score)
		return models.Profile{}, ErrInvalidScore
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.timestamp()
	attempt := models.Attempt{
		ID:        s.newID(),
		UserID:    userID,
		Score:     score,
		Distance:  distance,
		Timestamp: now,
	}

	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return models.Profile{}, s.fail("lock profile", userID, err)
	}
	profile, err := s.save(ctx, attempt)
	unlock()
	if err != nil {
		return models.Profile{}, s.fail("save attempt", userID, err)
	}

	log.Printf("[SCORES] Recorded attempt %s for %s: score=%d best=%d plays=%d",
		attempt.ID, userID, score, profile.BestScore, profile.TotalPlays)

	s.publisher.Publish(ctx, AttemptEvent{
		Type:       "attempt_recorded",
		UserID:     userID,
		AttemptID:  attempt.ID,
		Score:      score,
		BestScore:  profile.BestScore,
		TotalPlays: profile.TotalPlays,
		Timestamp:  now,
	})
	return profile, nil
}

// save appends the attempt and folds it into the profile. Callers hold the
// profile lock.
func (s *Service) save(ctx context.Context, attempt models.Attempt) (models.Profile, error) {
	fold := func(current models.Profile, found bool) models.Profile {
		return foldAttempt(current, found, attempt)
	}
	if saver, ok := s.backend.(AttemptSaver); ok {
		return saver.SaveAttempt(ctx, attempt, fold)
	}

	if err := s.backend.InsertAttempt(ctx, attempt); err != nil {
		return models.Profile{}, err
	}
	current, found, err := s.backend.GetProfile(ctx, attempt.UserID)
	if err != nil {
		return models.Profile{}, err
	}
	next := fold(current, found)
	if err := s.backend.PutProfile(ctx, next); err != nil {
		return models.Profile{}, err
	}
	return next, nil
}

func foldAttempt(current models.Profile, found bool, a models.Attempt) models.Profile {
	if !found {
		current = models.Profile{UserID: a.UserID}
	}
	return models.Profile{
		UserID:      a.UserID,
		BestScore:   max(current.BestScore, a.Score),
		TotalPlays:  current.TotalPlays + 1,
		TotalScore:  current.TotalScore + a.Score,
		LastUpdated: a.Timestamp,
	}
}

// LoadStats assembles the stats view for userID. On failure it logs and
// returns the last stats computed for that user (or empty stats) together
// with the classified error, so callers can keep showing something sensible.
func (s *Service) LoadStats(ctx context.Context, userID string) (models.GameStats, error) {
	if userID == "" {
		log.Printf("[SCORES] Stats not loaded: %v", ErrUnauthenticated)
		return models.EmptyStats(), ErrUnauthenticated
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	stats, err := s.loadStats(ctx, userID)
	if err != nil {
		err = s.fail("load stats", userID, err)
		return s.cached(context.WithoutCancel(ctx), userID), err
	}
	s.cache.Set(ctx, userID, stats)
	return stats, nil
}

func (s *Service) loadStats(ctx context.Context, userID string) (models.GameStats, error) {
	profile, _, err := s.backend.GetProfile(ctx, userID)
	if err != nil {
		return models.GameStats{}, err
	}
	recent, err := s.recentAttempts(ctx, userID)
	if err != nil {
		return models.GameStats{}, err
	}
	return models.GameStats{
		TotalAttempts:  profile.TotalPlays,
		BestScore:      profile.BestScore,
		AverageScore:   profile.AverageScore(),
		RecentAttempts: recent,
	}, nil
}

// recentAttempts uses the ordered query when available and otherwise sorts
// the full attempt set in memory. Both paths return the same slice.
func (s *Service) recentAttempts(ctx context.Context, userID string) ([]models.Attempt, error) {
	recent, err := s.backend.RecentAttempts(ctx, userID, RecentLimit)
	if err == nil {
		return recent, nil
	}
	if !errors.Is(err, ErrIndexUnavailable) {
		return nil, err
	}

	log.Printf("[SCORES] %v for %s, sorting attempts in memory", ErrIndexUnavailable, userID)
	all, err := s.backend.AttemptsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	SortNewestFirst(all)
	if len(all) > RecentLimit {
		all = all[:RecentLimit]
	}
	return all, nil
}

func (s *Service) cached(ctx context.Context, userID string) models.GameStats {
	if stats, ok := s.cache.Get(ctx, userID); ok {
		return stats
	}
	return models.EmptyStats()
}

func (s *Service) fail(op, userID string, err error) error {
	err = Classify(err)
	if errors.Is(err, ErrPermissionDenied) {
		log.Printf("[SCORES] Permission denied during %s for %s, check store access rules: %v", op, userID, err)
	} else {
		log.Printf("[SCORES] Failed to %s for %s (%s): %v", op, userID, className(err), err)
	}
	return err
}

// CalculateScore is the scoring function, exposed for holders of a Service.
func (s *Service) CalculateScore(distance, maxDistance float64) int {
	return game.Score(distance, maxDistance)
}
