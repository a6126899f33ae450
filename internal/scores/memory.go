package scores

import (
	"context"
	"sync"

	"github.com/playmatatu/dropzone/internal/models"
)

// MemoryBackend keeps attempts and profiles in process memory.
// SetIndexReady(false) emulates a store whose ordered index is not yet provisioned.
type MemoryBackend struct {
	mu         sync.RWMutex
	attempts   []models.Attempt
	profiles   map[string]models.Profile
	indexReady bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		profiles:   make(map[string]models.Profile),
		indexReady: true,
	}
}

// SetIndexReady toggles availability of the ordered recent-attempts query.
func (b *MemoryBackend) SetIndexReady(ready bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.indexReady = ready
}

func (b *MemoryBackend) InsertAttempt(ctx context.Context, attempt models.Attempt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempts = append(b.attempts, attempt)
	return nil
}

func (b *MemoryBackend) RecentAttempts(ctx context.Context, userID string, limit int) ([]models.Attempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	ready := b.indexReady
	b.mu.RUnlock()
	if !ready {
		return nil, ErrIndexUnavailable
	}

	attempts, err := b.AttemptsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	SortNewestFirst(attempts)
	if limit >= 0 && len(attempts) > limit {
		attempts = attempts[:limit]
	}
	return attempts, nil
}

func (b *MemoryBackend) AttemptsByUser(ctx context.Context, userID string) ([]models.Attempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.Attempt, 0)
	for _, a := range b.attempts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (b *MemoryBackend) GetProfile(ctx context.Context, userID string) (models.Profile, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Profile{}, false, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.profiles[userID]
	return p, ok, nil
}

func (b *MemoryBackend) PutProfile(ctx context.Context, profile models.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.profiles[profile.UserID] = profile
	return nil
}
