package scores

import (
	"context"
	"sort"

	"github.com/playmatatu/dropzone/internal/models"
)

// RecentLimit caps the recent-attempts view.
const RecentLimit = 10

// Backend is the document store holding the attempts log and the profiles.
type Backend interface {
	// InsertAttempt appends an immutable attempt.
	InsertAttempt(ctx context.Context, attempt models.Attempt) error

	// RecentAttempts returns up to limit attempts for userID, newest first.
	// It returns ErrIndexUnavailable when the ordered query cannot run.
	RecentAttempts(ctx context.Context, userID string, limit int) ([]models.Attempt, error)

	// AttemptsByUser returns every attempt for userID in no particular order.
	AttemptsByUser(ctx context.Context, userID string) ([]models.Attempt, error)

	// GetProfile reads the profile for userID; found is false if none exists yet.
	GetProfile(ctx context.Context, userID string) (profile models.Profile, found bool, err error)

	// PutProfile writes the profile, replacing any existing one.
	PutProfile(ctx context.Context, profile models.Profile) error
}

// ProfileFold computes the next profile from the current one.
type ProfileFold func(current models.Profile, found bool) models.Profile

// AttemptSaver is implemented by backends that can append an attempt and
// rewrite the profile in a single transaction.
type AttemptSaver interface {
	SaveAttempt(ctx context.Context, attempt models.Attempt, fold ProfileFold) (models.Profile, error)
}

// SortNewestFirst orders attempts by timestamp descending, breaking ties by
// ID descending so every retrieval path yields the same order.
func SortNewestFirst(attempts []models.Attempt) {
	sort.SliceStable(attempts, func(i, j int) bool {
		a, b := attempts[i], attempts[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID > b.ID
	})
}
