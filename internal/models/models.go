package models

import "time"

// Attempt is one completed round. Append-only; never mutated after creation.
type Attempt struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Score     int       `json:"score"`
	Distance  float64   `json:"distance"`
	Timestamp time.Time `json:"timestamp"`
}

// Profile is the per-user aggregate, updated on every recorded attempt.
type Profile struct {
	UserID      string    `json:"user_id"`
	BestScore   int       `json:"best_score"`
	TotalPlays  int       `json:"total_plays"`
	TotalScore  int       `json:"total_score"`
	LastUpdated time.Time `json:"last_updated"`
}

// AverageScore returns the rounded mean score, or 0 before the first play.
func (p Profile) AverageScore() int {
	if p.TotalPlays == 0 {
		return 0
	}
	return int((float64(p.TotalScore) / float64(p.TotalPlays)) + 0.5)
}

// GameStats is the read-only stats view assembled from a Profile and the
// user's most recent attempts (newest first).
type GameStats struct {
	TotalAttempts  int       `json:"total_attempts"`
	BestScore      int       `json:"best_score"`
	AverageScore   int       `json:"average_score"`
	RecentAttempts []Attempt `json:"recent_attempts"`
}

// EmptyStats is the view for a user with no recorded attempts.
func EmptyStats() GameStats {
	return GameStats{RecentAttempts: []Attempt{}}
}
