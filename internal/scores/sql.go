package scores

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/playmatatu/dropzone/internal/models"
)

// RecentAttemptsIndex is the composite index the ordered query relies on.
const RecentAttemptsIndex = "attempts_user_created_idx"

// SQLBackend stores attempts and profiles in PostgreSQL or SQLite.
// Timestamps are stored as unix milliseconds.
type SQLBackend struct {
	db        *sqlx.DB
	indexSeen atomic.Bool
}

func NewSQLBackend(db *sqlx.DB) *SQLBackend {
	return &SQLBackend{db: db}
}

type attemptRow struct {
	ID        string  `db:"id"`
	UserID    string  `db:"user_id"`
	Score     int     `db:"score"`
	Distance  float64 `db:"distance"`
	CreatedAt int64   `db:"created_at"`
}

func (r attemptRow) toModel() models.Attempt {
	return models.Attempt{
		ID:        r.ID,
		UserID:    r.UserID,
		Score:     r.Score,
		Distance:  r.Distance,
		Timestamp: fromMillis(r.CreatedAt),
	}
}

type profileRow struct {
	UserID      string `db:"user_id"`
	BestScore   int    `db:"best_score"`
	TotalPlays  int    `db:"total_plays"`
	TotalScore  int64  `db:"total_score"`
	LastUpdated int64  `db:"last_updated"`
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func (b *SQLBackend) InsertAttempt(ctx context.Context, a models.Attempt) error {
	return insertAttempt(ctx, b.db, a)
}

func insertAttempt(ctx context.Context, q sqlx.ExtContext, a models.Attempt) error {
	query := q.Rebind(`
		INSERT INTO attempts (id, user_id, score, distance, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	_, err := q.ExecContext(ctx, query, a.ID, a.UserID, a.Score, a.Distance, toMillis(a.Timestamp))
	return err
}

func (b *SQLBackend) RecentAttempts(ctx context.Context, userID string, limit int) ([]models.Attempt, error) {
	ok, err := b.hasIndex(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrIndexUnavailable
	}

	var rows []attemptRow
	query := b.db.Rebind(`
		SELECT id, user_id, score, distance, created_at
		FROM attempts
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`)
	if err := b.db.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, err
	}
	return toAttempts(rows), nil
}

func (b *SQLBackend) AttemptsByUser(ctx context.Context, userID string) ([]models.Attempt, error) {
	var rows []attemptRow
	query := b.db.Rebind(`
		SELECT id, user_id, score, distance, created_at
		FROM attempts
		WHERE user_id = ?
	`)
	if err := b.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}
	return toAttempts(rows), nil
}

func (b *SQLBackend) GetProfile(ctx context.Context, userID string) (models.Profile, bool, error) {
	return getProfile(ctx, b.db, userID)
}

func getProfile(ctx context.Context, q sqlx.ExtContext, userID string) (models.Profile, bool, error) {
	var row profileRow
	query := q.Rebind(`
		SELECT user_id, best_score, total_plays, total_score, last_updated
		FROM profiles
		WHERE user_id = ?
	`)
	err := sqlx.GetContext(ctx, q, &row, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, false, nil
	}
	if err != nil {
		return models.Profile{}, false, err
	}
	return models.Profile{
		UserID:      row.UserID,
		BestScore:   row.BestScore,
		TotalPlays:  row.TotalPlays,
		TotalScore:  int(row.TotalScore),
		LastUpdated: fromMillis(row.LastUpdated),
	}, true, nil
}

func (b *SQLBackend) PutProfile(ctx context.Context, p models.Profile) error {
	return putProfile(ctx, b.db, p)
}

func putProfile(ctx context.Context, q sqlx.ExtContext, p models.Profile) error {
	query := q.Rebind(`
		INSERT INTO profiles (user_id, best_score, total_plays, total_score, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			best_score = excluded.best_score,
			total_plays = excluded.total_plays,
			total_score = excluded.total_score,
			last_updated = excluded.last_updated
	`)
	_, err := q.ExecContext(ctx, query, p.UserID, p.BestScore, p.TotalPlays, int64(p.TotalScore), toMillis(p.LastUpdated))
	return err
}

// SaveAttempt inserts the attempt and upserts the folded profile in one
// transaction, so either both rows change or neither does.
func (b *SQLBackend) SaveAttempt(ctx context.Context, a models.Attempt, fold ProfileFold) (models.Profile, error) {
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Profile{}, err
	}
	defer tx.Rollback()

	if err := insertAttempt(ctx, tx, a); err != nil {
		return models.Profile{}, err
	}
	current, found, err := getProfile(ctx, tx, a.UserID)
	if err != nil {
		return models.Profile{}, err
	}
	next := fold(current, found)
	if err := putProfile(ctx, tx, next); err != nil {
		return models.Profile{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Profile{}, err
	}
	return next, nil
}

// hasIndex checks the catalog for the recent-attempts index. A positive
// answer is cached; a missing index is re-checked on every call so the
// ordered path comes back once the index is provisioned.
func (b *SQLBackend) hasIndex(ctx context.Context) (bool, error) {
	if b.indexSeen.Load() {
		return true, nil
	}

	var query string
	switch b.db.DriverName() {
	case "postgres":
		query = `SELECT COUNT(*) FROM pg_indexes WHERE indexname = $1`
	default:
		query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ?`
	}

	var count int
	if err := b.db.GetContext(ctx, &count, query, RecentAttemptsIndex); err != nil {
		return false, err
	}
	if count > 0 {
		b.indexSeen.Store(true)
		return true, nil
	}
	return false, nil
}

func toAttempts(rows []attemptRow) []models.Attempt {
	out := make([]models.Attempt, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out
}
