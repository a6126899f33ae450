package scores

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/playmatatu/dropzone/internal/database"
	"github.com/playmatatu/dropzone/internal/migrations"
	"github.com/playmatatu/dropzone/internal/models"
)

func openSQLite(t *testing.T) *sqlx.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dropzone.db")
	if err := migrations.RunMigrations("sqlite", path, filepath.Join("..", "..", "migrations")); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	db, err := database.Connect("sqlite", path)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLBackendProfiles(t *testing.T) {
	ctx := context.Background()
	b := NewSQLBackend(openSQLite(t))

	if _, found, err := b.GetProfile(ctx, "alice"); err != nil || found {
		t.Fatalf("missing profile: found=%v err=%v", found, err)
	}

	first := models.Profile{
		UserID:      "alice",
		BestScore:   640,
		TotalPlays:  1,
		TotalScore:  640,
		LastUpdated: time.UnixMilli(1700000000123).UTC(),
	}
	if err := b.PutProfile(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := first
	second.BestScore, second.TotalPlays, second.TotalScore = 990, 2, 1630
	second.LastUpdated = first.LastUpdated.Add(time.Second)
	if err := b.PutProfile(ctx, second); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, found, err := b.GetProfile(ctx, "alice")
	if err != nil || !found {
		t.Fatalf("GetProfile: found=%v err=%v", found, err)
	}
	if !reflect.DeepEqual(got, second) {
		t.Errorf("profile = %+v, want %+v", got, second)
	}
}

func TestSQLBackendRecentAttemptsMatchesFallback(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	b := NewSQLBackend(db)

	base := time.UnixMilli(1700000000000).UTC()
	for i := 0; i < 15; i++ {
		a := models.Attempt{
			ID:        fmt.Sprintf("att-%02d", (i*4)%15),
			UserID:    "bob",
			Score:     i * 60,
			Distance:  float64(i),
			Timestamp: base.Add(time.Duration(i/2) * time.Millisecond),
		}
		if err := b.InsertAttempt(ctx, a); err != nil {
			t.Fatal(err)
		}
	}
	b.InsertAttempt(ctx, models.Attempt{ID: "zzz", UserID: "carol", Score: 1, Timestamp: base.Add(time.Hour)})

	recent, err := b.RecentAttempts(ctx, "bob", RecentLimit)
	if err != nil {
		t.Fatalf("RecentAttempts: %v", err)
	}
	if len(recent) != RecentLimit {
		t.Fatalf("recent = %d, want %d", len(recent), RecentLimit)
	}

	all, err := b.AttemptsByUser(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 15 {
		t.Fatalf("AttemptsByUser = %d, want 15", len(all))
	}
	SortNewestFirst(all)
	if !reflect.DeepEqual(recent, all[:RecentLimit]) {
		t.Errorf("ordered query differs from in-memory sort:\n%+v\n%+v", recent, all[:RecentLimit])
	}
}

func TestSQLBackendWithoutIndexFallsBack(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	svc := NewService(NewSQLBackend(db), WithClock(stepClock(time.Unix(1700000000, 0))))
	for i := 0; i < 12; i++ {
		if _, err := svc.RecordAttempt(ctx, "dana", i*80, float64(i)); err != nil {
			t.Fatal(err)
		}
	}
	indexed, err := svc.LoadStats(ctx, "dana")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := db.Exec("DROP INDEX " + RecentAttemptsIndex); err != nil {
		t.Fatal(err)
	}
	unindexed := NewSQLBackend(db)
	if _, err := unindexed.RecentAttempts(ctx, "dana", RecentLimit); !errors.Is(err, ErrIndexUnavailable) {
		t.Fatalf("err = %v, want ErrIndexUnavailable", err)
	}

	degraded, err := NewService(unindexed).LoadStats(ctx, "dana")
	if err != nil {
		t.Fatalf("degraded LoadStats: %v", err)
	}
	if !reflect.DeepEqual(indexed, degraded) {
		t.Errorf("stats differ:\nindexed  %+v\ndegraded %+v", indexed, degraded)
	}
	if degraded.TotalAttempts != 12 || degraded.BestScore != 880 {
		t.Errorf("stats = %+v", degraded)
	}
}

func TestSQLBackendSaveAttemptRollsBack(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	b := NewSQLBackend(db)
	svc := NewService(b)

	p, err := svc.RecordAttempt(ctx, "erin", 700, 3)
	if err != nil {
		t.Fatal(err)
	}
	if p.TotalPlays != 1 || p.BestScore != 700 {
		t.Fatalf("profile = %+v", p)
	}

	if _, err := db.Exec("DROP TABLE profiles"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RecordAttempt(ctx, "erin", 950, 1); !errors.Is(err, ErrTransient) {
		t.Fatalf("err = %v, want ErrTransient", err)
	}

	attempts, err := b.AttemptsByUser(ctx, "erin")
	if err != nil {
		t.Fatal(err)
	}
	if len(attempts) != 1 || attempts[0].Score != 700 {
		t.Errorf("attempts = %+v, want only the first", attempts)
	}
}
