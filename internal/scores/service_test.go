package scores

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"

	"github.com/playmatatu/dropzone/internal/models"
)

// faultyBackend wraps a MemoryBackend and fails selected calls.
type faultyBackend struct {
	*MemoryBackend
	mu        sync.Mutex
	insertErr error
	readErr   error
}

func (b *faultyBackend) setReadErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readErr = err
}

func (b *faultyBackend) InsertAttempt(ctx context.Context, a models.Attempt) error {
	b.mu.Lock()
	err := b.insertErr
	b.mu.Unlock()
	if err != nil {
		return err
	}
	return b.MemoryBackend.InsertAttempt(ctx, a)
}

func (b *faultyBackend) GetProfile(ctx context.Context, userID string) (models.Profile, bool, error) {
	b.mu.Lock()
	err := b.readErr
	b.mu.Unlock()
	if err != nil {
		return models.Profile{}, false, err
	}
	return b.MemoryBackend.GetProfile(ctx, userID)
}

// stepClock advances one millisecond per call.
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Millisecond)
		return current
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []AttemptEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e AttemptEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func TestRecordAttemptUpdatesProfile(t *testing.T) {
	backend := NewMemoryBackend()
	pub := &recordingPublisher{}
	svc := NewService(backend, WithPublisher(pub), WithClock(stepClock(time.Unix(1700000000, 0))))
	ctx := context.Background()

	p, err := svc.RecordAttempt(ctx, "alice", 1000, 0)
	if err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	if p.BestScore != 1000 || p.TotalPlays != 1 {
		t.Fatalf("after first attempt profile = %+v", p)
	}

	p, err = svc.RecordAttempt(ctx, "alice", 400, 120)
	if err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	if p.BestScore != 1000 || p.TotalPlays != 2 {
		t.Fatalf("after second attempt profile = %+v", p)
	}

	stored, found, _ := backend.GetProfile(ctx, "alice")
	if !found || stored.BestScore != 1000 || stored.TotalPlays != 2 || stored.TotalScore != 1400 {
		t.Errorf("stored profile = %+v (found=%v)", stored, found)
	}

	stats, err := svc.LoadStats(ctx, "alice")
	if err != nil {
		t.Fatalf("LoadStats: %v", err)
	}
	if stats.TotalAttempts != 2 || stats.BestScore != 1000 || stats.AverageScore != 700 {
		t.Errorf("stats = %+v", stats)
	}
	if len(stats.RecentAttempts) != 2 || stats.RecentAttempts[0].Score != 400 {
		t.Errorf("recent attempts should be newest first: %+v", stats.RecentAttempts)
	}

	if len(pub.events) != 2 || pub.events[1].TotalPlays != 2 || pub.events[1].UserID != "alice" {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestRecordAttemptRequiresIdentity(t *testing.T) {
	backend := NewMemoryBackend()
	svc := NewService(backend)

	_, err := svc.RecordAttempt(context.Background(), "", 500, 10)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
	all, _ := backend.AttemptsByUser(context.Background(), "")
	if len(all) != 0 {
		t.Errorf("anonymous attempt was stored: %+v", all)
	}

	stats, err := svc.LoadStats(context.Background(), "")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("LoadStats err = %v", err)
	}
	if stats.TotalAttempts != 0 || stats.RecentAttempts == nil {
		t.Errorf("anonymous stats = %+v", stats)
	}
}

func TestRecordAttemptRejectsOutOfRangeScore(t *testing.T) {
	svc := NewService(NewMemoryBackend())
	for _, score := range []int{-1, 1001} {
		if _, err := svc.RecordAttempt(context.Background(), "bob", score, 0); !errors.Is(err, ErrInvalidScore) {
			t.Errorf("score %d: err = %v, want ErrInvalidScore", score, err)
		}
	}
}

func TestBestScoreNeverDecreases(t *testing.T) {
	svc := NewService(NewMemoryBackend())
	best := 0
	for i, score := range []int{300, 900, 100, 850, 901, 0} {
		p, err := svc.RecordAttempt(context.Background(), "carol", score, 0)
		if err != nil {
			t.Fatal(err)
		}
		best = max(best, score)
		if p.BestScore != best || p.TotalPlays != i+1 {
			t.Fatalf("attempt %d: profile = %+v, want best %d plays %d", i, p, best, i+1)
		}
	}
}

func TestRecentAttemptsPathIndependent(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	// Every third attempt shares a timestamp with its predecessor to
	// exercise the tie-break.
	base := time.Unix(1700000000, 0).UTC()
	for i := 0; i < 25; i++ {
		ts := base.Add(time.Duration(i-i%3) * time.Second)
		backend.InsertAttempt(ctx, models.Attempt{
			ID:        fmt.Sprintf("a-%02d", (i*7)%25),
			UserID:    "dave",
			Score:     i * 40,
			Timestamp: ts,
		})
	}
	backend.InsertAttempt(ctx, models.Attempt{ID: "other", UserID: "eve", Score: 999, Timestamp: base.Add(time.Hour)})

	svc := NewService(backend)
	indexed, err := svc.LoadStats(ctx, "dave")
	if err != nil {
		t.Fatal(err)
	}

	backend.SetIndexReady(false)
	degraded, err := svc.LoadStats(ctx, "dave")
	if err != nil {
		t.Fatalf("degraded path should not surface an error: %v", err)
	}

	if len(indexed.RecentAttempts) != RecentLimit {
		t.Fatalf("recent = %d, want %d", len(indexed.RecentAttempts), RecentLimit)
	}
	if !reflect.DeepEqual(indexed.RecentAttempts, degraded.RecentAttempts) {
		t.Errorf("paths differ:\nindexed  %+v\ndegraded %+v", indexed.RecentAttempts, degraded.RecentAttempts)
	}
	for i := 1; i < len(degraded.RecentAttempts); i++ {
		prev, cur := degraded.RecentAttempts[i-1], degraded.RecentAttempts[i]
		if cur.Timestamp.After(prev.Timestamp) {
			t.Fatalf("not newest first at %d: %v after %v", i, cur.Timestamp, prev.Timestamp)
		}
		if cur.UserID != "dave" {
			t.Fatalf("foreign attempt in view: %+v", cur)
		}
	}
}

func TestLoadStatsKeepsCachedStatsOnFailure(t *testing.T) {
	ctx := context.Background()
	backend := &faultyBackend{MemoryBackend: NewMemoryBackend()}
	svc := NewService(backend)

	if _, err := svc.RecordAttempt(ctx, "frank", 720, 45); err != nil {
		t.Fatal(err)
	}
	good, err := svc.LoadStats(ctx, "frank")
	if err != nil {
		t.Fatal(err)
	}

	backend.setReadErr(errors.New("connection reset by peer"))
	got, err := svc.LoadStats(ctx, "frank")
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("err = %v, want ErrTransient", err)
	}
	if !reflect.DeepEqual(got, good) {
		t.Errorf("stats on failure = %+v, want cached %+v", got, good)
	}

	got, _ = svc.LoadStats(ctx, "nobody")
	if got.TotalAttempts != 0 || len(got.RecentAttempts) != 0 {
		t.Errorf("uncached user on failure = %+v, want empty", got)
	}
}

func TestPermissionDeniedIsClassified(t *testing.T) {
	backend := &faultyBackend{
		MemoryBackend: NewMemoryBackend(),
		insertErr:     &pq.Error{Code: "42501", Message: "permission denied for table attempts"},
	}
	svc := NewService(backend)

	_, err := svc.RecordAttempt(context.Background(), "gina", 500, 80)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
	if _, found, _ := backend.GetProfile(context.Background(), "gina"); found {
		t.Error("profile should not be written when the attempt insert fails")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"pq insufficient privilege", &pq.Error{Code: "42501"}, ErrPermissionDenied},
		{"pq unique violation", &pq.Error{Code: "23505"}, ErrTransient},
		{"deadline", context.DeadlineExceeded, ErrTransient},
		{"already classified", fmt.Errorf("wrapped: %w", ErrIndexUnavailable), ErrIndexUnavailable},
		{"plain", errors.New("boom"), ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); !errors.Is(got, tt.want) {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
	if Classify(nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
}

// staleReadBackend holds every profile read until two readers have read,
// forcing both read-modify-write cycles to see the same snapshot.
type staleReadBackend struct {
	*MemoryBackend
	mu      sync.Mutex
	readers int
	both    chan struct{}
}

func (b *staleReadBackend) GetProfile(ctx context.Context, userID string) (models.Profile, bool, error) {
	p, found, err := b.MemoryBackend.GetProfile(ctx, userID)
	b.mu.Lock()
	b.readers++
	if b.readers == 2 {
		close(b.both)
	}
	b.mu.Unlock()

	select {
	case <-b.both:
	case <-time.After(200 * time.Millisecond):
	}
	return p, found, err
}

func TestUnlockedProfileUpdatesCanBeLost(t *testing.T) {
	backend := &staleReadBackend{MemoryBackend: NewMemoryBackend(), both: make(chan struct{})}
	svc := NewService(backend, WithLocker(NoopLocker{}))

	var wg sync.WaitGroup
	for _, score := range []int{200, 600} {
		wg.Add(1)
		go func(score int) {
			defer wg.Done()
			if _, err := svc.RecordAttempt(context.Background(), "henry", score, 0); err != nil {
				t.Error(err)
			}
		}(score)
	}
	wg.Wait()

	p, _, _ := backend.MemoryBackend.GetProfile(context.Background(), "henry")
	attempts, _ := backend.AttemptsByUser(context.Background(), "henry")
	if len(attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(attempts))
	}
	// Both writers read plays=0, so the last write wins with plays=1.
	if p.TotalPlays != 1 {
		t.Errorf("TotalPlays = %d, want the lost update (1)", p.TotalPlays)
	}
}

type failingLocker struct{ err error }

func (l failingLocker) Lock(context.Context, string) (func(), error) {
	return nil, l.err
}

func TestLockFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	svc := NewService(backend, WithLocker(failingLocker{err: context.DeadlineExceeded}))

	if _, err := svc.RecordAttempt(ctx, "gina", 900, 12); !errors.Is(err, ErrTransient) {
		t.Fatalf("err = %v, want ErrTransient", err)
	}

	attempts, err := backend.AttemptsByUser(ctx, "gina")
	if err != nil {
		t.Fatal(err)
	}
	if len(attempts) != 0 {
		t.Errorf("stored attempts = %d, want 0", len(attempts))
	}
	if p, found, _ := backend.GetProfile(ctx, "gina"); found {
		t.Errorf("profile written: %+v", p)
	}

	// A retry after the lock recovers counts the attempt exactly once.
	svc = NewService(backend)
	p, err := svc.RecordAttempt(ctx, "gina", 900, 12)
	if err != nil {
		t.Fatal(err)
	}
	attempts, _ = backend.AttemptsByUser(ctx, "gina")
	if len(attempts) != 1 || p.TotalPlays != 1 {
		t.Errorf("attempts = %d, plays = %d, want 1 and 1", len(attempts), p.TotalPlays)
	}
}

func TestLocalLockerSerialisesProfileUpdates(t *testing.T) {
	backend := NewMemoryBackend()
	svc := NewService(backend, WithLocker(NewLocalLocker()))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := svc.RecordAttempt(context.Background(), "iris", i*20, 0); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	p, _, _ := backend.GetProfile(context.Background(), "iris")
	if p.TotalPlays != n || p.BestScore != (n-1)*20 {
		t.Errorf("profile = %+v, want plays %d best %d", p, n, (n-1)*20)
	}
}

func TestLocalLockerHonoursContext(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "jack")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "jack"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second lock err = %v, want deadline exceeded", err)
	}

	other, err := l.Lock(context.Background(), "kate")
	if err != nil {
		t.Fatalf("locks for different users must not contend: %v", err)
	}
	other()

	unlock()
	unlock()

	l.mu.Lock()
	remaining := len(l.locks)
	l.mu.Unlock()
	if remaining != 0 {
		t.Errorf("lock table should be empty after release, has %d", remaining)
	}
}

func TestCalculateScorePassThrough(t *testing.T) {
	svc := NewService(NewMemoryBackend())
	if got := svc.CalculateScore(0, 400); got != 1000 {
		t.Errorf("CalculateScore(0, 400) = %d", got)
	}
	if got := svc.CalculateScore(400, 400); got != 0 {
		t.Errorf("CalculateScore(400, 400) = %d", got)
	}
}
