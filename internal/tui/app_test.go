package tui

import (
	"context"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/playmatatu/dropzone/internal/game"
	"github.com/playmatatu/dropzone/internal/scores"
)

func newScreen(t *testing.T, cols, rows int) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(screen.Fini)
	screen.SetSize(cols, rows)
	return screen
}

func key(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func TestViewportReservesStatusLine(t *testing.T) {
	screen := newScreen(t, 80, 31)
	w, h := Viewport(screen)
	if w != 800 || h != 600 {
		t.Errorf("viewport = %vx%v, want 800x600", w, h)
	}
}

func TestDrawPlacesBallAndTarget(t *testing.T) {
	screen := newScreen(t, 80, 31)
	sim := game.NewSimulation(game.DefaultConfig())

	Draw(screen, View{Snapshot: sim.Snapshot()})

	if r, _, _, _ := screen.GetContent(5, 2); r != '●' {
		t.Errorf("ball cell = %q, want ●", r)
	}
	// Target zone spans x 360..440 at y 515.
	if r, _, _, _ := screen.GetContent(36, 25); r != '═' {
		t.Errorf("target left cell = %q, want ═", r)
	}
	if r, _, _, _ := screen.GetContent(40, 25); r != '╋' {
		t.Errorf("target center cell = %q, want ╋", r)
	}
	if r, _, _, _ := screen.GetContent(1, 30); r != 'g' {
		t.Errorf("status line should start with the guest label, got %q", r)
	}
}

func TestKeyCommand(t *testing.T) {
	tests := []struct {
		ev    *tcell.EventKey
		state game.GameState
		want  game.CommandType
		ok    bool
	}{
		{key(' '), game.StateReady, game.CommandStart, true},
		{key(' '), game.StateMoving, game.CommandDrop, true},
		{key(' '), game.StateFalling, "", false},
		{key(' '), game.StateLanded, game.CommandReset, true},
		{tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), game.StateReady, game.CommandStart, true},
		{key('r'), game.StateFalling, game.CommandReset, true},
		{key('x'), game.StateReady, "", false},
	}
	for _, tt := range tests {
		cmd, ok := keyCommand(tt.ev, tt.state)
		if ok != tt.ok || cmd.Type != tt.want {
			t.Errorf("key %q in %s = %v/%v, want %v/%v", tt.ev.Rune(), tt.state, cmd.Type, ok, tt.want, tt.ok)
		}
	}
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestPlayRoundFromKeyboard(t *testing.T) {
	screen := newScreen(t, 80, 31)
	svc := scores.NewService(scores.NewMemoryBackend())
	app := NewApp(screen, svc, Silent(), "tui-player", game.TickerFrames(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go app.runner.Run(ctx)

	if !app.HandleEvent(ctx, key(' ')) {
		t.Fatal("space should not quit")
	}
	waitUntil(t, "moving", func() bool { return app.View().Snapshot.State == game.StateMoving })

	app.HandleEvent(ctx, key(' '))
	waitUntil(t, "landing to be recorded", func() bool { return app.View().Stats.TotalAttempts == 1 })

	v := app.View()
	if v.Snapshot.State != game.StateLanded || v.Snapshot.LastScore == nil {
		t.Fatalf("snapshot after landing = %+v", v.Snapshot)
	}
	if v.Stats.BestScore != *v.Snapshot.LastScore {
		t.Errorf("best = %d, last = %d", v.Stats.BestScore, *v.Snapshot.LastScore)
	}

	app.HandleEvent(ctx, key(' '))
	waitUntil(t, "reset", func() bool { return app.View().Snapshot.State == game.StateReady })

	if app.HandleEvent(ctx, key('q')) {
		t.Error("q should quit")
	}
}

func TestResizeEventResizesSimulation(t *testing.T) {
	screen := newScreen(t, 80, 31)
	app := NewApp(screen, scores.NewService(scores.NewMemoryBackend()), nil, "", game.TickerFrames(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go app.runner.Run(ctx)

	screen.SetSize(100, 41)
	app.HandleEvent(ctx, tcell.NewEventResize(100, 41))

	snap := app.View().Snapshot
	if snap.Width != 1000 || snap.Height != 800 {
		t.Errorf("dimensions = %vx%v, want 1000x800", snap.Width, snap.Height)
	}
}
