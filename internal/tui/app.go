package tui

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/playmatatu/dropzone/internal/game"
	"github.com/playmatatu/dropzone/internal/models"
	"github.com/playmatatu/dropzone/internal/scores"
)

const redrawInterval = 16 * time.Millisecond // ~60 FPS

// App is the terminal client: one local simulation whose landings are
// recorded through the score service.
type App struct {
	screen tcell.Screen
	svc    *scores.Service
	sound  *Sound
	userID string
	runner *game.Runner

	mu     sync.Mutex
	snap   game.Snapshot
	stats  models.GameStats
	notice string
}

// NewApp sizes a simulation to screen. frames drives the physics loop.
func NewApp(screen tcell.Screen, svc *scores.Service, sound *Sound, userID string, frames game.FrameSourceFunc) *App {
	width, height := Viewport(screen)
	sim := game.NewSimulation(game.DefaultConfig().WithDimensions(width, height))

	a := &App{
		screen: screen,
		svc:    svc,
		sound:  sound,
		userID: userID,
		snap:   sim.Snapshot(),
		stats:  models.EmptyStats(),
	}
	sim.Subscribe(a.setSnapshot)
	sim.OnLanded(a.onLanded)
	a.runner = game.NewRunner(sim, frames)
	return a
}

// Run drives the simulation and redraws until the player quits or ctx ends.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.runner.Run(ctx)
	go a.refreshStats(ctx)

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(redrawInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if !a.HandleEvent(ctx, ev) {
				return
			}
		case <-ticker.C:
			Draw(a.screen, a.View())
		}
	}
}

// HandleEvent applies one terminal event. It returns false when the player quits.
func (a *App) HandleEvent(ctx context.Context, ev tcell.Event) bool {
	var cmd game.Command

	switch ev := ev.(type) {
	case *tcell.EventKey:
		if isQuit(ev) {
			return false
		}
		var ok bool
		cmd, ok = keyCommand(ev, a.View().Snapshot.State)
		if !ok {
			return true
		}
	case *tcell.EventResize:
		a.screen.Sync()
		width, height := Viewport(a.screen)
		cmd = game.Command{Type: game.CommandResize, Width: width, Height: height}
	default:
		return true
	}

	if _, err := a.runner.Send(ctx, cmd); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("[TUI] Command %s failed: %v", cmd.Type, err)
	}
	return true
}

func isQuit(ev *tcell.EventKey) bool {
	return ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
		(ev.Key() == tcell.KeyRune && ev.Rune() == 'q')
}

// keyCommand maps a key to a command. Space advances the round:
// start from ready, drop while moving, reset once landed.
func keyCommand(ev *tcell.EventKey, state game.GameState) (game.Command, bool) {
	switch {
	case ev.Key() == tcell.KeyEnter || (ev.Key() == tcell.KeyRune && ev.Rune() == ' '):
		switch state {
		case game.StateReady:
			return game.Command{Type: game.CommandStart}, true
		case game.StateMoving:
			return game.Command{Type: game.CommandDrop}, true
		case game.StateLanded:
			return game.Command{Type: game.CommandReset}, true
		}
	case ev.Key() == tcell.KeyRune && ev.Rune() == 'r':
		return game.Command{Type: game.CommandReset}, true
	}
	return game.Command{}, false
}

// View returns a copy of the current frame contents.
func (a *App) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return View{Snapshot: a.snap, Stats: a.stats, UserID: a.userID, Notice: a.notice}
}

func (a *App) setSnapshot(snap game.Snapshot) {
	a.mu.Lock()
	a.snap = snap
	a.mu.Unlock()
}

// onLanded runs on the runner goroutine; saving happens elsewhere.
func (a *App) onLanded(landing game.Landing) {
	a.sound.PlayLanding(landing.Score)
	go a.persist(landing)
}

func (a *App) persist(landing game.Landing) {
	ctx := context.Background()
	if _, err := a.svc.RecordAttempt(ctx, a.userID, landing.Score, landing.Distance); err != nil {
		if errors.Is(err, scores.ErrPermissionDenied) {
			a.setNotice("Score not saved: access denied by the score store")
		}
		return
	}
	a.refreshStats(ctx)
}

func (a *App) refreshStats(ctx context.Context) {
	if a.userID == "" {
		return
	}
	stats, err := a.svc.LoadStats(ctx, a.userID)
	if err != nil {
		if errors.Is(err, scores.ErrPermissionDenied) {
			a.setNotice("Stats unavailable: access denied by the score store")
		}
		return
	}

	a.mu.Lock()
	a.stats = stats
	a.mu.Unlock()

	if err := a.runner.Do(ctx, func(s *game.Simulation) {
		s.SetKnownBest(stats.BestScore)
	}); err != nil && !errors.Is(err, game.ErrRunnerStopped) {
		log.Printf("[TUI] Failed to update known best: %v", err)
	}
}

func (a *App) setNotice(msg string) {
	a.mu.Lock()
	a.notice = msg
	a.mu.Unlock()
}
