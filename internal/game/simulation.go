package game

import "math"

// Landing is the outcome of a round, computed once at the falling -> landed transition.
type Landing struct {
	Score       int     `json:"score"`
	Distance    float64 `json:"distance"`
	MaxDistance float64 `json:"max_distance"`
	IsNewBest   bool    `json:"is_new_best"`
	Rating      string  `json:"rating"`
}

// Snapshot is the read-only state published to the presentation layer.
type Snapshot struct {
	State        GameState  `json:"state"`
	Ball         Vec2       `json:"ball"`
	BallSize     float64    `json:"ball_size"`
	Target       TargetZone `json:"target"`
	Width        float64    `json:"game_width"`
	Height       float64    `json:"game_height"`
	LastScore    *int       `json:"last_score"`
	LastDistance float64    `json:"last_distance"`
	Rating       string     `json:"rating,omitempty"`
	IsNewBest    bool       `json:"is_new_best"`
	ShowScore    bool       `json:"show_score"`
	Tick         uint64     `json:"tick"`
}

// Simulation is the drop game state machine:
//
//	ready --Start--> moving --Drop--> falling --(reaches landing line)--> landed --Reset--> ready
//
// Commands that do not apply to the current state are ignored. A Simulation
// is not safe for concurrent use; Runner serializes access to it.
type Simulation struct {
	cfg     Config
	pending *Config

	state     GameState
	ball      Vec2
	velocity  float64
	direction float64
	target    TargetZone
	landingY  float64

	lastScore    int
	hasScore     bool
	lastDistance float64
	newBest      bool
	showScore    bool
	knownBest    int
	tick         uint64

	observers []func(Snapshot)
	onLanded  func(Landing)
}

// NewSimulation creates a simulation in the ready state.
func NewSimulation(cfg Config) *Simulation {
	s := &Simulation{cfg: cfg}
	s.applyDimensions()
	s.Reset()
	return s
}

// Subscribe registers fn to receive a snapshot after every committed mutation.
func (s *Simulation) Subscribe(fn func(Snapshot)) {
	s.observers = append(s.observers, fn)
}

// OnLanded registers the landing hand-off. It runs after the landed snapshot
// has been published; fn must not block.
func (s *Simulation) OnLanded(fn func(Landing)) {
	s.onLanded = fn
}

// SetKnownBest records the best score known to the presentation layer.
// It only feeds the new-best flag.
func (s *Simulation) SetKnownBest(best int) {
	s.knownBest = best
}

func (s *Simulation) State() GameState {
	return s.state
}

func (s *Simulation) Config() Config {
	return s.cfg
}

// Start begins a round. Only valid in ready.
func (s *Simulation) Start() bool {
	if s.state != StateReady {
		return false
	}

	s.state = StateMoving
	s.velocity = 0
	s.direction = 1
	s.hasScore = false
	s.lastScore = 0
	s.lastDistance = 0
	s.newBest = false
	s.showScore = false

	s.publish()
	return true
}

// Drop releases the ball. Only valid in moving.
func (s *Simulation) Drop() bool {
	if s.state != StateMoving {
		return false
	}

	s.state = StateFalling
	s.publish()
	return true
}

// Reset returns to ready from any state and applies a pending resize.
// The last score stays visible until the next Start.
func (s *Simulation) Reset() {
	s.state = StateReady
	s.velocity = 0
	s.direction = 1
	s.showScore = false

	if s.pending != nil {
		s.cfg = *s.pending
		s.pending = nil
		s.applyDimensions()
	}

	s.ball = NewVec2(math.Min(StartX, s.cfg.MaxBallX()), StartY)
	s.publish()
}

// Resize records new viewport dimensions. In ready they apply at once;
// otherwise they wait for the next Reset so an in-flight landing line never moves.
func (s *Simulation) Resize(width, height float64) bool {
	if width <= 0 || height <= 0 || math.IsNaN(width) || math.IsNaN(height) {
		return false
	}

	next := s.cfg.WithDimensions(width, height)
	if s.state != StateReady {
		s.pending = &next
		return true
	}

	s.cfg = next
	s.applyDimensions()
	s.ball = s.ball.WithX(math.Min(s.ball.X, s.cfg.MaxBallX()))
	s.publish()
	return true
}

// Tick advances one frame. It is a no-op outside moving and falling.
func (s *Simulation) Tick() {
	var landing *Landing

	switch s.state {
	case StateMoving:
		s.moveBallHorizontally()
	case StateFalling:
		landing = s.moveBallDown()
	default:
		return
	}

	s.tick++
	s.publish()

	if landing != nil && s.onLanded != nil {
		s.onLanded(*landing)
	}
}

// Snapshot returns the current published state.
func (s *Simulation) Snapshot() Snapshot {
	snap := Snapshot{
		State:        s.state,
		Ball:         s.ball,
		BallSize:     s.cfg.BallSize,
		Target:       s.target,
		Width:        s.cfg.Width,
		Height:       s.cfg.Height,
		LastDistance: s.lastDistance,
		IsNewBest:    s.newBest,
		ShowScore:    s.showScore,
		Tick:         s.tick,
	}
	if s.hasScore {
		score := s.lastScore
		snap.LastScore = &score
		snap.Rating = Rating(score)
	}
	return snap
}

func (s *Simulation) applyDimensions() {
	s.target = s.cfg.Target()
	s.landingY = s.cfg.LandingY()
}

func (s *Simulation) publish() {
	if len(s.observers) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, fn := range s.observers {
		fn(snap)
	}
}
