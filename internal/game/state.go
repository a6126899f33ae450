package game

// GameState is the lifecycle phase of a single round.
type GameState string

const (
	StateReady   GameState = "ready"
	StateMoving  GameState = "moving"
	StateFalling GameState = "falling"
	StateLanded  GameState = "landed"
)

// Animating reports whether the state needs frame ticks.
func (s GameState) Animating() bool {
	return s == StateMoving || s == StateFalling
}
