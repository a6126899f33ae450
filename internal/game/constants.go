package game

// Physics and layout constants for the drop game.
// Clients that animate locally read the same values from GET /api/v1/config.

const (
	BallSize            = 30.0
	TargetSize          = 80.0
	HorizontalSpeed     = 4.0 // pixels per frame
	Gravity             = 0.5
	MaxVerticalVelocity = 20.0
	TargetBottomMargin  = 5.0

	DefaultWidth  = 800.0
	DefaultHeight = 600.0

	// Ball position after a reset.
	StartX = 50.0
	StartY = 50.0

	PerfectRadius = 10.0
	TargetRadius  = TargetSize / 2
	MaxScore      = 1000
)
