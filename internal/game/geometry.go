package game

// Config is the immutable per-round simulation configuration.
// Width and Height follow the host viewport; everything else is fixed.
type Config struct {
	BallSize            float64 `json:"ball_size"`
	TargetSize          float64 `json:"target_size"`
	HorizontalSpeed     float64 `json:"horizontal_speed"`
	Gravity             float64 `json:"gravity"`
	MaxVerticalVelocity float64 `json:"max_vertical_velocity"`
	Width               float64 `json:"game_width"`
	Height              float64 `json:"game_height"`
}

// DefaultConfig returns the standard constants on an 800x600 field.
func DefaultConfig() Config {
	return Config{
		BallSize:            BallSize,
		TargetSize:          TargetSize,
		HorizontalSpeed:     HorizontalSpeed,
		Gravity:             Gravity,
		MaxVerticalVelocity: MaxVerticalVelocity,
		Width:               DefaultWidth,
		Height:              DefaultHeight,
	}
}

// WithDimensions returns a copy of c sized to the given viewport.
func (c Config) WithDimensions(width, height float64) Config {
	c.Width = width
	c.Height = height
	return c
}

// MaxBallX is the right-hand bound for the ball's left edge.
func (c Config) MaxBallX() float64 {
	if c.Width < c.BallSize {
		return 0
	}
	return c.Width - c.BallSize
}

// MaxDistance is the distance at which a landing scores zero.
func (c Config) MaxDistance() float64 {
	return c.Width / 2
}

// Target computes the target zone: horizontally centered, anchored near the bottom.
func (c Config) Target() TargetZone {
	return TargetZone{
		X:      (c.Width - c.TargetSize) / 2,
		Y:      c.Height - c.TargetSize - TargetBottomMargin,
		Width:  c.TargetSize,
		Height: c.TargetSize,
	}
}

// LandingY is the ball's top coordinate when its center sits on the
// target's vertical center.
func (c Config) LandingY() float64 {
	return c.Target().CenterY() - c.BallSize/2
}

// TargetZone is the scoring target in screen pixels.
type TargetZone struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (t TargetZone) CenterX() float64 {
	return t.X + t.Width/2
}

func (t TargetZone) CenterY() float64 {
	return t.Y + t.Height/2
}
