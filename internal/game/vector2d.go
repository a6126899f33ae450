package game

// Vec2 is a point in screen pixels. Y grows downward.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func NewVec2(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

// WithX returns v with its X replaced.
func (v Vec2) WithX(x float64) Vec2 {
	return Vec2{X: x, Y: v.Y}
}

// WithY returns v with its Y replaced.
func (v Vec2) WithY(y float64) Vec2 {
	return Vec2{X: v.X, Y: y}
}
