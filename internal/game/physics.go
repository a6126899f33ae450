package game

import "math"

// moveBallHorizontally bounces the ball between 0 and MaxBallX.
func (s *Simulation) moveBallHorizontally() {
	maxX := s.cfg.MaxBallX()
	newX := s.ball.X + s.cfg.HorizontalSpeed*s.direction

	if newX <= 0 {
		newX = 0
		s.direction = 1
	} else if newX >= maxX {
		newX = maxX
		s.direction = -1
	}

	s.ball = s.ball.WithX(newX)
}

// moveBallDown applies gravity and lands the ball on the landing line
// instead of overshooting it.
func (s *Simulation) moveBallDown() *Landing {
	s.velocity = math.Min(s.velocity+s.cfg.Gravity, s.cfg.MaxVerticalVelocity)
	newY := s.ball.Y + s.velocity

	if newY >= s.landingY {
		s.ball = s.ball.WithY(s.landingY)
		landing := s.land()
		return &landing
	}

	s.ball = s.ball.WithY(newY)
	return nil
}

// land performs the landing computation and enters StateLanded.
func (s *Simulation) land() Landing {
	s.state = StateLanded

	ballCenterX := s.ball.X + s.cfg.BallSize/2
	distance := math.Abs(ballCenterX - s.target.CenterX())
	maxDistance := s.cfg.MaxDistance()
	score := Score(distance, maxDistance)

	s.lastScore = score
	s.hasScore = true
	s.lastDistance = distance
	s.newBest = score > s.knownBest
	s.showScore = true

	return Landing{
		Score:       score,
		Distance:    distance,
		MaxDistance: maxDistance,
		IsNewBest:   s.newBest,
		Rating:      Rating(score),
	}
}
