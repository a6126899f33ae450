package tui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/playmatatu/dropzone/internal/game"
	"github.com/playmatatu/dropzone/internal/models"
)

// Terminal cells are roughly twice as tall as they are wide.
const (
	pxPerCol = 10.0
	pxPerRow = 20.0
)

var (
	ballStyle   = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	targetStyle = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	centerStyle = tcell.StyleDefault.Foreground(tcell.ColorRed)
	statusStyle = tcell.StyleDefault.Reverse(true)
	noticeStyle = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	scoreStyle  = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
)

// Viewport converts the screen size to simulation pixels. The bottom row is
// reserved for the status line.
func Viewport(screen tcell.Screen) (width, height float64) {
	cols, rows := screen.Size()
	if rows > 1 {
		rows--
	}
	return float64(cols) * pxPerCol, float64(rows) * pxPerRow
}

func cell(x, y float64) (int, int) {
	return int(x / pxPerCol), int(y / pxPerRow)
}

// View is everything drawn in one frame.
type View struct {
	Snapshot game.Snapshot
	Stats    models.GameStats
	UserID   string
	Notice   string
}

// Draw renders v to screen and shows it.
func Draw(screen tcell.Screen, v View) {
	screen.Clear()
	cols, rows := screen.Size()
	snap := v.Snapshot

	// Target zone
	tx, ty := cell(snap.Target.X, snap.Target.Y)
	tw := int(snap.Target.Width / pxPerCol)
	for i := 0; i < tw; i++ {
		screen.SetContent(tx+i, ty, '═', nil, targetStyle)
	}
	cx, _ := cell(snap.Target.CenterX(), snap.Target.Y)
	screen.SetContent(cx, ty, '╋', nil, centerStyle)

	// Ball
	bx, by := cell(snap.Ball.X, snap.Ball.Y)
	screen.SetContent(bx, by, '●', nil, ballStyle)

	if snap.ShowScore && snap.LastScore != nil {
		text := fmt.Sprintf("%d %s", *snap.LastScore, snap.Rating)
		if snap.IsNewBest {
			text += " NEW BEST"
		}
		drawText(screen, (cols-len(text))/2, rows/3, text, scoreStyle)
	}

	if v.Notice != "" {
		drawText(screen, 0, 0, v.Notice, noticeStyle)
	}

	drawText(screen, 0, rows-1, padRight(statusLine(v), cols), statusStyle)
	screen.Show()
}

func statusLine(v View) string {
	last := "-"
	if v.Snapshot.LastScore != nil {
		last = fmt.Sprintf("%d", *v.Snapshot.LastScore)
	}
	who := v.UserID
	if who == "" {
		who = "guest (not saved)"
	}
	return fmt.Sprintf(" %s | %s | last %s | best %d | plays %d | avg %d | [space] play [r] reset [q] quit",
		who, v.Snapshot.State, last, v.Stats.BestScore, v.Stats.TotalAttempts, v.Stats.AverageScore)
}

func drawText(screen tcell.Screen, x, y int, text string, style tcell.Style) {
	for i, r := range []rune(text) {
		screen.SetContent(x+i, y, r, nil, style)
	}
}

func padRight(s string, width int) string {
	for len([]rune(s)) < width {
		s += " "
	}
	return s
}
