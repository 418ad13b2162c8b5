// Package board maps chess squares to screen coordinates inside a fixed,
// calibrated rectangle. It is a calibration table, not a vision system: the
// four corner constants and the mirror transform are the entire algorithmic
// surface.
package board

import (
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/harrylevesque/chesstap/internal/utils"
)

// Square is a board cell addressed by file (0 = a .. 7 = h) and rank
// (0 = rank 1 .. 7 = rank 8).
type Square struct {
	File int
	Rank int
}

// ParseSquare parses a two-character token like "e2". File letters outside
// a-h or rank digits outside 1-8 are input-format errors.
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return Square{}, utils.Newf(utils.CodeInputFormat, "square %q must be two characters", s)
	}
	file := int(s[0]) - 'a'
	rank := int(s[1]) - '1'
	if file < 0 || file > 7 {
		return Square{}, utils.Newf(utils.CodeInputFormat, "square %q: file out of range", s)
	}
	if rank < 0 || rank > 7 {
		return Square{}, utils.Newf(utils.CodeInputFormat, "square %q: rank out of range", s)
	}
	return Square{File: file, Rank: rank}, nil
}

func (s Square) String() string {
	return string(rune('a'+s.File)) + string(rune('1'+s.Rank))
}

// Point is a position in screen-pixel space.
type Point struct {
	X int
	Y int
}

// Move is a pair of screen points: tap origin, then destination.
type Move struct {
	From Point
	To   Point
}

// Rect is the board rectangle given by two opposite corners, both inclusive.
type Rect struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

var moveTokenRe = regexp.MustCompile(`(?i)[a-h][1-8][a-h][1-8][qrnb]?`)

// ExtractMove scans free-form text for the first UCI-style move token
// (file-rank-file-rank, optional promotion letter) and returns it lowercased.
// The second return is false when no token is present.
func ExtractMove(text string) (string, bool) {
	m := moveTokenRe.FindString(text)
	if m == "" {
		return "", false
	}
	m = strings.ToLower(m)
	if _, err := ParseSquare(m[0:2]); err != nil {
		return "", false
	}
	if _, err := ParseSquare(m[2:4]); err != nil {
		return "", false
	}
	return m, true
}

// Mapper converts squares to tap points. Mirror mode models a 180-degree
// rotated board view: the control surface toggles it while the poll loop
// converts moves, so the flag sits behind a mutex.
type Mapper struct {
	rect Rect

	mu       sync.Mutex
	mirrored bool
}

// NewMapper validates the calibration rectangle and returns a mapper with
// mirror mode off.
func NewMapper(r Rect) (*Mapper, error) {
	if r.Right <= r.Left || r.Bottom <= r.Top {
		return nil, utils.Newf(utils.CodeInputFormat,
			"board rectangle (%d,%d)-(%d,%d) is degenerate", r.Left, r.Top, r.Right, r.Bottom)
	}
	return &Mapper{rect: r}, nil
}

// Rect returns the calibration rectangle.
func (m *Mapper) Rect() Rect {
	return m.rect
}

// SquareToPoint returns the center of the cell addressed by sq, rounded to
// the nearest pixel. Rank 1 maps to the bottom row. When mirror mode is on,
// the computed point is reflected through the rectangle center on both axes.
func (m *Mapper) SquareToPoint(sq Square) Point {
	r := m.rect
	cellW := float64(r.Right-r.Left) / 8
	cellH := float64(r.Bottom-r.Top) / 8

	x := int(math.Round(float64(r.Left) + (float64(sq.File)+0.5)*cellW))
	y := int(math.Round(float64(r.Top) + (float64(7-sq.Rank)+0.5)*cellH))

	if m.Mirrored() {
		x = r.Left + (r.Right - x)
		y = r.Top + (r.Bottom - y)
	}
	return Point{X: x, Y: y}
}

// MoveToPoints parses a 4- or 5-character move token and converts both
// squares. A trailing promotion letter has no coordinate meaning and is
// ignored.
func (m *Mapper) MoveToPoints(token string) (Move, error) {
	token = strings.ToLower(token)
	if len(token) < 4 {
		return Move{}, utils.Newf(utils.CodeInputFormat, "move token %q too short", token)
	}
	from, err := ParseSquare(token[0:2])
	if err != nil {
		return Move{}, err
	}
	to, err := ParseSquare(token[2:4])
	if err != nil {
		return Move{}, err
	}
	return Move{
		From: m.SquareToPoint(from),
		To:   m.SquareToPoint(to),
	}, nil
}

// Contains reports whether p lies within the board rectangle, bounds
// inclusive. Used as a guard before dispatch.
func (m *Mapper) Contains(p Point) bool {
	r := m.rect
	return p.X >= r.Left && p.X <= r.Right && p.Y >= r.Top && p.Y <= r.Bottom
}

// ToggleMirror flips mirror mode and returns the new state.
func (m *Mapper) ToggleMirror() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mirrored = !m.mirrored
	return m.mirrored
}

// Mirrored reports whether mirror mode is active.
func (m *Mapper) Mirrored() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mirrored
}
