package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	Window3M  TrendWindow = 3
	Window6M  TrendWindow = 6
	Window12M TrendWindow = 12
)

const (
	Improving Direction = iota + 1
	Declining
)

const (
	MovementNone Movement = iota // first point of a window
	MovementUp
	MovementDown
	MovementFlat
)

type (
	// TrendWindow is the number of trailing periods a trend covers.
	TrendWindow int

	Direction int

	// Movement is a point's change against the point just before it.
	Movement int

	HistoricalScorePoint struct {
		PeriodLabel string
		Score       int
	}

	// ScoreHistory is an append-only, chronological log of scores.
	ScoreHistory struct {
		points []HistoricalScorePoint
	}

	TrendPoint struct {
		HistoricalScorePoint
		Movement Movement
	}

	Trend struct {
		Window        TrendWindow
		Points        []TrendPoint
		Delta         int
		PercentChange float64
		Direction     Direction
	}
)

// Windows lists the supported windows, shortest first.
func Windows() []TrendWindow {
	return []TrendWindow{Window3M, Window6M, Window12M}
}

// ParseTrendWindow accepts "3M", "6M", "12M", "1Y" or a bare month count.
func ParseTrendWindow(v string) (TrendWindow, error) {
	s := strings.ToUpper(strings.TrimSpace(v))
	switch s {
	case "1Y":
		return Window12M, nil
	}
	s = strings.TrimSuffix(s, "M")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse window %q: %w", v, ErrInvalidWindow)
	}
	w := TrendWindow(n)
	if !w.Valid() {
		return 0, fmt.Errorf("parse window %q: %w", v, ErrInvalidWindow)
	}
	return w, nil
}

func (w TrendWindow) Valid() bool {
	switch w {
	case Window3M, Window6M, Window12M:
		return true
	}
	return false
}

func (w TrendWindow) String() string {
	return fmt.Sprintf("%dM", int(w))
}

func (w TrendWindow) MarshalText() ([]byte, error) {
	if !w.Valid() {
		return nil, ErrInvalidWindow
	}
	return []byte(w.String()), nil
}

func (d Direction) String() string {
	switch d {
	case Improving:
		return "Improving"
	case Declining:
		return "Declining"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

func (d Direction) MarshalText() ([]byte, error) {
	switch d {
	case Improving, Declining:
		return []byte(d.String()), nil
	}
	return nil, fmt.Errorf("cannot marshal %s", d)
}

func (m Movement) String() string {
	switch m {
	case MovementNone:
		return "none"
	case MovementUp:
		return "up"
	case MovementDown:
		return "down"
	case MovementFlat:
		return "flat"
	}
	return fmt.Sprintf("Movement(%d)", int(m))
}

func (m Movement) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (p HistoricalScorePoint) Validate() error {
	if strings.TrimSpace(p.PeriodLabel) == "" {
		return errors.New("empty period label")
	}
	if p.Score < 0 || p.Score > 100 {
		return fmt.Errorf("score %d: %w", p.Score, ErrInvalidScore)
	}
	return nil
}

// NewScoreHistory builds a log from points given oldest first.
func NewScoreHistory(points ...HistoricalScorePoint) (*ScoreHistory, error) {
	h := &ScoreHistory{}
	for _, p := range points {
		if err := h.Append(p); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Append adds the newest period to the end of the log.
func (h *ScoreHistory) Append(p HistoricalScorePoint) error {
	if err := p.Validate(); err != nil {
		return err
	}
	h.points = append(h.points, p)
	return nil
}

func (h *ScoreHistory) Len() int {
	return len(h.points)
}

// Points returns a copy of the log, oldest first.
func (h *ScoreHistory) Points() []HistoricalScorePoint {
	return append([]HistoricalScorePoint(nil), h.points...)
}

// Last returns the most recent point.
func (h *ScoreHistory) Last() (HistoricalScorePoint, bool) {
	if len(h.points) == 0 {
		return HistoricalScorePoint{}, false
	}
	return h.points[len(h.points)-1], true
}

// Aggregate computes the trend over the trailing window of points. Falling
// back to a shorter series when history is short is left to the caller.
func Aggregate(points []HistoricalScorePoint, window TrendWindow) (Trend, error) {
	if !window.Valid() {
		return Trend{}, fmt.Errorf("window %d: %w", int(window), ErrInvalidWindow)
	}
	n := int(window)
	if len(points) < n {
		return Trend{}, fmt.Errorf("window %s needs %d points, have %d: %w", window, n, len(points), ErrInsufficientHistory)
	}
	selected := points[len(points)-n:]

	t := Trend{Window: window, Points: make([]TrendPoint, n)}
	for i, p := range selected {
		tp := TrendPoint{HistoricalScorePoint: p}
		if i > 0 {
			prev := selected[i-1].Score
			switch {
			case p.Score > prev:
				tp.Movement = MovementUp
			case p.Score < prev:
				tp.Movement = MovementDown
			default:
				tp.Movement = MovementFlat
			}
		}
		t.Points[i] = tp
	}

	first, last := selected[0].Score, selected[n-1].Score
	t.Delta = last - first
	if first != 0 {
		t.PercentChange = float64(t.Delta) / float64(first) * 100
	}
	t.Direction = Improving
	if t.Delta < 0 {
		t.Direction = Declining
	}
	return t, nil
}

// Trend aggregates the log over the given window.
func (h *ScoreHistory) Trend(window TrendWindow) (Trend, error) {
	return Aggregate(h.points, window)
}
