package domain

import "fmt"

// Rect is a window rectangle in absolute screen coordinates.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Width returns the rectangle width in pixels.
func (r Rect) Width() int { return r.Right - r.Left }

// Height returns the rectangle height in pixels.
func (r Rect) Height() int { return r.Bottom - r.Top }

// IsZero reports whether the rectangle is the zero value.
func (r Rect) IsZero() bool {
	return r.Left == 0 && r.Top == 0 && r.Right == 0 && r.Bottom == 0
}

// Validate checks that the rectangle has positive width and height.
func (r Rect) Validate() error {
	if r.Right <= r.Left {
		return fmt.Errorf("invalid rect: right (%d) must be greater than left (%d)", r.Right, r.Left)
	}
	if r.Bottom <= r.Top {
		return fmt.Errorf("invalid rect: bottom (%d) must be greater than top (%d)", r.Bottom, r.Top)
	}
	return nil
}

// ToRel converts absolute screen coordinates to window-relative coordinates,
// clamped to [0, 1] so input captured outside the window stays in range.
func (r Rect) ToRel(x, y int) (float64, float64) {
	relX := 0.0
	relY := 0.0
	if r.Width() > 0 {
		relX = float64(x-r.Left) / float64(r.Width())
	}
	if r.Height() > 0 {
		relY = float64(y-r.Top) / float64(r.Height())
	}
	return clamp01(relX), clamp01(relY)
}

// ToAbs converts window-relative coordinates back to absolute screen
// coordinates against this rectangle.
func (r Rect) ToAbs(relX, relY float64) (int, int) {
	x := r.Left + int(relX*float64(r.Width()))
	y := r.Top + int(relY*float64(r.Height()))
	return x, y
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
