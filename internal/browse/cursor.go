// Package browse holds the visitor-side navigation state: the gallery grid
// cursor, the open case file and its photo viewer.  All transitions are pure
// and are driven through Reduce.
package browse

// Key is a navigation key as sent by the client.
type Key string

const (
	KeyRight Key = "ArrowRight"
	KeyLeft  Key = "ArrowLeft"
	KeyDown  Key = "ArrowDown"
	KeyUp    Key = "ArrowUp"
	KeyEnter Key = "Enter"
)

// Columns is the grid stride for a viewport width.
func Columns(width int) int {
	switch {
	case width >= 768:
		return 4
	case width >= 640:
		return 3
	default:
		return 2
	}
}

// NoFocus is the cursor index when no cell is focused.
const NoFocus = -1

// Cursor is the focused grid position.
type Cursor struct {
	Index int `json:"index"`
}

// NewCursor returns an unfocused cursor.
func NewCursor() Cursor { return Cursor{Index: NoFocus} }

// Focused reports whether a cell is focused.
func (c Cursor) Focused() bool { return c.Index >= 0 }

// Move applies an arrow key over a list of n cells laid out for the given
// viewport width.  Moves are clamped to [0, n-1]; there is no wraparound.
// Enter and unknown keys leave the cursor where it is.
func (c Cursor) Move(k Key, n, width int) Cursor {
	if n == 0 {
		return c
	}
	cols := Columns(width)
	switch k {
	case KeyRight:
		c.Index = min(c.Index+1, n-1)
	case KeyLeft:
		c.Index = max(c.Index-1, 0)
	case KeyDown:
		c.Index = min(c.Index+cols, n-1)
	case KeyUp:
		c.Index = max(c.Index-cols, 0)
	}
	return c
}

// Focus moves the cursor to a pointer-focused cell.
func (c Cursor) Focus(i, n int) Cursor {
	if i >= 0 && i < n {
		c.Index = i
	}
	return c
}

// Clamp revalidates the cursor after the list changed to n cells.  An index
// that no longer points at a cell is dropped.
func (c Cursor) Clamp(n int) Cursor {
	if c.Index >= n || c.Index < NoFocus {
		c.Index = NoFocus
	}
	return c
}
