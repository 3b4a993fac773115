package tui

import (
	"github.com/gdamore/tcell/v2"
)

// Cell represents a single character in the terminal.
type Cell struct {
	Rune  rune
	Style tcell.Style
}

// Buffer acts as an off-screen render target.
type Buffer struct {
	Cells  [][]Cell
	Width  int
	Height int
}

// NewBuffer creates a new buffer of the specified size.
func NewBuffer(width, height int) *Buffer {
	cells := make([][]Cell, height)
	for y := 0; y < height; y++ {
		cells[y] = make([]Cell, width)
		for x := 0; x < width; x++ {
			cells[y][x] = Cell{Rune: ' ', Style: CurrentStyles.Normal}
		}
	}
	return &Buffer{
		Cells:  cells,
		Width:  width,
		Height: height,
	}
}

// ApplyToScreen copies the buffer contents to the screen.
func (b *Buffer) ApplyToScreen(screen tcell.Screen, offsetX, offsetY int) {
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			cell := b.Cells[y][x]
			screen.SetContent(offsetX+x, offsetY+y, cell.Rune, nil, cell.Style)
		}
	}
}

// Set writes a rune to the buffer at the specified coordinates.
func (b *Buffer) Set(x, y int, r rune, style tcell.Style) {
	if x >= 0 && x < b.Width && y >= 0 && y < b.Height {
		b.Cells[y][x] = Cell{Rune: r, Style: style}
	}
}

// DrawString writes a string to the buffer at (x, y).
func (b *Buffer) DrawString(x, y int, s string, style tcell.Style) {
	if y < 0 || y >= b.Height {
		return
	}

	col := x
	for _, r := range s {
		if col >= b.Width {
			break
		}
		if col >= 0 {
			b.Cells[y][col] = Cell{Rune: r, Style: style}
		}
		col++
	}
}

// FillRect fills a rectangle with a specific rune and style.
func (b *Buffer) FillRect(x, y, w, h int, r rune, style tcell.Style) {
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			b.Set(x+j, y+i, r, style)
		}
	}
}

// Text alignment within DrawStringAligned.
const (
	AlignLeft = iota
	AlignCenter
	AlignRight
)

// DrawStringAligned writes s within width columns starting at x, truncating
// it when it does not fit.
func (b *Buffer) DrawStringAligned(x, y, width int, s string, style tcell.Style, align int) {
	if width <= 0 {
		return
	}
	runes := []rune(s)
	spaces := width - len(runes)
	if spaces < 0 {
		runes = runes[:width]
		spaces = 0
	}

	startX := x
	switch align {
	case AlignCenter:
		startX = x + spaces/2
	case AlignRight:
		startX = x + spaces
	}

	b.DrawString(startX, y, string(runes), style)
}
