package ui

import (
	"fmt"
	"io"
	"sync"
)

// Console is the shared, serialized terminal output.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	Styles Styles
	Width  int
}

// NewConsole creates a console writing to out.
func NewConsole(out io.Writer, styles Styles, width int) *Console {
	if width <= 0 {
		width = 80
	}
	return &Console{out: out, Styles: styles, Width: width}
}

// Print writes s as is.
func (c *Console) Print(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, s)
}

// Println writes s followed by a newline.
func (c *Console) Println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, s)
}
