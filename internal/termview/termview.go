// Package termview provides the client's scoped terminal guard: entering
// raw mode and the alternate screen buffer on acquisition, and releasing
// both on every exit path. Adapted from the teacher's raw-mode handling in
// internal/cmd/cc/main.go (term.MakeRaw/term.Restore guarded by
// term.IsTerminal, released via defer), trimmed of the VT100 emulator
// (internal/term/terminal.go) that this service has no use for — snapshot
// rendering here is a plain redraw of formatted text, not a guest console.
package termview

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"
)

// Guard owns the raw-mode/alt-screen acquisition for one client session.
type Guard struct {
	fd       int
	oldState *term.State
	out      io.Writer
	active   bool
}

// Acquire enters raw mode and the alternate screen buffer if stdin is a
// terminal; if it isn't (e.g. piped input in a test harness), Acquire
// returns a no-op Guard so callers don't need to special-case headless runs.
func Acquire(out io.Writer) (*Guard, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return &Guard{out: out}, nil
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("termview: enable raw mode: %w", err)
	}

	fmt.Fprint(out, ansi.SetAltScreenBufferMode)
	return &Guard{fd: fd, oldState: oldState, out: out, active: true}, nil
}

// Release restores the terminal to its pre-Acquire state. Safe to call
// multiple times and on a no-op Guard.
func (g *Guard) Release() {
	if g == nil || !g.active {
		return
	}
	fmt.Fprint(g.out, ansi.ResetAltScreenBufferMode)
	_ = term.Restore(g.fd, g.oldState)
	g.active = false
}

// Redraw clears the screen and homes the cursor before writing a new
// snapshot frame, the way a scoped alt-screen view redraws each tick. On a
// no-op Guard (stdin wasn't a terminal at Acquire) it just writes the frame
// plain, without escape sequences.
func (g *Guard) Redraw(frame string) {
	if g == nil {
		return
	}
	if !g.active {
		fmt.Fprint(g.out, frame)
		return
	}
	fmt.Fprint(g.out, ansi.EraseEntireScreen, ansi.CursorHomePosition)
	fmt.Fprint(g.out, frame)
}
