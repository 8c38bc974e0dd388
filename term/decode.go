package term

import (
	"context"
	"io"
	"os"

	"searchnav/keymap"
)

// escape sequences for keys the navigation cares about.
var sequences = map[string]string{
	"\x1b[A": "ArrowUp",
	"\x1b[B": "ArrowDown",
	"\x1b[C": "ArrowRight",
	"\x1b[D": "ArrowLeft",
}

// Decode turns one raw terminal read into key events. Unrecognized escape
// sequences are dropped whole rather than leaking their bytes as keys.
func Decode(buf []byte) []keymap.KeyEvent {
	var events []keymap.KeyEvent
	for len(buf) > 0 {
		ev, n, ok := decodeOne(buf)
		if n == 0 {
			break
		}
		buf = buf[n:]
		if ok {
			events = append(events, ev)
		}
	}
	return events
}

func decodeOne(buf []byte) (keymap.KeyEvent, int, bool) {
	b := buf[0]

	if b == 0x1b {
		return decodeEscape(buf)
	}

	switch b {
	case '\r', '\n':
		return keymap.KeyEvent{Key: "Enter"}, 1, true
	case ' ':
		return keymap.KeyEvent{Key: " "}, 1, true
	case '\t':
		return keymap.KeyEvent{Key: "Tab"}, 1, true
	case 0x7f:
		return keymap.KeyEvent{Key: "Backspace"}, 1, true
	}

	// Ctrl chords arrive as control bytes: Ctrl+a is 0x01.
	if b < 0x20 {
		return keymap.KeyEvent{Key: string(rune('a' + b - 1)), Ctrl: true}, 1, true
	}

	return printableEvent(b), 1, true
}

func decodeEscape(buf []byte) (keymap.KeyEvent, int, bool) {
	// A lone escape byte is the Escape key.
	if len(buf) == 1 {
		return keymap.KeyEvent{Key: "Escape"}, 1, true
	}

	if buf[1] == '[' {
		// CSI sequence: consume through its final byte (0x40-0x7e).
		for i := 2; i < len(buf); i++ {
			if buf[i] >= 0x40 && buf[i] <= 0x7e {
				seq := string(buf[:i+1])
				if key, ok := sequences[seq]; ok {
					return keymap.KeyEvent{Key: key}, i + 1, true
				}
				return keymap.KeyEvent{}, i + 1, false
			}
		}
		// Incomplete sequence: drop what we have.
		return keymap.KeyEvent{}, len(buf), false
	}

	// Alt chords arrive as ESC followed by the key byte.
	if buf[1] >= 0x20 && buf[1] < 0x7f {
		ev := printableEvent(buf[1])
		ev.Alt = true
		return ev, 2, true
	}
	return keymap.KeyEvent{Key: "Escape"}, 1, true
}

func printableEvent(b byte) keymap.KeyEvent {
	if b >= 'A' && b <= 'Z' {
		return keymap.KeyEvent{Key: string(rune(b)), Shift: true}
	}
	return keymap.KeyEvent{Key: string(rune(b))}
}

// Reader pumps decoded key events from a terminal file.
type Reader struct {
	f      *os.File
	events chan keymap.KeyEvent
}

// NewReader creates a reader over an already-raw terminal.
func NewReader(f *os.File) *Reader {
	return &Reader{f: f, events: make(chan keymap.KeyEvent, 8)}
}

// Events returns the decoded key event stream.
func (r *Reader) Events() <-chan keymap.KeyEvent { return r.events }

// Run reads and decodes until the context is cancelled or the terminal
// read fails. VTIME-driven reads return empty periodically, which is where
// cancellation is observed.
func (r *Reader) Run(ctx context.Context) error {
	buf := make([]byte, 64)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.f.Read(buf)
		if n == 0 {
			// VTIME expiry surfaces as an empty read; keep polling.
			if err == nil || err == io.EOF {
				continue
			}
			return err
		}
		for _, ev := range Decode(buf[:n]) {
			select {
			case r.events <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
