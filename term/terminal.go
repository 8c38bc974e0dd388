// Package term reads raw keyboard input from the controlling terminal and
// decodes it into key events.
package term

import (
	"os"

	"golang.org/x/sys/unix"
)

// Terminal handles raw mode on the controlling terminal.
type Terminal struct {
	fd       int
	original unix.Termios
}

// NewTerminal creates a terminal controller for the given file.
func NewTerminal(f *os.File) (*Terminal, error) {
	fd := int(f.Fd())
	termios, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return nil, err
	}
	return &Terminal{fd: fd, original: *termios}, nil
}

// EnterRawMode puts the terminal into raw mode for direct character input.
func (t *Terminal) EnterRawMode() error {
	raw := t.original
	raw.Iflag &^= unix.BRKINT | unix.ICRNL | unix.INPCK | unix.ISTRIP | unix.IXON
	raw.Cflag |= unix.CS8
	raw.Lflag &^= unix.ECHO | unix.ICANON | unix.IEXTEN | unix.ISIG
	raw.Cc[unix.VMIN] = 0
	raw.Cc[unix.VTIME] = 1
	return unix.IoctlSetTermios(t.fd, ioctlSetTermios, &raw)
}

// RestoreMode restores the original terminal mode.
func (t *Terminal) RestoreMode() error {
	return unix.IoctlSetTermios(t.fd, ioctlSetTermios, &t.original)
}
