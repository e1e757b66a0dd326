// Package console owns the controlling terminal for an interactive session:
// raw mode, single-character reads and unbuffered output.
package console

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"unicode/utf8"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

var (
	// ErrTerminalMode wraps any failure to query or set terminal attributes
	ErrTerminalMode = errors.New("terminal mode error")
	// ErrInterrupted is returned by GetKey when SIGINT arrives during the read
	ErrInterrupted = errors.New("interrupted")
	// ErrCanceled is returned by GetKey after CancelPendingRead
	ErrCanceled = errors.New("console read canceled")
	// ErrClosed is returned once Close has been called
	ErrClosed = errors.New("console is closed")
)

const (
	keyDelete    = 0x7f
	keyBackspace = 0x08

	wakeCancel    byte = 'c'
	wakeInterrupt byte = 'i'
)

// Console mediates all controlling-terminal I/O.
//
// GetKey must only be called from one goroutine at a time. CancelPendingRead,
// WriteBytes, Setup and Cleanup are safe to call from any goroutine.
type Console struct {
	in  *os.File
	out *os.File
	fd  int

	mu     sync.Mutex
	saved  *unix.Termios
	closed bool

	// Self-pipe polled next to the input fd so another goroutine can wake
	// a blocked read. Each byte carries the wake reason.
	wakeR int
	wakeW int

	signals   chan os.Signal
	done      chan struct{}
	closeOnce sync.Once

	pending []byte
	readBuf []byte
}

// New returns a console reading keys from in and writing to out. The
// terminal is left untouched until Setup.
func New(in, out *os.File) (*Console, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return nil, fmt.Errorf("creating wake pipe: %w", err)
	}

	c := &Console{
		in:      in,
		out:     out,
		fd:      int(in.Fd()),
		wakeR:   fds[0],
		wakeW:   fds[1],
		signals: make(chan os.Signal, 1),
		done:    make(chan struct{}),
		readBuf: make([]byte, 64),
	}
	go c.forwardInterrupts()

	return c, nil
}

// NewStdio returns a console bound to the process's stdin and stdout.
func NewStdio() (*Console, error) {
	return New(os.Stdin, os.Stdout)
}

// IsTerminal reports whether the input side is a terminal.
func (c *Console) IsTerminal() bool {
	return term.IsTerminal(c.fd)
}

// Setup captures the current attributes on first use and switches the
// terminal to raw mode: no canonical processing, no echo, no signal
// characters, reads return after one byte with no inter-byte timer.
func (c *Console) Setup() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if c.saved == nil {
		saved, err := unix.IoctlGetTermios(c.fd, unix.TCGETS)
		if err != nil {
			return fmt.Errorf("%w: reading attributes: %v", ErrTerminalMode, err)
		}
		c.saved = saved
	}

	raw := *c.saved
	raw.Lflag &^= unix.ICANON | unix.ECHO | unix.ISIG
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(c.fd, unix.TCSETS, &raw); err != nil {
		return fmt.Errorf("%w: entering raw mode: %v", ErrTerminalMode, err)
	}

	// With ISIG off, SIGINT only arrives from outside the terminal.
	signal.Notify(c.signals, os.Interrupt)
	return nil
}

// Cleanup restores the attributes captured by Setup after pending output
// has drained. It is a no-op if Setup never ran and may be called repeatedly.
func (c *Console) Cleanup() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	signal.Stop(c.signals)

	if c.saved == nil {
		return nil
	}
	if err := unix.IoctlSetTermios(c.fd, unix.TCSETSF, c.saved); err != nil {
		return fmt.Errorf("%w: restoring attributes: %v", ErrTerminalMode, err)
	}
	return nil
}

// GetKey blocks until one character has been read and decoded. DEL is
// reported as backspace. Invalid input bytes decode to utf8.RuneError.
func (c *Console) GetKey() (rune, error) {
	for !utf8.FullRune(c.pending) {
		if err := c.fill(); err != nil {
			return 0, err
		}
	}

	r, size := utf8.DecodeRune(c.pending)
	c.pending = c.pending[size:]

	if r == keyDelete {
		r = keyBackspace
	}
	return r, nil
}

// fill waits for terminal input or a wake byte and appends what it reads
// to the pending buffer.
func (c *Console) fill() error {
	fds := []unix.PollFd{
		{Fd: int32(c.fd), Events: unix.POLLIN},
		{Fd: int32(c.wakeR), Events: unix.POLLIN},
	}

	for {
		if _, err := unix.Poll(fds, -1); err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("polling terminal input: %w", err)
		}

		if fds[1].Revents&unix.POLLIN != 0 {
			if err := c.takeWake(); err != nil {
				return err
			}
		}

		if fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) == 0 {
			continue
		}

		n, err := unix.Read(c.fd, c.readBuf)
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			return fmt.Errorf("reading terminal input: %w", err)
		}
		if n == 0 {
			return io.EOF
		}
		c.pending = append(c.pending, c.readBuf[:n]...)
		return nil
	}
}

// takeWake consumes one wake byte and converts it to the matching error.
func (c *Console) takeWake() error {
	var b [1]byte
	n, err := unix.Read(c.wakeR, b[:])
	if err != nil || n == 0 {
		return nil
	}
	switch b[0] {
	case wakeInterrupt:
		return ErrInterrupted
	default:
		return ErrCanceled
	}
}

func (c *Console) wake(reason byte) error {
	_, err := unix.Write(c.wakeW, []byte{reason})
	if err == unix.EAGAIN {
		// Pipe full, a wake is already pending
		return nil
	}
	return err
}

func (c *Console) forwardInterrupts() {
	for {
		select {
		case <-c.signals:
			c.wake(wakeInterrupt)
		case <-c.done:
			return
		}
	}
}

// WriteBytes writes data to the terminal. The underlying file is not
// buffered, so the bytes are handed to the kernel before WriteBytes returns.
func (c *Console) WriteBytes(data []byte) error {
	if _, err := c.out.Write(data); err != nil {
		return fmt.Errorf("writing to terminal: %w", err)
	}
	return nil
}

// CancelPendingRead makes a GetKey blocked in another goroutine return
// ErrCanceled. If no read is pending, the next GetKey call that has to
// wait for input returns ErrCanceled instead.
func (c *Console) CancelPendingRead() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if err := c.wake(wakeCancel); err != nil {
		return fmt.Errorf("waking console reader: %w", err)
	}
	return nil
}

// Close releases the wake pipe and stops interrupt capture. It does not
// restore the terminal; call Cleanup for that.
func (c *Console) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.closed = true
		signal.Stop(c.signals)
		close(c.done)
		err = errors.Join(unix.Close(c.wakeR), unix.Close(c.wakeW))
	})
	return err
}
