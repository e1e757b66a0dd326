package nanocom

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/allbin/nanocom/internal/console"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// Console errors recognised by the transmit loop. A Console implementation
// reports a local interrupt by returning an error matching ErrInterrupted
// and an unblocked read by returning one matching ErrReadCanceled.
var (
	ErrInterrupted  = console.ErrInterrupted
	ErrReadCanceled = console.ErrCanceled
)

// Transport is the byte stream to the remote device
type Transport interface {
	// Read blocks until at least one byte is available
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	// InWaiting is a non-blocking hint of how many bytes Read can return
	InWaiting() (int, error)
	// CancelRead makes a concurrently blocked Read return
	CancelRead() error
	Close() error
}

// Console is the local terminal
type Console interface {
	Setup() error
	GetKey() (rune, error)
	WriteBytes(data []byte) error
	CancelPendingRead() error
}

// State is the lifecycle stage of a Bridge
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Bridge forwards keys from a Console to a Transport and bytes from the
// Transport back to the Console, each direction in its own goroutine.
type Bridge struct {
	transport Transport
	console   Console
	config    Config
	log       logrus.FieldLogger

	alive   atomic.Bool
	state   atomic.Int32
	started atomic.Bool

	// Receive side, used by the receive loop only. Received bytes always
	// pass through the incremental decoder; rxOut is where the raw bytes go
	// and is nil when the decoder output itself is written to the console.
	rxOut     io.Writer
	rxDecoder io.Writer
	rxText    *decodeStats
	// Used by the transmit loop only
	encoder *encoding.Encoder

	stopOnce sync.Once
	stopped  chan struct{}
	rxDone   chan struct{}
	txDone   chan struct{}

	cancelConsole   sync.Once
	cancelTransport sync.Once

	errMu sync.Mutex
	errs  []error
}

// New returns a Bridge in the Created state.
func New(transport Transport, con Console, opts ...Option) (*Bridge, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	b := &Bridge{
		transport: transport,
		console:   con,
		config:    config,
		log:       config.Logger,
		encoder:   encoding.ReplaceUnsupported(config.Encoding.NewEncoder()),
		stopped:   make(chan struct{}),
		rxDone:    make(chan struct{}),
		txDone:    make(chan struct{}),
	}

	b.rxText = &decodeStats{}
	if config.Transcode {
		b.rxDecoder = transform.NewWriter(io.MultiWriter(consoleWriter{con}, b.rxText), config.Encoding.NewDecoder())
	} else {
		b.rxOut = consoleWriter{con}
		b.rxDecoder = transform.NewWriter(b.rxText, config.Encoding.NewDecoder())
	}

	return b, nil
}

// Start launches both loops and then switches the console to raw mode, so
// the transmit loop is already waiting when the first raw key arrives.
//
// If raw mode cannot be entered the bridge stops itself and the error is
// returned; Join must still be called.
func (b *Bridge) Start() error {
	if !b.state.CompareAndSwap(int32(StateCreated), int32(StateRunning)) {
		return ErrAlreadyStarted
	}
	b.started.Store(true)
	b.alive.Store(true)

	go b.receive()
	go b.transmit()

	if err := b.console.Setup(); err != nil {
		b.Stop()
		b.cancelConsoleRead()
		return err
	}

	b.log.Debug("bridge started")
	return nil
}

// Stop asks both loops to finish. It is idempotent and safe to call from
// any goroutine, including the loops themselves.
func (b *Bridge) Stop() {
	b.alive.Store(false)
	b.stopOnce.Do(func() { close(b.stopped) })

	if !b.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		b.state.CompareAndSwap(int32(StateCreated), int32(StateStopped))
	}
}

// Alive reports whether the loops are still meant to run.
func (b *Bridge) Alive() bool {
	return b.alive.Load()
}

// State returns the current lifecycle stage.
func (b *Bridge) State() State {
	return State(b.state.Load())
}

// Join waits for the transmit loop, cancels the pending transport read so
// the receive loop can observe shutdown, then waits for the receive loop.
// It returns the errors that ended the loops, if any.
func (b *Bridge) Join() error {
	if !b.started.Load() {
		b.Stop()
		return nil
	}

	select {
	case <-b.txDone:
	case <-b.stopped:
		// Stopped from outside the transmit loop, which may still be
		// blocked waiting for a key.
		select {
		case <-b.txDone:
		default:
			b.cancelConsoleRead()
			<-b.txDone
		}
	}

	b.cancelTransportRead()
	<-b.rxDone

	b.state.Store(int32(StateStopped))
	b.log.Debug("bridge joined")
	return b.err()
}

// Close closes the transport. Join must have returned first.
func (b *Bridge) Close() error {
	if b.State() != StateStopped {
		return ErrNotJoined
	}
	return b.transport.Close()
}

func (b *Bridge) receive() {
	defer close(b.rxDone)
	b.log.Debug("receive loop running")

	buf := make([]byte, b.config.ReadSize)
	for b.alive.Load() {
		size := 1
		if n, err := b.transport.InWaiting(); err == nil && n > 1 {
			size = min(n, len(buf))
		}

		n, err := b.transport.Read(buf[:size])
		if err != nil {
			if !b.alive.Load() {
				return
			}
			b.fail("serial read", err)
			b.cancelConsoleRead()
			return
		}
		if n == 0 {
			continue
		}

		if b.rxOut != nil {
			if _, err := b.rxOut.Write(buf[:n]); err != nil {
				b.fail("console write", err)
				b.cancelConsoleRead()
				return
			}
		}

		replaced := b.rxText.replaced.Load()
		if _, err := b.rxDecoder.Write(buf[:n]); err != nil {
			b.fail("console write", err)
			b.cancelConsoleRead()
			return
		}
		if b.rxText.replaced.Load() != replaced {
			b.log.WithField("bytes", n).Debug("received bytes invalid in device encoding")
		}
	}
}

func (b *Bridge) transmit() {
	defer close(b.txDone)
	b.log.Debug("transmit loop running")

	for b.alive.Load() {
		key, err := b.console.GetKey()
		switch {
		case err == nil:
		case errors.Is(err, ErrInterrupted):
			key = KeyInterrupt
		case errors.Is(err, ErrReadCanceled):
			continue
		case !b.alive.Load():
			return
		default:
			b.fail("console read", err)
			return
		}

		if !b.alive.Load() {
			return
		}

		if key == b.config.ExitKey {
			b.log.Debug("exit key pressed")
			b.Stop()
			return
		}

		text, ok := b.config.CharMap.Lookup(key)
		if !ok {
			text = string(key)
		}

		data, err := b.encoder.Bytes([]byte(text))
		if err != nil {
			b.fail("encode", err)
			return
		}
		if err := writeAll(b.transport, data); err != nil {
			b.fail("serial write", err)
			return
		}
	}
}

// fail marks the session dead and records err for Join
func (b *Bridge) fail(op string, err error) {
	b.Stop()
	b.log.WithError(err).WithField("op", op).Debug("loop failed")

	b.errMu.Lock()
	defer b.errMu.Unlock()
	b.errs = append(b.errs, fmt.Errorf("%s: %w", op, err))
}

func (b *Bridge) err() error {
	b.errMu.Lock()
	defer b.errMu.Unlock()
	return errors.Join(b.errs...)
}

func (b *Bridge) cancelConsoleRead() {
	b.cancelConsole.Do(func() {
		if err := b.console.CancelPendingRead(); err != nil {
			b.log.WithError(err).Debug("console cancel failed")
		}
	})
}

func (b *Bridge) cancelTransportRead() {
	b.cancelTransport.Do(func() {
		if err := b.transport.CancelRead(); err != nil {
			b.log.WithError(err).Debug("transport cancel failed")
		}
	})
}

func writeAll(w io.Writer, data []byte) error {
	for len(data) > 0 {
		n, err := w.Write(data)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		data = data[n:]
	}
	return nil
}

// decodeStats counts the characters the receive decoder produced
type decodeStats struct {
	runes    atomic.Int64
	replaced atomic.Int64
}

func (d *decodeStats) Write(p []byte) (int, error) {
	for rest := p; len(rest) > 0; {
		r, size := utf8.DecodeRune(rest)
		d.runes.Add(1)
		if r == utf8.RuneError {
			d.replaced.Add(1)
		}
		rest = rest[size:]
	}
	return len(p), nil
}

// consoleWriter adapts Console to io.Writer for the decoder
type consoleWriter struct {
	c Console
}

func (w consoleWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := w.c.WriteBytes(p); err != nil {
		return 0, err
	}
	return len(p), nil
}
