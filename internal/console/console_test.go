package console

import (
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// newPTYConsole returns a console bound to the slave side of a fresh
// pseudo-terminal together with the master side used to type keys.
func newPTYConsole(t *testing.T) (*os.File, *os.File, *Console) {
	t.Helper()

	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pseudo-terminal not available: %v", err)
	}

	c, err := New(tty, tty)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	t.Cleanup(func() {
		c.Cleanup()
		c.Close()
		ptmx.Close()
		tty.Close()
	})
	return ptmx, tty, c
}

func getTermios(t *testing.T, f *os.File) unix.Termios {
	t.Helper()
	termios, err := unix.IoctlGetTermios(int(f.Fd()), unix.TCGETS)
	if err != nil {
		t.Fatalf("IoctlGetTermios failed: %v", err)
	}
	return *termios
}

type keyResult struct {
	key rune
	err error
}

func getKeyAsync(c *Console) <-chan keyResult {
	ch := make(chan keyResult, 1)
	go func() {
		key, err := c.GetKey()
		ch <- keyResult{key, err}
	}()
	return ch
}

func waitKey(t *testing.T, ch <-chan keyResult) keyResult {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("GetKey did not return")
		return keyResult{}
	}
}

func TestIsTerminal(t *testing.T) {
	_, _, c := newPTYConsole(t)
	if !c.IsTerminal() {
		t.Error("Expected pty slave to be reported as a terminal")
	}
}

func TestSetupAppliesRawMode(t *testing.T) {
	_, tty, c := newPTYConsole(t)

	if err := c.Setup(); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	raw := getTermios(t, tty)
	for _, flag := range []struct {
		name string
		bit  uint32
	}{
		{"ICANON", unix.ICANON},
		{"ECHO", unix.ECHO},
		{"ISIG", unix.ISIG},
	} {
		if raw.Lflag&flag.bit != 0 {
			t.Errorf("Expected %s to be cleared in raw mode", flag.name)
		}
	}
	if raw.Cc[unix.VMIN] != 1 {
		t.Errorf("Expected VMIN 1, got %d", raw.Cc[unix.VMIN])
	}
	if raw.Cc[unix.VTIME] != 0 {
		t.Errorf("Expected VTIME 0, got %d", raw.Cc[unix.VTIME])
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	_, tty, c := newPTYConsole(t)
	before := getTermios(t, tty)

	if err := c.Setup(); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	// A second setup must not overwrite the snapshot with raw attributes
	if err := c.Setup(); err != nil {
		t.Fatalf("Second Setup failed: %v", err)
	}

	if err := c.Cleanup(); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if err := c.Cleanup(); err != nil {
		t.Fatalf("Second Cleanup failed: %v", err)
	}

	after := getTermios(t, tty)
	if before != after {
		t.Errorf("Expected attributes to match the pre-setup snapshot\nbefore: %+v\nafter:  %+v", before, after)
	}
}

func TestCleanupWithoutSetup(t *testing.T) {
	_, _, c := newPTYConsole(t)
	if err := c.Cleanup(); err != nil {
		t.Errorf("Expected Cleanup without Setup to succeed, got %v", err)
	}
}

func TestSetupOnNonTerminal(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe failed: %v", err)
	}
	defer r.Close()
	defer w.Close()

	c, err := New(r, w)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	if c.IsTerminal() {
		t.Error("Expected pipe not to be reported as a terminal")
	}
	if err := c.Setup(); !errors.Is(err, ErrTerminalMode) {
		t.Errorf("Expected ErrTerminalMode, got %v", err)
	}
}

func TestGetKeyBackspaceNormalization(t *testing.T) {
	ptmx, _, c := newPTYConsole(t)
	if err := c.Setup(); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	if _, err := ptmx.Write([]byte{0x7f, 'a'}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	res := waitKey(t, getKeyAsync(c))
	if res.err != nil {
		t.Fatalf("GetKey failed: %v", res.err)
	}
	if res.key != 0x08 {
		t.Errorf("Expected 0x08, got %#x", res.key)
	}

	res = waitKey(t, getKeyAsync(c))
	if res.err != nil || res.key != 'a' {
		t.Errorf("Expected 'a', got %q (err %v)", res.key, res.err)
	}
}

func TestGetKeyControlCharactersPassThrough(t *testing.T) {
	ptmx, _, c := newPTYConsole(t)
	if err := c.Setup(); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	// Ctrl-C and Ctrl-] must arrive as data once ISIG is off
	if _, err := ptmx.Write([]byte{0x03, 0x1d}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	for _, want := range []rune{0x03, 0x1d} {
		res := waitKey(t, getKeyAsync(c))
		if res.err != nil {
			t.Fatalf("GetKey failed: %v", res.err)
		}
		if res.key != want {
			t.Errorf("Expected %#x, got %#x", want, res.key)
		}
	}
}

func TestGetKeyMultiByte(t *testing.T) {
	ptmx, _, c := newPTYConsole(t)
	if err := c.Setup(); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	euro := []byte("€")
	if _, err := ptmx.Write(euro[:1]); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	ch := getKeyAsync(c)
	select {
	case res := <-ch:
		t.Fatalf("GetKey returned early with %q (err %v)", res.key, res.err)
	case <-time.After(50 * time.Millisecond):
	}

	if _, err := ptmx.Write(euro[1:]); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	res := waitKey(t, ch)
	if res.err != nil {
		t.Fatalf("GetKey failed: %v", res.err)
	}
	if res.key != '€' {
		t.Errorf("Expected '€', got %q", res.key)
	}
}

func TestCancelPendingRead(t *testing.T) {
	_, _, c := newPTYConsole(t)
	if err := c.Setup(); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	ch := getKeyAsync(c)
	time.Sleep(50 * time.Millisecond)

	if err := c.CancelPendingRead(); err != nil {
		t.Fatalf("CancelPendingRead failed: %v", err)
	}

	res := waitKey(t, ch)
	if !errors.Is(res.err, ErrCanceled) {
		t.Errorf("Expected ErrCanceled, got key %q err %v", res.key, res.err)
	}
}

func TestCancelBeforeRead(t *testing.T) {
	_, _, c := newPTYConsole(t)

	if err := c.CancelPendingRead(); err != nil {
		t.Fatalf("CancelPendingRead failed: %v", err)
	}

	res := waitKey(t, getKeyAsync(c))
	if !errors.Is(res.err, ErrCanceled) {
		t.Errorf("Expected ErrCanceled, got key %q err %v", res.key, res.err)
	}
}

func TestInterruptDuringRead(t *testing.T) {
	ptmx, _, c := newPTYConsole(t)
	if err := c.Setup(); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	ch := getKeyAsync(c)
	time.Sleep(50 * time.Millisecond)

	if err := syscall.Kill(os.Getpid(), syscall.SIGINT); err != nil {
		t.Fatalf("Kill failed: %v", err)
	}

	res := waitKey(t, ch)
	if !errors.Is(res.err, ErrInterrupted) {
		t.Fatalf("Expected ErrInterrupted, got key %q err %v", res.key, res.err)
	}

	// The console stays usable after an interrupt
	if _, err := ptmx.Write([]byte("z")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	res = waitKey(t, getKeyAsync(c))
	if res.err != nil || res.key != 'z' {
		t.Errorf("Expected 'z', got %q (err %v)", res.key, res.err)
	}
}

func TestWriteBytes(t *testing.T) {
	ptmx, _, c := newPTYConsole(t)
	if err := c.Setup(); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	if err := c.WriteBytes([]byte("hi")); err != nil {
		t.Fatalf("WriteBytes failed: %v", err)
	}

	got := make([]byte, 0, 2)
	buf := make([]byte, 8)
	for len(got) < 2 {
		n, err := ptmx.Read(buf)
		if err != nil {
			t.Fatalf("Read from pty master failed: %v", err)
		}
		got = append(got, buf[:n]...)
	}
	if string(got) != "hi" {
		t.Errorf("Expected %q, got %q", "hi", got)
	}
}

func TestClosedConsole(t *testing.T) {
	_, _, c := newPTYConsole(t)

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
	if err := c.Setup(); err != ErrClosed {
		t.Errorf("Setup: expected ErrClosed, got %v", err)
	}
	if err := c.CancelPendingRead(); err != ErrClosed {
		t.Errorf("CancelPendingRead: expected ErrClosed, got %v", err)
	}
}
