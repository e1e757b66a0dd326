/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/allbin/nanocom"
	"github.com/allbin/nanocom/internal/console"
	"github.com/allbin/nanocom/serial"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// interruptWindow is how close together two SIGINTs must arrive to end the
// session. A lone SIGINT is sent to the device as Ctrl-C by the console.
const interruptWindow = time.Second

var errPortRequired = errors.New("--port is required")

// sessionSettings is everything a session needs, validated up front so the
// bridge is never built from bad input
type sessionSettings struct {
	port       string
	portOpts   []serial.Option
	writeMode  serial.WriteMode
	flushInput bool
	exitKey    rune
	bridgeOpts []nanocom.Option
}

// sessionIO is the terminal a session runs on
type sessionIO struct {
	in     *os.File
	out    *os.File
	errOut io.Writer
}

func stdio() sessionIO {
	return sessionIO{in: os.Stdin, out: os.Stdout, errOut: os.Stderr}
}

func loadSessionSettings(cmd *cobra.Command, portPath string) (*sessionSettings, error) {
	if portPath == "" {
		return nil, errPortRequired
	}
	if err := serial.ValidatePortPath(portPath); err != nil {
		return nil, fmt.Errorf("invalid value for --port: %w", err)
	}

	baudRate := viper.GetInt("baudrate")
	if err := serial.WithBaudRate(baudRate)(&serial.Config{}); err != nil {
		return nil, fmt.Errorf("invalid value for --baudrate: %w", err)
	}
	writeMode := serial.WriteModeBuffered
	if viper.GetBool("sync-writes") {
		writeMode = serial.WriteModeSynced
	}
	portOpts := append([]serial.Option{
		serial.WithBaudRate(baudRate),
		serial.WithWriteMode(writeMode),
	}, lineOptions()...)

	exitKey, err := nanocom.DescriptionToKey(viper.GetString("exit-char"))
	if err != nil {
		return nil, fmt.Errorf("invalid value for --exit-char: %w", err)
	}

	charMap, err := nanocom.ParseCharMap(mapEntries(cmd))
	if err != nil {
		return nil, fmt.Errorf("invalid value for --map: %w", err)
	}

	enc, err := lookupEncoding(viper.GetString("encoding"))
	if err != nil {
		return nil, fmt.Errorf("invalid value for --encoding: %w", err)
	}

	readSize := viper.GetInt("read-size")
	if err := nanocom.WithReadSize(readSize)(&nanocom.Config{}); err != nil {
		return nil, fmt.Errorf("invalid value for --read-size: %d: %w", readSize, err)
	}

	return &sessionSettings{
		port:       portPath,
		portOpts:   portOpts,
		writeMode:  writeMode,
		flushInput: viper.GetBool("flush"),
		exitKey:    exitKey,
		bridgeOpts: []nanocom.Option{
			nanocom.WithExitKey(exitKey),
			nanocom.WithCharMap(charMap),
			nanocom.WithEncoding(enc),
			nanocom.WithTranscode(viper.GetBool("transcode")),
			nanocom.WithReadSize(readSize),
			nanocom.WithLogger(log),
		},
	}, nil
}

// lineOptions returns the initial DTR/RTS options for the lines that were
// explicitly configured
func lineOptions() []serial.Option {
	var opts []serial.Option
	if dtr := configuredLine("dtr"); dtr != nil {
		opts = append(opts, serial.WithInitialDTR(*dtr))
	}
	if rts := configuredLine("rts"); rts != nil {
		opts = append(opts, serial.WithInitialRTS(*rts))
	}
	return opts
}

// configuredLine returns the requested state of an output line, or nil when
// it should be left as the driver has it
func configuredLine(key string) *bool {
	if !viper.IsSet(key) {
		return nil
	}
	state := viper.GetBool(key)
	return &state
}

// mapEntries prefers the flag values as given, since viper splits list
// values on commas
func mapEntries(cmd *cobra.Command) []string {
	if flag := cmd.Flags().Lookup("map"); flag != nil && flag.Changed {
		if entries, err := cmd.Flags().GetStringArray("map"); err == nil {
			return entries
		}
	}
	return viper.GetStringSlice("map")
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return unicode.UTF8, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown encoding %q", nanocom.ErrInvalidOption, name)
	}
	if enc == nil {
		return nil, fmt.Errorf("%w: unsupported encoding %q", nanocom.ErrInvalidOption, name)
	}
	return enc, nil
}

// runSession opens the port, bridges it to the terminal until the exit key,
// a signal or an I/O error, and restores the terminal. A transport error
// ends the session normally after being reported.
func runSession(s *sessionSettings, tty sessionIO) error {
	if !term.IsTerminal(int(tty.in.Fd())) {
		return fmt.Errorf("%w: stdin is not a terminal", console.ErrTerminalMode)
	}

	port, err := serial.Open(s.port, s.portOpts...)
	if err != nil {
		return err
	}
	logModemSignals(port)

	if s.flushInput {
		if err := port.FlushInput(); err != nil {
			port.Close()
			return fmt.Errorf("flushing input: %w", err)
		}
	}

	con, err := console.New(tty.in, tty.out)
	if err != nil {
		port.Close()
		return err
	}
	defer con.Close()
	defer con.Cleanup()

	bridge, err := nanocom.New(port, con, s.bridgeOpts...)
	if err != nil {
		port.Close()
		return err
	}
	return driveSession(bridge, port, con, s.exitKey, tty.errOut)
}

// sessionBridge is the lifecycle driveSession needs from a bridge
type sessionBridge interface {
	Start() error
	Stop()
	Join() error
	Close() error
}

type portOutput interface {
	Drain() error
	FlushOutput() error
}

type terminalRestorer interface {
	Cleanup() error
}

// driveSession runs a built bridge to completion. Errors from the session
// itself are reported on errOut and do not fail the command.
func driveSession(bridge sessionBridge, port portOutput, con terminalRestorer, exitKey rune, errOut io.Writer) error {
	// Registered before anything is printed so no signal can kill the
	// process with the terminal in raw mode
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGHUP, os.Interrupt)
	defer signal.Stop(sigs)

	done := make(chan struct{})
	defer close(done)
	go watchSignals(sigs, done, bridge.Stop)

	fmt.Fprintln(errOut, "*** nanocom started ***")
	fmt.Fprintf(errOut, "*** Ctrl+%s to exit ***\n", nanocom.KeyToDescription(exitKey))

	if err := bridge.Start(); err != nil {
		bridge.Join()
		bridge.Close()
		con.Cleanup()
		return err
	}

	sessionErr := bridge.Join()
	finishOutput(port, sessionErr)
	if err := bridge.Close(); err != nil {
		log.WithError(err).Debug("closing port")
	}
	if err := con.Cleanup(); err != nil {
		log.WithError(err).Warn("restoring terminal")
	}

	if sessionErr != nil {
		fmt.Fprintf(errOut, "\nError: %s", strings.ReplaceAll(sessionErr.Error(), "\n", "; "))
	}
	fmt.Fprintln(errOut, "\n*** nanocom exited ***")
	return nil
}

// watchSignals calls stop on SIGTERM, SIGHUP or a second SIGINT within
// interruptWindow of the previous one
func watchSignals(sigs <-chan os.Signal, done <-chan struct{}, stop func()) {
	var lastInterrupt time.Time
	for {
		select {
		case sig := <-sigs:
			if sig == os.Interrupt {
				now := time.Now()
				if lastInterrupt.IsZero() || now.Sub(lastInterrupt) > interruptWindow {
					lastInterrupt = now
					continue
				}
			}
			log.WithField("signal", sig).Debug("stopping session")
			stop()
			return
		case <-done:
			return
		}
	}
}

// finishOutput waits for typed bytes to reach the device after a clean
// session. After a failure the device may never take them, so they are
// discarded instead.
func finishOutput(port portOutput, sessionErr error) {
	var err error
	if sessionErr == nil {
		err = port.Drain()
	} else {
		err = port.FlushOutput()
	}
	if err != nil {
		log.WithError(err).Debug("finishing port output")
	}
}

func logModemSignals(port serial.Port) {
	if !log.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	signals, err := port.GetModemSignals()
	if err != nil {
		log.WithError(err).Debug("reading modem signals")
		return
	}
	log.WithField("signals", fmt.Sprintf("%+v", signals)).Debug("port opened")
}
