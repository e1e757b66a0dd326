package nanocom

import (
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// Config holds the per-session settings of a Bridge
type Config struct {
	ExitKey  rune
	CharMap  CharMap
	Encoding encoding.Encoding

	// Transcode writes received text to the console decoded from Encoding
	// into UTF-8. By default received bytes are written through unchanged.
	Transcode bool

	// ReadSize caps a single transport read
	ReadSize int

	Logger logrus.FieldLogger
}

// Option is a functional option for configuring a Bridge
type Option func(*Config) error

// DefaultConfig returns the settings used when no options are given
func DefaultConfig() Config {
	return Config{
		ExitKey:  DefaultExitKey,
		Encoding: unicode.UTF8,
		ReadSize: 4096,
		Logger:   discardLogger(),
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// WithExitKey sets the key that ends the session
func WithExitKey(key rune) Option {
	return func(c *Config) error {
		if key < 0 || key > controlMax-controlBase {
			return ErrInvalidExitChar
		}
		c.ExitKey = key
		return nil
	}
}

// WithExitDescription sets the exit key from a letter description, see
// DescriptionToKey
func WithExitDescription(desc string) Option {
	return func(c *Config) error {
		key, err := DescriptionToKey(desc)
		if err != nil {
			return err
		}
		c.ExitKey = key
		return nil
	}
}

// WithCharMap sets the key substitution table. The map is copied.
func WithCharMap(m CharMap) Option {
	return func(c *Config) error {
		if len(m) == 0 {
			c.CharMap = nil
			return nil
		}
		c.CharMap = make(CharMap, len(m))
		for k, v := range m {
			c.CharMap[k] = v
		}
		return nil
	}
}

// WithEncoding sets the character encoding spoken by the remote device
func WithEncoding(enc encoding.Encoding) Option {
	return func(c *Config) error {
		if enc == nil {
			return ErrInvalidOption
		}
		c.Encoding = enc
		return nil
	}
}

// WithTranscode converts received text from the device encoding to UTF-8
// before it reaches the console
func WithTranscode(transcode bool) Option {
	return func(c *Config) error {
		c.Transcode = transcode
		return nil
	}
}

// WithReadSize caps the number of bytes requested per transport read
func WithReadSize(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return ErrInvalidOption
		}
		c.ReadSize = n
		return nil
	}
}

// WithLogger sets the logger used for loop lifecycle and transport errors
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Config) error {
		if l == nil {
			return ErrInvalidOption
		}
		c.Logger = l
		return nil
	}
}
