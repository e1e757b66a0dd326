package serial

import "errors"

// Predefined error types for robust error handling
var (
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrDeviceInUse      = errors.New("serial device already in use")
	ErrInvalidBaudRate  = errors.New("invalid baud rate")
	ErrInvalidConfig    = errors.New("invalid serial configuration")
	ErrPortClosed       = errors.New("serial port is closed")

	// ErrReadCanceled is returned by a Read that was unblocked by CancelRead
	ErrReadCanceled = errors.New("serial read canceled")

	// USB-related errors
	ErrUSBInfoNotAvailable = errors.New("USB device information not available")
)
