// Package serial provides serial port access for Linux as used by the nanocom
// terminal.
//
// # Basic Usage
//
// Open a serial port with default configuration (115200 8N1):
//
//	port, err := serial.Open("/dev/ttyUSB0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	n, err := port.Write([]byte("Hello"))
//	buffer := make([]byte, 256)
//	n, err = port.Read(buffer)
//
// Read blocks until at least one byte is available. Another goroutine can
// unblock it with CancelRead, after which Read returns ErrReadCanceled.
// InWaiting reports how many bytes can be read without blocking.
//
// # Configuration Options
//
//	port, err := serial.Open("/dev/ttyUSB0",
//	    serial.WithBaudRate(9600),
//	    serial.WithParity(serial.ParityEven),
//	    serial.WithInitialDTR(true),
//	)
//
// # Port Discovery
//
//	ports, err := serial.ListPorts()
//	for _, portPath := range ports {
//	    info, _ := serial.GetPortInfo(portPath)
//	    fmt.Printf("%s: %s\n", info.Path, info.Description)
//	}
//
// # Error Handling
//
// Use errors.Is() against the exported Err* values:
//
//	if errors.Is(err, serial.ErrDeviceNotFound) {
//	    // Handle missing device
//	}
package serial
