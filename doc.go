// Package nanocom bridges a local terminal to a serial device.
//
// A Bridge runs two goroutines. The transmit loop reads keys from a Console,
// applies the character map and the device encoding, and writes them to the
// Transport. The receive loop reads whatever the Transport has buffered and
// writes the bytes to the Console unchanged, while an incremental decoder
// tracks them as text in the device encoding. With WithTranscode the decoded
// text is written instead, so multi-byte characters split across reads are
// printed once complete.
//
//	port, err := serial.Open("/dev/ttyUSB0", serial.WithBaudRate(115200))
//	if err != nil {
//	    return err
//	}
//	con, err := console.NewStdio()
//	if err != nil {
//	    return err
//	}
//	defer con.Cleanup()
//
//	b, err := nanocom.New(port, con, nanocom.WithExitDescription("]"))
//	if err != nil {
//	    return err
//	}
//	if err := b.Start(); err != nil {
//	    b.Join()
//	    return err
//	}
//	err = b.Join()
//	b.Close()
//
// The session ends when the exit key is typed, when Stop is called, or when
// either side fails. Join always returns once both loops have finished.
package nanocom
