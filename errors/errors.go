package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	// ErrUnrecoverable marks a worker failure the supervisor must not retry.
	ErrUnrecoverable = fmt.Errorf("unrecoverable worker failure")

	ErrDecryption      = fmt.Errorf("payload could not be decrypted")
	ErrMalformedFrame  = fmt.Errorf("malformed frame")
	ErrMalformedBeacon = fmt.Errorf("malformed beacon")
	ErrFrameTooLarge   = fmt.Errorf("frame exceeds maximum size")
	ErrInvalidAddress  = fmt.Errorf("invalid peer address")

	ErrTransport  = fmt.Errorf("transport failure")
	ErrDurability = fmt.Errorf("storage write failure")
)
