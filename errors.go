package newline

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrInterrupted can be returned (or wrapped) by a Source to signal that Fill was interrupted
// before any data arrived and should be retried.
var ErrInterrupted = errors.New("newline: fill interrupted")

func isInterrupted(err error) bool {
	return errors.Is(err, ErrInterrupted) || errors.Is(err, syscall.EINTR)
}

// DecodeError is returned when a line's bytes are not valid text in the configured encoding
type DecodeError struct {
	Line []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("newline: cannot decode %d byte line: %v", len(e.Line), e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
