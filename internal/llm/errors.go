package llm

import (
	"errors"
	"fmt"
)

// ErrServiceUnavailable is wrapped around every provider failure, including deadline expiry.
var ErrServiceUnavailable = errors.New("llm: service unavailable")

// Unavailable tags err as ErrServiceUnavailable while keeping the cause inspectable.
func Unavailable(err error) error {
	if err == nil || errors.Is(err, ErrServiceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
}
