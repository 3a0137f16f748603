package observability

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// RecoverPanic recovers a panic and logs it with its stack. Use in defer:
//
//	defer observability.RecoverPanic(log, "terminate reverb")
//
// The panic is not re-raised.
func RecoverPanic(logger *logrus.Logger, context string) {
	if r := recover(); r != nil {
		logger.WithFields(logrus.Fields{
			"panic":   fmt.Sprint(r),
			"stack":   string(debug.Stack()),
			"context": context,
		}).Error("PANIC recovered")
	}
}

// ErrPanic marks errors produced from a recovered panic
var ErrPanic = errors.New("panic")

// CallSafely runs fn and converts a panic into an error wrapping ErrPanic
func CallSafely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn()
}
