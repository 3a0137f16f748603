package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrOpen is returned when the shared object cannot be opened
	ErrOpen = errors.New("failed to open module")

	// ErrSymbolNotFound is returned when the entry symbol is missing
	ErrSymbolNotFound = errors.New("entry symbol not found")

	// ErrSymbolType is returned when the entry symbol has the wrong type
	ErrSymbolType = errors.New("entry symbol has unexpected type")

	// ErrNilModule is returned when the entry point yields no module
	ErrNilModule = errors.New("entry point returned nil module")
)

// Op names the loading step that failed
type Op string

const (
	OpOpen   Op = "open"
	OpLookup Op = "lookup"
	OpSymbol Op = "symbol"
	OpEntry  Op = "entry"
)

// LoadError reports a module that could not be loaded
type LoadError struct {
	Location string
	Op       Op
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s: %v", e.Location, e.Op, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func newLoadError(location string, op Op, sentinel error, cause error) *LoadError {
	err := sentinel
	if cause != nil {
		err = fmt.Errorf("%w: %v", sentinel, cause)
	}
	return &LoadError{Location: location, Op: op, Err: err}
}
