package exchange

import "fmt"

// Sentinel errors for the small set of failures that carry no
// request-specific detail. Callers can compare with errors.Is.
var (
	// ErrInvariant marks a graph or unit-capacity malformation: a
	// programmer defect in the kernel or its caller, never a user-facing
	// condition.
	ErrInvariant = fmt.Errorf("exchange: invariant violated")
)

// ValueError reports an illegal configuration value, e.g. a schedule
// dated at or before the current time. It is fatal to the call that
// raised it, not necessarily to the simulation.
type ValueError struct {
	Msg string
}

func (e *ValueError) Error() string { return "value error: " + e.Msg }

// NewValueError constructs a ValueError with a formatted message.
func NewValueError(format string, args ...interface{}) *ValueError {
	return &ValueError{Msg: fmt.Sprintf(format, args...)}
}

// KeyError reports a portfolio invariant violation: a mismatched
// requester or quantity on insertion. Fatal to the portfolio, and
// ordinarily fatal to the simulation since it indicates a defect in an
// agent's request-generation logic.
type KeyError struct {
	Msg string
}

func (e *KeyError) Error() string { return "key error: " + e.Msg }

// NewKeyError constructs a KeyError with a formatted message.
func NewKeyError(format string, args ...interface{}) *KeyError {
	return &KeyError{Msg: fmt.Sprintf(format, args...)}
}

// LookupError reports that a converter could not resolve an arc or node
// in the translation context. Fatal to the exchange round in which it
// occurs.
type LookupError struct {
	Msg string
}

func (e *LookupError) Error() string { return "lookup error: " + e.Msg }

// NewLookupError constructs a LookupError with a formatted message.
func NewLookupError(format string, args ...interface{}) *LookupError {
	return &LookupError{Msg: fmt.Sprintf(format, args...)}
}

// InvariantError reports a malformed graph or unit-capacity vector.
// Always a programmer error; the caller should abort rather than
// attempt recovery.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string { return fmt.Sprintf("invariant failure: %s", e.Msg) }

func (e *InvariantError) Unwrap() error { return ErrInvariant }

// NewInvariantError constructs an InvariantError with a formatted message.
func NewInvariantError(format string, args ...interface{}) *InvariantError {
	return &InvariantError{Msg: fmt.Sprintf(format, args...)}
}
