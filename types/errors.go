package types

import "fmt"

// All three error kinds are fatal: the distributed run is aborted as soon as
// any rank surfaces one. They carry enough context (parameter name, element
// index, offending value) to diagnose without re-running.

// ConfigurationError reports an invalid or unsupported parameter value, e.g.
// an unknown weighting type or an impossible partition request.
type ConfigurationError struct {
	Param string
	Value interface{}
	Msg   string
}

func (e *ConfigurationError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("configuration error: %s", e.Msg)
	}
	return fmt.Sprintf("configuration error: %s = %v: %s", e.Param, e.Value, e.Msg)
}

// NumericalError reports an intermediate value that violates a mathematical
// precondition (negative base under a fractional power, negative value under
// a square root, zero normalization constant, zero weight before reciprocal).
type NumericalError struct {
	Element int
	Value   float64
	Msg     string
}

func (e *NumericalError) Error() string {
	if e.Element < 0 {
		return fmt.Sprintf("numerical error: %s (value %g)", e.Msg, e.Value)
	}
	return fmt.Sprintf("numerical error: element %d: %s (value %g)", e.Element, e.Msg, e.Value)
}

// NotFoundError reports that no data footprint covers an element during
// sensitivity-below-data weighting.
type NotFoundError struct {
	Element int
	Msg     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: element %d: %s", e.Element, e.Msg)
}
