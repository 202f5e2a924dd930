// SPDX-License-Identifier: MIT
package synth

import (
	"errors"
	"fmt"
)

// ErrInvalidParameter reports a non-positive or non-finite parameter. The
// value has already been clamped when this error is returned, so callers on
// the audio thread may count it and carry on.
var ErrInvalidParameter = errors.New("invalid parameter")

// ParamError describes a clamped parameter.
type ParamError struct {
	Param   string
	Value   float64
	Clamped float64
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s %v clamped to %v", ErrInvalidParameter, e.Param, e.Value, e.Clamped)
}

func (e *ParamError) Unwrap() error {
	return ErrInvalidParameter
}
