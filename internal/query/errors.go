package query

import (
	"fmt"
)

// ParamError reports a parameter the generic setter could not apply: an
// unknown name or a value that does not parse as the parameter's type.
type ParamError struct {
	Param  string
	Value  string
	Reason string
}

// Error implements the error interface.
func (e *ParamError) Error() string {
	return fmt.Sprintf("%s=%q: %s", e.Param, e.Value, e.Reason)
}
