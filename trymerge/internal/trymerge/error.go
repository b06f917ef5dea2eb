package trymerge

import (
	"fmt"

	"github.com/nickng/trymerge/classfile"
	"github.com/pkg/errors"
)

var (
	ErrNoCode = errors.New("method has no code")
)

// MethodError is an error found while analysing the code of Method. The
// method is skipped.
type MethodError struct {
	Method *classfile.Method
	Err    error
}

func (e MethodError) Error() string {
	return fmt.Sprintf("cannot analyse method: %v", e.Err)
}

// Location returns the method in its source file.
func (e MethodError) Location() string {
	if e.Method.Class.SourceFile != "" {
		return fmt.Sprintf("%s (%s)", e.Method, e.Method.Class.SourceFile)
	}
	return e.Method.String()
}

// Cause returns the underlying error.
func (e MethodError) Cause() error { return e.Err }
