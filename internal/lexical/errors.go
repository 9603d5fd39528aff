// File path: internal/lexical/errors.go
package lexical

import "fmt"

// ParseError reports an input that could not be turned into words. Callers
// match it with errors.As to tell bad input apart from internal failures.
type ParseError struct {
	Kind  string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("lexical: invalid %s %q: %v", e.Kind, e.Value, e.Err)
	}
	return fmt.Sprintf("lexical: invalid %s %q", e.Kind, e.Value)
}

func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func parseError(kind, value string, err error) *ParseError {
	return &ParseError{Kind: kind, Value: value, Err: err}
}
