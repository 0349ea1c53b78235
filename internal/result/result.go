// Package result defines the outcome of a single tool invocation.
package result

import "fmt"

// Kind classifies a failed invocation.
type Kind string

const (
	KindUnknownTool      Kind = "unknown_tool"
	KindInvalidArguments Kind = "invalid_arguments"
	KindSpawn            Kind = "spawn"
	KindExit             Kind = "exit"
	KindTimeout          Kind = "timeout"
	KindCanceled         Kind = "canceled"
)

// Failure describes why an invocation produced no payload.
type Failure struct {
	Kind    Kind
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Result is either a success carrying the child's output or a failure.
// The zero value is a successful, empty result.
type Result struct {
	Text    string
	Failure *Failure
}

// Success wraps output text.
func Success(text string) Result {
	return Result{Text: text}
}

// Fail builds a failed result.
func Fail(kind Kind, format string, args ...any) Result {
	return Result{Failure: &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}}
}

// OK reports whether the invocation succeeded.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Kind returns the failure kind, or "" on success.
func (r Result) Kind() Kind {
	if r.Failure == nil {
		return ""
	}
	return r.Failure.Kind
}

// Err returns the failure as an error, or nil on success.
func (r Result) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}
