package domain

import (
	"errors"
	"fmt"
)

// Error categories. Callers classify with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUpstream     = errors.New("upstream failure")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

type categorized struct {
	kind error
	msg  string
	err  error
}

func (e *categorized) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *categorized) Is(target error) bool { return target == e.kind }

func (e *categorized) Unwrap() error { return e.err }

func NotFoundf(format string, args ...any) error {
	return &categorized{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

func InvalidInputf(format string, args ...any) error {
	return &categorized{kind: ErrInvalidInput, msg: fmt.Sprintf(format, args...)}
}

func Unauthorizedf(format string, args ...any) error {
	return &categorized{kind: ErrUnauthorized, msg: fmt.Sprintf(format, args...)}
}

func Forbiddenf(format string, args ...any) error {
	return &categorized{kind: ErrForbidden, msg: fmt.Sprintf(format, args...)}
}

// Upstream marks a store or bus failure, keeping the cause in the chain.
// Already categorized errors pass through unchanged.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	var c *categorized
	if errors.As(err, &c) {
		return err
	}
	return &categorized{kind: ErrUpstream, msg: op, err: err}
}
