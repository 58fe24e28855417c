package router

import (
	"errors"
	"fmt"
)

// ErrStopped is returned by Navigate after the navigator stopped.
var ErrStopped = errors.New("navigator stopped")

// ErrorCode categorizes navigation errors.
type ErrorCode string

const (
	// ErrCodeRuleFailed: a rule hook returned an error.
	ErrCodeRuleFailed ErrorCode = "RULE_FAILED"
	// ErrCodeRedirectLimit: a redirect chain exceeded the limit.
	ErrCodeRedirectLimit ErrorCode = "REDIRECT_LIMIT"
)

// NavigationError is the cause of a navigationFailed event.
type NavigationError struct {
	Code  ErrorCode
	Key   string
	Phase string // check, prepare or commit; empty for redirect limits
	Route string
	Rule  string
	Cause error
}

func (e *NavigationError) Error() string {
	switch e.Code {
	case ErrCodeRuleFailed:
		return fmt.Sprintf("%s: %s %s rule %q: %v (key=%s)", e.Code, e.Phase, e.Route, e.Rule, e.Cause, e.Key)
	default:
		return fmt.Sprintf("%s: %v (key=%s)", e.Code, e.Cause, e.Key)
	}
}

func (e *NavigationError) Unwrap() error {
	return e.Cause
}

// IsRuleError reports whether err is a failing rule hook.
func IsRuleError(err error) bool {
	var ne *NavigationError
	return errors.As(err, &ne) && ne.Code == ErrCodeRuleFailed
}

// IsRedirectLimit reports whether err is an exceeded redirect chain.
func IsRedirectLimit(err error) bool {
	var ne *NavigationError
	return errors.As(err, &ne) && ne.Code == ErrCodeRedirectLimit
}
