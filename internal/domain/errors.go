package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration signals a missing, stale or inconsistent deployment.
	// The operator has to fix it; retrying never helps.
	ErrConfiguration = errors.New("configuration error")
	// ErrUsage signals API misuse by the caller.
	ErrUsage = errors.New("usage error")
	// ErrParse signals an unbalanced or malformed boolean query.
	ErrParse = errors.New("parse error")
	// ErrResponse signals a malformed or impossible daemon response.
	ErrResponse = errors.New("response error")
	// ErrTransient signals a transport failure expected to clear on retry.
	ErrTransient = errors.New("transient daemon error")
	// ErrDaemon signals an error reported by the daemon itself (bad query syntax, stale index).
	ErrDaemon = errors.New("daemon error")
	// ErrRecordNotFound signals that the record store has no record for a matched id.
	ErrRecordNotFound = errors.New("record not found")
	// ErrNotRun signals a result accessor called before the search ran.
	ErrNotRun = fmt.Errorf("%w: search has not been run", ErrUsage)
)

// Kind classifies an error for retry and reporting decisions.
type Kind int

// Error kinds.
const (
	KindUnknown Kind = iota
	KindConfiguration
	KindUsage
	KindParse
	KindResponse
	KindTransient
	KindDaemon
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindUsage:
		return "usage"
	case KindParse:
		return "parse"
	case KindResponse:
		return "response"
	case KindTransient:
		return "transient"
	case KindDaemon:
		return "daemon"
	default:
		return "unknown"
	}
}

// Retryable reports whether an error of this kind may succeed on a later attempt.
func (k Kind) Retryable() bool { return k == KindTransient }

// KindOf classifies err. Configuration wins over the other kinds because a
// stale index is reported by the daemon but must reach the operator as such.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrUsage):
		return KindUsage
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrResponse):
		return KindResponse
	case errors.Is(err, ErrTransient):
		return KindTransient
	case errors.Is(err, ErrDaemon):
		return KindDaemon
	default:
		return KindUnknown
	}
}

// Usagef builds an ErrUsage with a formatted message.
func Usagef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

// Configurationf builds an ErrConfiguration with a formatted message.
func Configurationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Responsef builds an ErrResponse with a formatted message.
func Responsef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrResponse, fmt.Sprintf(format, args...))
}
