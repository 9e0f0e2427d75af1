package unisearch

import (
	"github.com/kailas-cloud/unisearch/internal/domain"
	searchuc "github.com/kailas-cloud/unisearch/internal/usecase/search"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrConfiguration  = domain.ErrConfiguration
	ErrUsage          = domain.ErrUsage
	ErrParse          = domain.ErrParse
	ErrResponse       = domain.ErrResponse
	ErrTransient      = domain.ErrTransient
	ErrDaemon         = domain.ErrDaemon
	ErrRecordNotFound = domain.ErrRecordNotFound
	ErrNotRun         = domain.ErrNotRun
)

// RetryError is returned when the daemon kept failing after every restart.
type RetryError = searchuc.RetryError

// Kind classifies an error: fix the input, fix the deployment, or retry later.
type Kind = domain.Kind

// Error kinds.
const (
	KindUnknown       = domain.KindUnknown
	KindConfiguration = domain.KindConfiguration
	KindUsage         = domain.KindUsage
	KindParse         = domain.KindParse
	KindResponse      = domain.KindResponse
	KindTransient     = domain.KindTransient
	KindDaemon        = domain.KindDaemon
)

// KindOf classifies err.
func KindOf(err error) Kind { return domain.KindOf(err) }
