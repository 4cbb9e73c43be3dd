package claimsearch

import "github.com/truongngoctrac/claims-search/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation        = domain.ErrValidation
	ErrUpstream          = domain.ErrUpstream
	ErrConfiguration     = domain.ErrConfiguration
	ErrData              = domain.ErrData
	ErrModelNotFound     = domain.ErrModelNotFound
	ErrModelExists       = domain.ErrModelExists
	ErrActiveModelDelete = domain.ErrActiveModelDelete
	ErrNoActiveModel     = domain.ErrNoActiveModel
	ErrTestCaseNotFound  = domain.ErrTestCaseNotFound
	ErrUnknownFacetType  = domain.ErrUnknownFacetType
	ErrUnknownLanguage   = domain.ErrUnknownLanguage
)
