package chunkdex

import "github.com/kailas-cloud/chunkdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrConfig                 = domain.ErrConfig
	ErrValidation             = domain.ErrValidation
	ErrNotFound               = domain.ErrNotFound
	ErrAlreadyExists          = domain.ErrAlreadyExists
	ErrInvalidSchema          = domain.ErrInvalidSchema
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrUnsupportedMethod      = domain.ErrUnsupportedMethod
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)

// ValidationError names the offending request field. Use errors.As() to
// extract it.
type ValidationError = domain.ValidationError
