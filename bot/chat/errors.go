package chat

import "errors"

var (
	ErrRetrieverNotReady = errors.New("retriever not ready")
	ErrMarkerNotFound    = errors.New("completion marker not found")
	ErrMarkerMalformed   = errors.New("completion marker malformed")
	ErrGenerationFailed  = errors.New("reply generation failed")
)
