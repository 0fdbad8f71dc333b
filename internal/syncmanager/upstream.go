package syncmanager

import "fmt"

// RateLimited is returned by a HistoryFetcher (or surfaced from deeper
// in the sync loop) when the upstream asks the caller to back off for
// a specific duration before retrying.
type RateLimited struct {
	WaitSeconds int
}

func (e *RateLimited) Error() string {
	return fmt.Sprintf("upstream rate limit: wait %ds", e.WaitSeconds)
}

// UpstreamErrorKind classifies a non-rate-limit upstream failure.
type UpstreamErrorKind string

const (
	// KindPermissionDenied covers channel-private / admin-required
	// failures: not retryable, the chat sync is marked failed outright.
	KindPermissionDenied UpstreamErrorKind = "permission_denied"
	// KindTransient covers any other per-message or per-request
	// failure: retryable up to max_retries.
	KindTransient UpstreamErrorKind = "transient"
)

// UpstreamError wraps a classified upstream failure.
type UpstreamError struct {
	Kind   UpstreamErrorKind
	Detail string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error (%s): %s", e.Kind, e.Detail)
}
