package propora

import (
	"errors"
	"fmt"
)

// ErrCredentialsMissing means no usable API key/secret could be assembled
// from the secrets store or the environment. Fatal; surfaced to the caller.
var ErrCredentialsMissing = errors.New("propora: api credentials missing from secrets store and environment")

// ErrPageLimitExceeded means a paginated fetch walked past the hard page
// ceiling without terminating. The provider is misreporting totals.
var ErrPageLimitExceeded = errors.New("propora: page limit exceeded")

// AuthError means the token endpoint rejected the credentials or was
// unreachable. It carries the provider's error body when one was returned.
type AuthError struct {
	StatusCode   int
	ProviderBody string
	Err          error
}

func (e *AuthError) Error() string {
	if e.ProviderBody != "" {
		return fmt.Sprintf("propora auth failed (%d): %s", e.StatusCode, e.ProviderBody)
	}
	if e.Err != nil {
		return fmt.Sprintf("propora auth failed: %v", e.Err)
	}
	return fmt.Sprintf("propora auth failed (%d)", e.StatusCode)
}

func (e *AuthError) Unwrap() error { return e.Err }
