// Package embedding defines the embedding-provider error type shared by
// the concrete providers in its subpackages.
package embedding

import "fmt"

// ProviderError reports a failed or rate-limited embedding call.
type ProviderError struct {
	Provider    string
	Status      string
	RateLimited bool
	Err         error
}

func (e *ProviderError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("embedding: %s provider failed: %s", e.Provider, e.Status)
	}
	return fmt.Sprintf("embedding: %s provider failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
