package google

import (
	"errors"
	"fmt"
)

// CredentialError reports that Gmail credentials could not be obtained: a
// key or token file is missing or malformed, or the token endpoint rejected a
// refresh. It is the only retrieval error that halts the caller.
type CredentialError struct {
	Op   string
	Path string
	Err  error
}

func (e *CredentialError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("credentials: %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("credentials: %s: %v", e.Op, e.Err)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

// IsCredentialError reports whether err wraps a *CredentialError.
func IsCredentialError(err error) bool {
	var ce *CredentialError
	return errors.As(err, &ce)
}
