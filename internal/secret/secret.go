// Package secret resolves named secrets from the process environment.
//
// Secrets (database passwords, API keys) are deliberately kept out of the
// configuration files; they are injected into the environment by the
// deployment layer and looked up by name at the point of use.
package secret

import (
	"errors"
	"fmt"
	"os"
)

// ErrNotFound indicates the named secret is not set in the environment.
var ErrNotFound = errors.New("secret not found")

// Provider resolves named secrets.
type Provider interface {
	Get(name string) (string, error)
}

// Env resolves secrets from process environment variables.
// The zero value is ready to use.
type Env struct{}

// Get returns the value of the named environment variable.
// An unset variable is an error; an empty value is returned as-is.
func (Env) Get(name string) (string, error) {
	value, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return value, nil
}
