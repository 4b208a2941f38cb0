package command

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var errSecretRequired = errors.New("command password or password hash must be provided")

// Authenticator checks the shared secret of privileged commands.
type Authenticator struct {
	password []byte
	hash     []byte
}

// NewAuthenticator accepts either a plaintext password or a bcrypt hash of it.
// The hash wins when both are set.
func NewAuthenticator(password, hash string) (*Authenticator, error) {
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("parse password hash: %w", err)
		}

		return &Authenticator{hash: []byte(hash)}, nil
	}

	if password == "" {
		return nil, errSecretRequired
	}

	return &Authenticator{password: []byte(password)}, nil
}

// Check reports whether candidate matches the configured secret.
func (a *Authenticator) Check(candidate string) bool {
	if a.hash != nil {
		return bcrypt.CompareHashAndPassword(a.hash, []byte(candidate)) == nil
	}

	return subtle.ConstantTimeCompare(a.password, []byte(candidate)) == 1
}
