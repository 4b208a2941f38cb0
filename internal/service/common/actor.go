//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"

	"github.com/oshokin/fall-alarm/internal/domain/fall"
)

// DetectActor gathers host and user information for the audit trail.
func DetectActor() (fall.Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return fall.Actor{}, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return fall.Actor{}, fmt.Errorf("current user: %w", err)
	}

	return fall.Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}
