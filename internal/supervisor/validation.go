package supervisor

import (
	"fmt"
	"regexp"

	"flotilla/internal/errors"
)

// idRegex matches identifiers docker accepts as container names. Everything
// handed to the docker CLI goes through this check first, so a malformed
// catalog entry can never smuggle arguments onto the command line.
var idRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// validateID rejects identifiers that are unsafe to pass to the supervisor
func validateID(id string) error {
	if id == "" {
		return errors.NewWithDetails(errors.ErrInvalidInput, "Invalid service identifier", "identifier is empty")
	}
	if len(id) > 255 {
		return errors.NewWithDetails(errors.ErrInvalidInput, "Invalid service identifier",
			fmt.Sprintf("identifier %q is too long (max 255 characters)", id))
	}
	if !idRegex.MatchString(id) {
		return errors.NewWithDetails(errors.ErrInvalidInput, "Invalid service identifier",
			fmt.Sprintf("identifier %q contains unsupported characters", id))
	}
	return nil
}
