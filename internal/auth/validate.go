package auth

import (
	"errors"
	"regexp"
	"strings"

	"github.com/ayush/nutrilog/internal/models"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_]{2,19}$`)

// ValidateUsername enforces 3-20 characters of letters, digits and
// underscores, starting with a letter or digit.
func ValidateUsername(name string) error {
	if !usernamePattern.MatchString(name) {
		return errors.New("username must be 3-20 letters, digits or underscores and start with a letter or digit")
	}
	return nil
}

func validateRegistration(req *models.RegisterRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	var errs []error
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		errs = append(errs, errors.New("a valid email is required"))
	}
	if len(req.Password) < 8 {
		errs = append(errs, errors.New("password must be at least 8 characters"))
	} else if len(req.Password) > 72 {
		errs = append(errs, errors.New("password must be at most 72 bytes"))
	}
	if err := ValidateUsername(req.Username); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
