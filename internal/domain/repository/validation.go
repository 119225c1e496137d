package repository

import (
	"errors"
	"sort"
	"strings"

	"github.com/oksasatya/authorization-service/internal/domain/entity"
	"github.com/oksasatya/authorization-service/pkg/validation"
)

// ValidationError is returned when a user is rejected at write time.
// Details is keyed by external field name.
type ValidationError struct {
	Details map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Details))
	for f := range e.Details {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+" "+e.Details[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

type userConstraints struct {
	Identifier string `json:"identifier" validate:"notblank"`
	Username   string `json:"username" validate:"notblank,email"`
	Password   string `json:"password" validate:"notblank"`
}

var validate = validation.New()

// Validate checks the write-time constraints of u. Uniqueness is left to storage.
func Validate(u *entity.User) error {
	if u == nil {
		return &ValidationError{Details: map[string]string{"payload": "is required"}}
	}
	err := validate.Struct(userConstraints{
		Identifier: u.Identifier(),
		Username:   u.Email(),
		Password:   u.PasswordHash(),
	})
	if err == nil {
		return nil
	}
	return &ValidationError{Details: validation.ToDetails(err)}
}
