package person

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/datacentricdesign/profile-api/internal/apperror"
	"github.com/datacentricdesign/profile-api/internal/db/models"
	"github.com/datacentricdesign/profile-api/internal/password"
)

var (
	// ErrIDPrefix is returned when a person id misses its namespace.
	ErrIDPrefix = apperror.New(apperror.ValidationError, "An id should be provided with the prefix "+models.PersonIDPrefix)
	// ErrPasswordTooShort is returned for passwords under password.MinLength characters.
	ErrPasswordTooShort = apperror.New(apperror.ValidationError,
		fmt.Sprintf("Password is too short. Provide a password with %d characters or more.", password.MinLength))
	// ErrIDInUse is returned when the id is taken.
	ErrIDInUse = apperror.New(apperror.DuplicateIdentity, "This id (username) is already in use.")
	// ErrEmailInUse is returned when the email is taken.
	ErrEmailInUse = apperror.New(apperror.DuplicateIdentity, "This email address is already in use.")
)

// validationError turns the first failed rule into a ValidationError naming the field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.Wrap(err, apperror.ValidationError, "invalid input")
	}

	fe := verrs[0]

	switch fe.Tag() {
	case "required":
		return apperror.Newf(apperror.ValidationError, "Add field %s.", fe.Field())
	case "email":
		return apperror.Newf(apperror.ValidationError, "The field '%s' must be a valid email address.", fe.Field())
	default:
		return apperror.Newf(apperror.ValidationError, "The field '%s' is not valid.", fe.Field()).
			WithRequirements(fe.Tag() + " " + fe.Param())
	}
}
