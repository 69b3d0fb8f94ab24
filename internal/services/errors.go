package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/charlesng35/innkeep/internal/repository"
	apperrors "github.com/charlesng35/innkeep/pkg/errors"
	"github.com/charlesng35/innkeep/pkg/validator"
)

// Domain errors. They are never returned bare: fail wraps them under the
// matching class (ErrNotFound, ErrConflict, ErrValidation) so callers can test
// for either the class or the specific cause with errors.Is.
var (
	ErrHotelNotFound      = apperrors.New("HOTEL_NOT_FOUND", "Hotel not found", http.StatusNotFound)
	ErrRoomNotFound       = apperrors.New("ROOM_NOT_FOUND", "Room not found", http.StatusNotFound)
	ErrBookingNotFound    = apperrors.New("BOOKING_NOT_FOUND", "Booking not found", http.StatusNotFound)
	ErrUserNotFound       = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	ErrRoleNotFound       = apperrors.New("ROLE_NOT_FOUND", "Role not found", http.StatusNotFound)
	ErrPermissionNotFound = apperrors.New("PERMISSION_NOT_FOUND", "Permission not found", http.StatusNotFound)

	ErrRoleConflict       = apperrors.New("ROLE_CONFLICT", "A role with this name already exists in this context", http.StatusConflict)
	ErrPermissionConflict = apperrors.New("PERMISSION_CONFLICT", "Permission already exists", http.StatusConflict)
	ErrUserConflict       = apperrors.New("USER_CONFLICT", "Username or email already in use", http.StatusConflict)
	ErrBookingOverlap     = apperrors.New("BOOKING_OVERLAP", "Room is already booked for these dates", http.StatusConflict)
	ErrRoomUnavailable    = apperrors.New("ROOM_UNAVAILABLE", "Room is not available for booking", http.StatusConflict)

	ErrRoleHotelMismatch = apperrors.New("ROLE_HOTEL_MISMATCH", "Role belongs to a different hotel", http.StatusBadRequest)
	ErrGlobalRoleBinding = apperrors.New("GLOBAL_ROLE_BINDING", "Global roles are assigned with the global role endpoint", http.StatusBadRequest)
	ErrRoleNotGlobal     = apperrors.New("ROLE_NOT_GLOBAL", "Only global roles can be set as a user's global role", http.StatusBadRequest)
	ErrRoomHotelMismatch = apperrors.New("ROOM_HOTEL_MISMATCH", "Room does not belong to this hotel", http.StatusBadRequest)
	ErrRoleImmutable     = apperrors.New("ROLE_IMMUTABLE", "System roles cannot be renamed or deleted", http.StatusBadRequest)
	ErrSelfDelete        = apperrors.New("USER_SELF_DELETE", "You cannot delete your own account", http.StatusBadRequest)
)

// fail wraps a domain error under its class.
func fail(domain *apperrors.AppError) *apperrors.AppError {
	var class *apperrors.AppError
	switch domain.StatusCode {
	case http.StatusNotFound:
		class = apperrors.ErrNotFound
	case http.StatusConflict:
		class = apperrors.ErrConflict
	default:
		class = apperrors.ErrValidation
	}
	return class.WithMessage(domain.Message).WithInternal(domain)
}

// invalid reports a rule violation on otherwise well-formed input.
func invalid(message string) *apperrors.AppError {
	return apperrors.NewValidation(message)
}

// mapRepoErr converts repository sentinels into API errors. notFound and
// conflict are optional domain errors for the two common cases.
func mapRepoErr(err error, notFound, conflict *apperrors.AppError) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		if notFound != nil {
			return fail(notFound)
		}
		return apperrors.ErrNotFound
	case errors.Is(err, repository.ErrDuplicate):
		if conflict != nil {
			return apperrors.ErrConflict.WithMessage(conflict.Message).WithInternal(errors.Join(conflict, err))
		}
		return apperrors.ErrConflict.WithInternal(err)
	case errors.Is(err, repository.ErrInvalidReference):
		return apperrors.NewValidation("Referenced record does not exist").WithInternal(err)
	}
	return err
}

// validate runs struct validation; failures carry the per-field details.
func validate(input any) error {
	err := validator.ValidateStruct(input)
	if err == nil {
		return nil
	}
	return apperrors.ErrValidation.WithInternal(err)
}

// wrapErr keeps AppErrors intact and annotates infrastructure failures with
// the failing operation.
func wrapErr(op string, err error) error {
	var appErr *apperrors.AppError
	if err == nil || errors.As(err, &appErr) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
