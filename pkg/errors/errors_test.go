package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	err := Wrap(stdErrors.New("disk full"), "failed to save booking")

	if err.Error() != "failed to save booking: disk full" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New("HOTEL_NOT_FOUND", "Hotel not found", http.StatusNotFound)
	with := base.WithInternal(stdErrors.New("record not found"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}
	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}
	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("rbac: create role: %w", NewConflict("Role Manager already exists"))

	if !stdErrors.Is(err, ErrConflict) {
		t.Fatal("expected wrapped conflict to match ErrConflict")
	}
	if stdErrors.Is(err, ErrValidation) {
		t.Fatal("did not expect conflict to match ErrValidation")
	}
}

func TestFromError(t *testing.T) {
	if out := FromError(ErrNotFound); out != ErrNotFound {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	wrapped := fmt.Errorf("booking service: %w", ErrForbidden)
	if out := FromError(wrapped); out.StatusCode != http.StatusForbidden {
		t.Fatalf("expected forbidden status, got %d", out.StatusCode)
	}

	out := FromError(stdErrors.New("raw"))
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}
}

func TestConstructorsKeepStatus(t *testing.T) {
	cases := []struct {
		err    *AppError
		code   string
		status int
	}{
		{NewBadRequest("invalid payload"), ErrBadRequest.Code, http.StatusBadRequest},
		{NewValidation("role belongs to another hotel"), ErrValidation.Code, http.StatusBadRequest},
		{NewConflict("duplicate"), ErrConflict.Code, http.StatusConflict},
		{NewNotFound("room not found"), ErrNotFound.Code, http.StatusNotFound},
	}

	for _, tc := range cases {
		if tc.err.Code != tc.code {
			t.Fatalf("expected %s, got %s", tc.code, tc.err.Code)
		}
		if tc.err.StatusCode != tc.status {
			t.Fatalf("unexpected status for %s: %d", tc.code, tc.err.StatusCode)
		}
	}
}
