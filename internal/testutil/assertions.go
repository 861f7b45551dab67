package testutil

import (
	"errors"
	"testing"

	apperrors "moneta/internal/errors"
)

// AssertAppError fails the test unless err is an *AppError carrying code.
// The matched error is returned for further checks.
func AssertAppError(t *testing.T, err error, code string) *apperrors.AppError {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError %s, got %T: %v", code, err, err)
	}
	if appErr.Code != code {
		t.Errorf("expected %s, got %s (message: %s)", code, appErr.Code, appErr.Message)
	}
	return appErr
}

// AssertErrorIs is AssertAppError against a sentinel, also checking that
// the HTTP status the handlers will answer with is unchanged.
func AssertErrorIs(t *testing.T, err error, sentinel *apperrors.AppError) {
	t.Helper()

	appErr := AssertAppError(t, err, sentinel.Code)
	if appErr.StatusCode != sentinel.StatusCode {
		t.Errorf("%s: expected status %d, got %d", sentinel.Code, sentinel.StatusCode, appErr.StatusCode)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
