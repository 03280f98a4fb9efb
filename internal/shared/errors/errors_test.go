package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
		code   string
		target error
	}{
		{"not found", NotFound("patient", "p9"), http.StatusNotFound, "NOT_FOUND", ErrNotFound},
		{"unauthorized", Unauthorized("login required"), http.StatusUnauthorized, "UNAUTHORIZED", ErrUnauthorized},
		{"forbidden", Forbidden("nope"), http.StatusForbidden, "FORBIDDEN", ErrForbidden},
		{"bad request", BadRequest("bad"), http.StatusBadRequest, "BAD_REQUEST", ErrBadRequest},
		{"validation", Validation("invalid", nil), http.StatusUnprocessableEntity, "VALIDATION_ERROR", ErrValidation},
		{"conflict", Conflict("dup"), http.StatusConflict, "CONFLICT", ErrConflict},
		{"rate limited", RateLimited(), http.StatusTooManyRequests, "RATE_LIMITED", ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.HTTPStatus != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, tt.err.HTTPStatus)
			}
			if tt.err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, tt.err.Code)
			}
			if !Is(tt.err, tt.target) {
				t.Errorf("Expected error to match %v", tt.target)
			}
		})
	}
}

func TestWrapKeepsAppError(t *testing.T) {
	inner := NotFound("doctor", "d9")
	wrapped := Wrap(fmt.Errorf("lookup: %w", inner), "load consultation")

	if wrapped.HTTPStatus != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", wrapped.HTTPStatus)
	}
	if !Is(wrapped, ErrNotFound) {
		t.Error("Wrapped error should still match ErrNotFound")
	}
	if inner.Message != "doctor not found" {
		t.Errorf("Wrap must not mutate the inner error, got %q", inner.Message)
	}

	plain := Wrap(fmt.Errorf("disk full"), "save session")
	if plain.HTTPStatus != http.StatusInternalServerError || plain.Code != "INTERNAL_ERROR" {
		t.Errorf("Unexpected wrap of plain error: %+v", plain)
	}
}

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, Validation("validation failed", map[string]string{"username": "required"}))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if body["code"] != "VALIDATION_ERROR" {
		t.Errorf("Expected VALIDATION_ERROR, got %v", body["code"])
	}

	rec = httptest.NewRecorder()
	Write(rec, fmt.Errorf("boom"))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rec.Code)
	}
}
