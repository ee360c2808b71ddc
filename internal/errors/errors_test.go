package errors

import (
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{
		Code:    ErrNotFound,
		Status:  404,
		Message: "no foods found",
	}

	expected := "NOT_FOUND: no foods found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("name is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "name is required" {
		t.Errorf("Message = %q, want %q", err.Message, "name is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("dragonfruit")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["query"] != "dragonfruit" {
		t.Errorf("Details[query] = %v, want %q", err.Details["query"], "dragonfruit")
	}
}

func TestNewUnresolvable(t *testing.T) {
	err := NewUnresolvable("no gram weight for unit")

	if err.Code != ErrUnresolvable {
		t.Errorf("Code = %q, want %q", err.Code, ErrUnresolvable)
	}
	if err.Status != 422 {
		t.Errorf("Status = %d, want 422", err.Status)
	}
}

func TestNewUpstreamRejected(t *testing.T) {
	err := NewUpstreamRejected(403, "/foods/search")

	if err.Code != ErrUpstreamRejected {
		t.Errorf("Code = %q, want %q", err.Code, ErrUpstreamRejected)
	}
	if err.Status != 502 {
		t.Errorf("Status = %d, want 502", err.Status)
	}
	if err.Details["status_code"] != 403 {
		t.Errorf("Details[status_code] = %v, want 403", err.Details["status_code"])
	}
	if err.Details["url_path"] != "/foods/search" {
		t.Errorf("Details[url_path] = %v, want %q", err.Details["url_path"], "/foods/search")
	}
}

func TestNewUpstreamUnavailable(t *testing.T) {
	t.Run("with status", func(t *testing.T) {
		err := NewUpstreamUnavailable(503, "/food/1", nil)

		if err.Code != ErrUpstreamUnavailable {
			t.Errorf("Code = %q, want %q", err.Code, ErrUpstreamUnavailable)
		}
		if err.Status != 503 {
			t.Errorf("Status = %d, want 503", err.Status)
		}
		if err.Details["status_code"] != 503 {
			t.Errorf("Details[status_code] = %v, want 503", err.Details["status_code"])
		}
	})

	t.Run("network failure", func(t *testing.T) {
		err := NewUpstreamUnavailable(0, "/food/1", fmt.Errorf("connection refused"))

		if _, ok := err.Details["status_code"]; ok {
			t.Error("Details should not carry status_code when no response arrived")
		}
		if err.Message != "nutrition database unavailable: connection refused" {
			t.Errorf("Message = %q", err.Message)
		}
	})
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		err := NewInternal(fmt.Errorf("decoder exploded"))

		if err.Code != ErrInternal {
			t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
		}
		if err.Status != 500 {
			t.Errorf("Status = %d, want 500", err.Status)
		}
		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		if err.Details["internal_error"] != "decoder exploded" {
			t.Errorf("Details[internal_error] = %q, want %q", err.Details["internal_error"], "decoder exploded")
		}
	})

	t.Run("with nil", func(t *testing.T) {
		err := NewInternal(nil)

		if err.Details == nil {
			t.Error("Details should not be nil")
		}
	})
}

func TestIs(t *testing.T) {
	t.Run("matching code", func(t *testing.T) {
		if !Is(NewNotFound("x"), ErrNotFound) {
			t.Error("Is() = false, want true")
		}
	})

	t.Run("non-matching code", func(t *testing.T) {
		if Is(NewNotFound("x"), ErrInvalidRequest) {
			t.Error("Is() = true, want false")
		}
	})

	t.Run("plain error", func(t *testing.T) {
		if Is(fmt.Errorf("plain error"), ErrNotFound) {
			t.Error("Is() = true, want false for plain error")
		}
	})

	t.Run("wrapped", func(t *testing.T) {
		wrapped := fmt.Errorf("search: %w", NewUpstreamRejected(401, "/foods/search"))
		if !Is(wrapped, ErrUpstreamRejected) {
			t.Error("Is() = false, want true for wrapped Error")
		}
	})
}

func TestStatusCode(t *testing.T) {
	if got := StatusCode(NewUpstreamRejected(404, "/food/9")); got != 404 {
		t.Errorf("StatusCode = %d, want 404", got)
	}
	if got := StatusCode(fmt.Errorf("details: %w", NewUpstreamUnavailable(429, "/food/9", nil))); got != 429 {
		t.Errorf("StatusCode(wrapped) = %d, want 429", got)
	}
	if got := StatusCode(fmt.Errorf("boom")); got != 0 {
		t.Errorf("StatusCode(plain) = %d, want 0", got)
	}
}
