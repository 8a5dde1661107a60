package errors

import (
	"fmt"
	"testing"
)

func TestPithError_Error(t *testing.T) {
	err := &PithError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "result not found",
	}

	expected := "NOT_FOUND: result not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewAmbiguousAddressing(t *testing.T) {
	err := NewAmbiguousAddressing()

	if err.Code != ErrAmbiguousAddressing {
		t.Errorf("Code = %q, want %q", err.Code, ErrAmbiguousAddressing)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("text is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "text is required" {
		t.Errorf("Message = %q, want %q", err.Message, "text is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("release-notes")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["identifier"] != "release-notes" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "release-notes")
	}
}

func TestNewNameAlreadyExists(t *testing.T) {
	err := NewNameAlreadyExists("default", "release-notes")

	if err.Code != ErrNameAlreadyExists {
		t.Errorf("Code = %q, want %q", err.Code, ErrNameAlreadyExists)
	}
	if err.Status != 409 {
		t.Errorf("Status = %d, want 409", err.Status)
	}
	if err.Details["workspace"] != "default" {
		t.Errorf("Details[workspace] = %v, want %q", err.Details["workspace"], "default")
	}
	if err.Details["name"] != "release-notes" {
		t.Errorf("Details[name] = %v, want %q", err.Details["name"], "release-notes")
	}
}

func TestNewTextTooLarge(t *testing.T) {
	err := NewTextTooLarge(1000000, 1500000)

	if err.Code != ErrTextTooLarge {
		t.Errorf("Code = %q, want %q", err.Code, ErrTextTooLarge)
	}
	if err.Status != 413 {
		t.Errorf("Status = %d, want 413", err.Status)
	}
	if err.Details["max_chars"] != 1000000 {
		t.Errorf("Details[max_chars] = %v, want 1000000", err.Details["max_chars"])
	}
	if err.Details["actual_chars"] != 1500000 {
		t.Errorf("Details[actual_chars] = %v, want 1500000", err.Details["actual_chars"])
	}
}

func TestNewFileNotFound(t *testing.T) {
	err := NewFileNotFound("/tmp/backup.jsonl")

	if err.Code != ErrFileNotFound || err.Status != 404 {
		t.Errorf("Code/Status = %q/%d, want %q/404", err.Code, err.Status, ErrFileNotFound)
	}
	if err.Details["path"] != "/tmp/backup.jsonl" {
		t.Errorf("Details[path] = %v", err.Details["path"])
	}
}

func TestNewCancelled(t *testing.T) {
	err := NewCancelled("export")

	if err.Code != ErrCancelled {
		t.Errorf("Code = %q, want %q", err.Code, ErrCancelled)
	}
	if err.Message != "export cancelled" {
		t.Errorf("Message = %q, want %q", err.Message, "export cancelled")
	}
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		err := NewInternal(fmt.Errorf("database connection failed"))

		if err.Code != ErrInternal {
			t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
		}
		if err.Status != 500 {
			t.Errorf("Status = %d, want 500", err.Status)
		}
		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		if err.Details["internal_error"] != "database connection failed" {
			t.Errorf("Details[internal_error] = %q, want %q", err.Details["internal_error"], "database connection failed")
		}
	})

	t.Run("with nil", func(t *testing.T) {
		err := NewInternal(nil)

		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
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
		if Is(NewNotFound("x"), ErrTextTooLarge) {
			t.Error("Is() = true, want false")
		}
	})

	t.Run("plain error", func(t *testing.T) {
		if Is(fmt.Errorf("boom"), ErrInternal) {
			t.Error("Is() = true, want false")
		}
	})

	t.Run("nil error", func(t *testing.T) {
		if Is(nil, ErrInternal) {
			t.Error("Is() = true, want false")
		}
	})
}
