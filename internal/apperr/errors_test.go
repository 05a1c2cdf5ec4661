package apperr

import (
	"errors"
	"net/http"
	"testing"
)

func TestNewHasCode(t *testing.T) {
	err := New(CodeNotFound, "package not found")
	if !HasCode(err, CodeNotFound) {
		t.Fatalf("expected CodeNotFound")
	}
	if HasCode(err, CodeBadRequest) {
		t.Fatalf("did not expect CodeBadRequest")
	}
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("open failed")
	err := Wrap(cause, CodeInternal, "failed to read tarball")
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find wrapped cause")
	}
	if !HasCode(err, CodeInternal) {
		t.Fatalf("expected CodeInternal")
	}
}

func TestWrapNilPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on nil cause")
		}
	}()
	Wrap(nil, CodeInternal, "should panic")
}

func TestHasCodePlainError(t *testing.T) {
	if HasCode(errors.New("plain"), CodeNotFound) {
		t.Fatalf("plain error should never HasCode")
	}
}

func TestCodeOfDefaultsToInternal(t *testing.T) {
	if got := CodeOf(errors.New("plain")); got != CodeInternal {
		t.Fatalf("got %v, want CodeInternal", got)
	}
	if got := CodeOf(New(CodeBadRequest, "x")); got != CodeBadRequest {
		t.Fatalf("got %v, want CodeBadRequest", got)
	}
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeBadRequest: http.StatusBadRequest,
		CodeNotFound:   http.StatusNotFound,
		CodeInternal:   http.StatusInternalServerError,
		Code("bogus"):  http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := ToHTTPStatus(code); got != want {
			t.Fatalf("ToHTTPStatus(%v) = %d, want %d", code, got, want)
		}
	}
}
