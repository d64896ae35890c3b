package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/angelmondragon/packfinderz-driver/pkg/enums"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeIdempotency, status: http.StatusConflict, publicMsg: "idempotency key reused", detailsOK: true},
		{code: CodeTimeout, status: http.StatusGatewayTimeout, publicMsg: "backend request timed out", retryable: true},
		{code: CodeConnectivity, status: http.StatusBadGateway, publicMsg: "backend unreachable", retryable: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "return reason required")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}
	base.WithDetails(map[string]any{"line": 2})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if !IsCode(fmt.Errorf("outer: %w", wrapped), CodeConflict) {
		t.Fatalf("IsCode should see through fmt wrapping")
	}
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want enums.ErrorCategory
	}{
		{"timeout code", New(CodeTimeout, "slow"), enums.ErrorCategoryTimeout},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), enums.ErrorCategoryTimeout},
		{"url timeout", &url.Error{Op: "Post", URL: "http://x", Err: timeoutErr{}}, enums.ErrorCategoryTimeout},
		{"url refused", &url.Error{Op: "Post", URL: "http://x", Err: stdErrors.New("connection refused")}, enums.ErrorCategoryConnectivity},
		{"auth", New(CodeUnauthorized, "expired"), enums.ErrorCategoryAuth},
		{"validation", New(CodeValidation, "bad"), enums.ErrorCategoryValidation},
		{"state", New(CodeStateConflict, "bad"), enums.ErrorCategoryValidation},
		{"unknown", stdErrors.New("what"), enums.ErrorCategoryUnknown},
	}
	for _, tt := range tests {
		if got := CategoryOf(tt.err); got != tt.want {
			t.Fatalf("%s: expected %s got %s", tt.name, tt.want, got)
		}
	}
	if CategoryOf(nil) != "" {
		t.Fatalf("nil error has no category")
	}
}

func TestFromTransport(t *testing.T) {
	err := FromTransport(&url.Error{Op: "Get", URL: "http://x", Err: timeoutErr{}}, "fetch delivery")
	if err.Code() != CodeTimeout {
		t.Fatalf("expected timeout code, got %s", err.Code())
	}
	err = FromTransport(stdErrors.New("weird"), "fetch delivery")
	if err.Code() != CodeDependency {
		t.Fatalf("expected dependency code, got %s", err.Code())
	}
	if FromTransport(nil, "noop") != nil {
		t.Fatalf("nil in, nil out")
	}
}

func TestDumpIncludesChain(t *testing.T) {
	d := Dump(Wrap(CodeConnectivity, stdErrors.New("dial tcp"), "push location"))
	if d.Code != CodeConnectivity || len(d.Chain) != 2 || !d.Retryable {
		t.Fatalf("unexpected dump %+v", d)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"validation", New(CodeValidation, "bad"), false},
		{"state", New(CodeStateConflict, "done"), false},
		{"connectivity", New(CodeConnectivity, "down"), true},
		{"raw timeout", fmt.Errorf("push: %w", context.DeadlineExceeded), true},
		{"raw unknown", stdErrors.New("what"), false},
	}
	for _, tt := range tests {
		if got := Retryable(tt.err); got != tt.want {
			t.Fatalf("%s: expected %v got %v", tt.name, tt.want, got)
		}
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }
