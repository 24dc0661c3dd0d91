package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNew_DefaultStatusCodes(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeSourceNotFound, http.StatusNotFound},
		{CodeInvalidTradeSize, http.StatusBadRequest},
		{CodeChainMismatch, http.StatusBadRequest},
		{CodeMethodNotAllowed, http.StatusMethodNotAllowed},
		{CodeEthereumConnectionFailed, http.StatusServiceUnavailable},
		{CodeStoreUnavailable, http.StatusServiceUnavailable},
		{CodeRateLimitExceeded, http.StatusTooManyRequests},
		{CodeExecutionFailed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := New(tt.code).StatusCode; got != tt.want {
				t.Errorf("StatusCode = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWrap_PreservesCauseAndCode(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("scan: %w", Wrap(cause, CodeStoreUnavailable, "redis"))

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}
	if !IsCode(err, CodeStoreUnavailable) {
		t.Errorf("GetCode = %s, want %s", GetCode(err), CodeStoreUnavailable)
	}
	if !errors.Is(err, New(CodeStoreUnavailable)) {
		t.Error("AppErrors with equal codes should match")
	}

	again := Wrap(err, CodeInternalError, "ignored")
	if again.Code != CodeStoreUnavailable {
		t.Errorf("Wrap must keep the existing code, got %s", again.Code)
	}
}

func TestStatusCode_PlainError(t *testing.T) {
	if got := StatusCode(errors.New("x")); got != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", got)
	}
	if got := GetCode(errors.New("x")); got != CodeUnknownError {
		t.Errorf("GetCode = %s, want %s", got, CodeUnknownError)
	}
}
