package client

import (
	"errors"
	"fmt"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{"client error should not retry", ErrorClassClient, false},
		{"server error should retry", ErrorClassServer, true},
		{"rate limit should retry", ErrorClassRateLimit, true},
		{"network error should retry", ErrorClassNetwork, true},
		{"payload error should not retry", ErrorClassPayload, false},
		{"empty error class should not retry", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := shouldRetry(tt.errorClass); result != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, result, tt.expected)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		expected string
	}{
		{
			name: "message and wrapped error",
			apiError: &APIError{
				Method:     "GET",
				Endpoint:   "/inventory/load-more/",
				StatusCode: 200,
				ErrorClass: ErrorClassPayload,
				Message:    "Invalid filter",
				Err:        ErrUnsuccessful,
			},
			expected: "GET /inventory/load-more/: payload error (status 200): Invalid filter: backend reported failure",
		},
		{
			name: "wrapped error only",
			apiError: &APIError{
				Method:     "GET",
				Endpoint:   "/inventory/load-more/",
				ErrorClass: ErrorClassNetwork,
				Err:        errors.New("connection refused"),
			},
			expected: "GET /inventory/load-more/: network error: connection refused",
		},
		{
			name: "message only",
			apiError: &APIError{
				Method:     "PATCH",
				Endpoint:   "/inventory/api/requests/7/",
				StatusCode: 400,
				ErrorClass: ErrorClassClient,
				Message:    "Comment is required",
			},
			expected: "PATCH /inventory/api/requests/7/: client error (status 400): Comment is required",
		},
		{
			name: "bare",
			apiError: &APIError{
				Method:     "GET",
				Endpoint:   "/x/",
				StatusCode: 503,
				ErrorClass: ErrorClassServer,
			},
			expected: "GET /x/: server error (status 503)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.apiError.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	apiErr := &APIError{ErrorClass: ErrorClassPayload, Err: ErrMalformed}
	wrapped := fmt.Errorf("load page 2: %w", apiErr)

	if !errors.Is(wrapped, ErrMalformed) {
		t.Error("errors.Is(ErrMalformed) = false through APIError")
	}

	var target *APIError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As(*APIError) = false")
	}
	if target.ErrorClass != ErrorClassPayload {
		t.Errorf("ErrorClass = %q, want payload", target.ErrorClass)
	}

	if (&APIError{}).Unwrap() != nil {
		t.Error("Unwrap() on empty APIError should be nil")
	}
}

func TestClassOfAndMessageOf(t *testing.T) {
	apiErr := &APIError{ErrorClass: ErrorClassClient, Message: "Not allowed"}
	exhausted := fmt.Errorf("%w after 3 attempts: %w", ErrRetryExhausted, &APIError{ErrorClass: ErrorClassServer})

	tests := []struct {
		name      string
		err       error
		wantClass ErrorClass
		wantMsg   string
	}{
		{"api error", apiErr, ErrorClassClient, "Not allowed"},
		{"wrapped api error", fmt.Errorf("approve: %w", apiErr), ErrorClassClient, "Not allowed"},
		{"retry exhausted", exhausted, ErrorClassServer, ""},
		{"plain error", errors.New("boom"), "", ""},
		{"nil", nil, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassOf(tt.err); got != tt.wantClass {
				t.Errorf("ClassOf() = %q, want %q", got, tt.wantClass)
			}
			if got := MessageOf(tt.err); got != tt.wantMsg {
				t.Errorf("MessageOf() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}
