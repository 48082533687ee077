package failure_test

import (
	"errors"
	"net/http"
	"roost/shared/failure"
	"testing"
)

func TestFailure_Error(t *testing.T) {
	f := &failure.Failure{
		Code:    http.StatusBadRequest,
		Message: "test error message",
	}

	if f.Error() != "test error message" {
		t.Errorf("expected error message to be 'test error message', got %s", f.Error())
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name    string
		result  error
		code    int
		message string
	}{
		{
			name:    "BadRequestFromString",
			result:  failure.BadRequestFromString("start date must be before end date"),
			code:    http.StatusBadRequest,
			message: "start date must be before end date",
		},
		{
			name:    "Unauthorized",
			result:  failure.Unauthorized("token expired"),
			code:    http.StatusUnauthorized,
			message: "token expired",
		},
		{
			name:    "Forbidden",
			result:  failure.Forbidden("cancellation cutoff passed"),
			code:    http.StatusForbidden,
			message: "cancellation cutoff passed",
		},
		{
			name:    "NotFound",
			result:  failure.NotFound("booking not found"),
			code:    http.StatusNotFound,
			message: "booking not found",
		},
		{
			name:    "Conflict",
			result:  failure.Conflict("dates overlap an existing booking"),
			code:    http.StatusConflict,
			message: "dates overlap an existing booking",
		},
		{
			name:    "InvalidTransition",
			result:  failure.InvalidTransition("cannot confirm a completed booking"),
			code:    http.StatusConflict,
			message: "cannot confirm a completed booking",
		},
		{
			name:    "NotPayable",
			result:  failure.NotPayable("booking is not confirmed"),
			code:    http.StatusUnprocessableEntity,
			message: "booking is not confirmed",
		},
		{
			name:    "AmountMismatch",
			result:  failure.AmountMismatch("amount does not match booking total"),
			code:    http.StatusUnprocessableEntity,
			message: "amount does not match booking total",
		},
		{
			name:    "Timeout",
			result:  failure.Timeout("payment gateway unresponsive"),
			code:    http.StatusGatewayTimeout,
			message: "payment gateway unresponsive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := tt.result.(*failure.Failure)
			if !ok {
				t.Fatalf("expected result to be *failure.Failure, got %T", tt.result)
			}

			if f.Code != tt.code {
				t.Errorf("expected code to be %d, got %d", tt.code, f.Code)
			}
			if f.Message != tt.message {
				t.Errorf("expected message to be %s, got %s", tt.message, f.Message)
			}
		})
	}
}

func TestBadRequest(t *testing.T) {
	tests := []struct {
		name     string
		input    error
		expected error
	}{
		{
			name:     "with error",
			input:    errors.New("validation failed"),
			expected: &failure.Failure{Code: http.StatusBadRequest, Message: "validation failed"},
		},
		{
			name:     "with nil error",
			input:    nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := failure.BadRequest(tt.input)

			if tt.expected == nil {
				if result != nil {
					t.Errorf("expected nil, got %v", result)
				}
			} else {
				f, ok := result.(*failure.Failure)
				if !ok {
					t.Errorf("expected result to be *failure.Failure, got %T", result)
				} else {
					expectedF := tt.expected.(*failure.Failure)
					if f.Code != expectedF.Code || f.Message != expectedF.Message {
						t.Errorf("expected %+v, got %+v", expectedF, f)
					}
				}
			}
		})
	}
}

func TestInternalError(t *testing.T) {
	tests := []struct {
		name     string
		input    error
		expected error
	}{
		{
			name:     "with error",
			input:    errors.New("database connection failed"),
			expected: &failure.Failure{Code: http.StatusInternalServerError, Message: "database connection failed"},
		},
		{
			name:     "with nil error",
			input:    nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := failure.InternalError(tt.input)

			if tt.expected == nil {
				if result != nil {
					t.Errorf("expected nil, got %v", result)
				}
			} else {
				f, ok := result.(*failure.Failure)
				if !ok {
					t.Errorf("expected result to be *failure.Failure, got %T", result)
				} else {
					expectedF := tt.expected.(*failure.Failure)
					if f.Code != expectedF.Code || f.Message != expectedF.Message {
						t.Errorf("expected %+v, got %+v", expectedF, f)
					}
				}
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		input    error
		expected int
	}{
		{
			name:     "failure error",
			input:    &failure.Failure{Code: http.StatusBadRequest, Message: "test"},
			expected: http.StatusBadRequest,
		},
		{
			name:     "wrapped failure error",
			input:    failure.BadRequestFromString("test"),
			expected: http.StatusBadRequest,
		},
		{
			name:     "regular error",
			input:    errors.New("regular error"),
			expected: http.StatusInternalServerError,
		},
		{
			name:     "nil error",
			input:    nil,
			expected: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := failure.GetCode(tt.input)
			if result != tt.expected {
				t.Errorf("expected code to be %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		input    error
		expected bool
	}{
		{
			name:     "conflict is retryable",
			input:    failure.Conflict("version changed"),
			expected: true,
		},
		{
			name:     "timeout is retryable",
			input:    failure.Timeout("store unresponsive"),
			expected: true,
		},
		{
			name:     "bad request is not retryable",
			input:    failure.BadRequestFromString("invalid dates"),
			expected: false,
		},
		{
			name:     "forbidden is not retryable",
			input:    failure.Forbidden("not permitted"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := failure.IsRetryable(tt.input); got != tt.expected {
				t.Errorf("expected IsRetryable to be %v, got %v", tt.expected, got)
			}
		})
	}
}
