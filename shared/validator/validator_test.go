package validator_test

import (
	"roost/shared/validator"
	"strings"
	"testing"
)

type bookingPayload struct {
	PropertyID string `validate:"required,uuid" json:"property_id"`
	StartDate  string `validate:"required,datetime=2006-01-02" json:"start_date"`
	EndDate    string `validate:"required,datetime=2006-01-02" json:"end_date"`
	Guests     int    `validate:"gte=1,lte=20" json:"guests"`
	Status     string `validate:"omitempty,oneof=pending confirmed cancelled completed" json:"status"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name        string
		data        *bookingPayload
		expectError bool
	}{
		{
			name: "valid payload",
			data: &bookingPayload{
				PropertyID: "4f9b9a0e-9f59-4f6e-bd1e-0a4f35bb1e45",
				StartDate:  "2026-06-01",
				EndDate:    "2026-06-04",
				Guests:     2,
				Status:     "pending",
			},
			expectError: false,
		},
		{
			name: "missing property id",
			data: &bookingPayload{
				StartDate: "2026-06-01",
				EndDate:   "2026-06-04",
				Guests:    2,
			},
			expectError: true,
		},
		{
			name: "malformed property id",
			data: &bookingPayload{
				PropertyID: "not-a-uuid",
				StartDate:  "2026-06-01",
				EndDate:    "2026-06-04",
				Guests:     2,
			},
			expectError: true,
		},
		{
			name: "malformed date",
			data: &bookingPayload{
				PropertyID: "4f9b9a0e-9f59-4f6e-bd1e-0a4f35bb1e45",
				StartDate:  "June 1st",
				EndDate:    "2026-06-04",
				Guests:     2,
			},
			expectError: true,
		},
		{
			name: "guests out of range",
			data: &bookingPayload{
				PropertyID: "4f9b9a0e-9f59-4f6e-bd1e-0a4f35bb1e45",
				StartDate:  "2026-06-01",
				EndDate:    "2026-06-04",
				Guests:     50,
			},
			expectError: true,
		},
		{
			name: "unknown status",
			data: &bookingPayload{
				PropertyID: "4f9b9a0e-9f59-4f6e-bd1e-0a4f35bb1e45",
				StartDate:  "2026-06-01",
				EndDate:    "2026-06-04",
				Guests:     2,
				Status:     "archived",
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateStruct(tt.data)

			if tt.expectError && err == nil {
				t.Error("expected validation error, got nil")
			}

			if !tt.expectError && err != nil {
				t.Errorf("expected no validation error, got: %v", err)
			}
		})
	}
}

func TestValidateVar(t *testing.T) {
	tests := []struct {
		name        string
		field       interface{}
		tag         string
		expectError bool
	}{
		{
			name:        "valid required string",
			field:       "confirmed",
			tag:         "required",
			expectError: false,
		},
		{
			name:        "empty required string",
			field:       "",
			tag:         "required",
			expectError: true,
		},
		{
			name:        "valid uuid",
			field:       "4f9b9a0e-9f59-4f6e-bd1e-0a4f35bb1e45",
			tag:         "uuid",
			expectError: false,
		},
		{
			name:        "invalid uuid",
			field:       "booking-123",
			tag:         "uuid",
			expectError: true,
		},
		{
			name:        "amount in range",
			field:       48000,
			tag:         "gte=0",
			expectError: false,
		},
		{
			name:        "negative amount",
			field:       -1,
			tag:         "gte=0",
			expectError: true,
		},
		{
			name:        "valid oneof",
			field:       "cancelled",
			tag:         "oneof=pending confirmed cancelled completed",
			expectError: false,
		},
		{
			name:        "invalid oneof",
			field:       "archived",
			tag:         "oneof=pending confirmed cancelled completed",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateVar(tt.field, tt.tag)

			if tt.expectError && err == nil {
				t.Error("expected validation error, got nil")
			}

			if !tt.expectError && err != nil {
				t.Errorf("expected no validation error, got: %v", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		jsonBody    string
		expectError bool
	}{
		{
			name:        "valid JSON",
			jsonBody:    `{"property_id":"4f9b9a0e-9f59-4f6e-bd1e-0a4f35bb1e45","start_date":"2026-06-01","end_date":"2026-06-04","guests":2}`,
			expectError: false,
		},
		{
			name:        "invalid field value",
			jsonBody:    `{"property_id":"nope","start_date":"2026-06-01","end_date":"2026-06-04","guests":2}`,
			expectError: true,
		},
		{
			name:        "malformed JSON",
			jsonBody:    `{"property_id":}`,
			expectError: true,
		},
		{
			name:        "empty JSON",
			jsonBody:    `{}`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := strings.NewReader(tt.jsonBody)
			var data bookingPayload
			err := validator.Validate(reader, &data)

			if tt.expectError && err == nil {
				t.Error("expected validation error, got nil")
			}

			if !tt.expectError && err != nil {
				t.Errorf("expected no validation error, got: %v", err)
			}
		})
	}
}

func TestValidationMessages(t *testing.T) {
	data := &bookingPayload{}
	err := validator.ValidateStruct(data)

	if err == nil {
		t.Fatal("expected validation error for empty struct")
	}

	errorMsg := err.Error()

	if !strings.Contains(errorMsg, "required") || errorMsg == "" {
		t.Errorf("expected descriptive error message containing 'required', got: %s", errorMsg)
	}
}
