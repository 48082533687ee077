package dto_test

import (
	"reflect"
	"strings"
	"testing"

	"roost/shared/dto"
)

func TestFilterGetWhereClause(t *testing.T) {
	tests := []struct {
		name         string
		filter       dto.Filter
		expectedSQL  string
		expectedArgs map[string]any
	}{
		{
			name: "eq with table prefix",
			filter: dto.Filter{
				Field:    "status",
				Operator: dto.FilterOperatorEq,
				Value:    "pending",
				Table:    "bookings",
			},
			expectedSQL:  "bookings.status = :status",
			expectedArgs: map[string]any{"status": "pending"},
		},
		{
			name: "eq without table prefix",
			filter: dto.Filter{
				Field:    "id",
				Operator: dto.FilterOperatorEq,
				Value:    "abc",
			},
			expectedSQL:  "id = :id",
			expectedArgs: map[string]any{"id": "abc"},
		},
		{
			name: "not eq",
			filter: dto.Filter{
				Field:    "status",
				Operator: dto.FilterOperatorNotEq,
				Value:    "canceled",
			},
			expectedSQL:  "status != :status",
			expectedArgs: map[string]any{"status": "canceled"},
		},
		{
			name: "less than with arg name",
			filter: dto.Filter{
				ArgName:  "sweep_now",
				Field:    "end_date",
				Operator: dto.FilterOperatorLessEq,
				Value:    "2025-09-05",
				Table:    "bookings",
			},
			expectedSQL:  "bookings.end_date <= :sweep_now",
			expectedArgs: map[string]any{"sweep_now": "2025-09-05"},
		},
		{
			name: "in with slice expands named args",
			filter: dto.Filter{
				Field:    "status",
				Operator: dto.FilterOperatorIn,
				Value:    []string{"pending", "confirmed"},
			},
			expectedSQL:  "status IN (:status_0, :status_1) ",
			expectedArgs: map[string]any{"status_0": "pending", "status_1": "confirmed"},
		},
		{
			name: "unknown operator yields empty clause",
			filter: dto.Filter{
				Field:    "status",
				Operator: "bogus",
			},
			expectedSQL:  "",
			expectedArgs: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tt.filter.GetWhereClause()

			if sql != tt.expectedSQL {
				t.Errorf("expected %q, got %q", tt.expectedSQL, sql)
			}

			if !reflect.DeepEqual(args, tt.expectedArgs) {
				t.Errorf("expected args %+v, got %+v", tt.expectedArgs, args)
			}
		})
	}
}

func TestFilterGroupGetWhereClause(t *testing.T) {
	t.Run("joins filters with the group operator", func(t *testing.T) {
		group := dto.FilterGroup{
			Operator: dto.FilterGroupOperatorAnd,
			Filters: []any{
				dto.Filter{Field: "booking_id", Operator: dto.FilterOperatorEq, Value: "b-1"},
				dto.Filter{Field: "idempotency_key", Operator: dto.FilterOperatorEq, Value: "k-1"},
			},
		}

		sql, args := group.GetWhereClause()

		expected := "(booking_id = :booking_id AND idempotency_key = :idempotency_key)"
		if sql != expected {
			t.Errorf("expected %q, got %q", expected, sql)
		}

		if len(args) != 2 {
			t.Errorf("expected 2 args, got %d", len(args))
		}
	})

	t.Run("empty group yields empty clause", func(t *testing.T) {
		group := dto.FilterGroup{Operator: dto.FilterGroupOperatorAnd}

		sql, _ := group.GetWhereClause()
		if sql != "" {
			t.Errorf("expected empty clause, got %q", sql)
		}
	})

	t.Run("missing operator defaults to AND", func(t *testing.T) {
		group := dto.FilterGroup{
			Filters: []any{
				dto.Filter{Field: "a", Operator: dto.FilterOperatorEq, Value: 1},
				dto.Filter{Field: "b", Operator: dto.FilterOperatorEq, Value: 2},
			},
		}

		sql, _ := group.GetWhereClause()
		if !strings.Contains(sql, " AND ") {
			t.Errorf("expected AND join, got %q", sql)
		}
	})

	t.Run("nested groups are parenthesized", func(t *testing.T) {
		group := dto.FilterGroup{
			Operator: dto.FilterGroupOperatorOr,
			Filters: []any{
				dto.Filter{Field: "status", Operator: dto.FilterOperatorEq, Value: "pending"},
				dto.FilterGroup{
					Operator: dto.FilterGroupOperatorAnd,
					Filters: []any{
						dto.Filter{Field: "status", ArgName: "status_confirmed", Operator: dto.FilterOperatorEq, Value: "confirmed"},
						dto.Filter{Field: "version", Operator: dto.FilterOperatorGreater, Value: 1},
					},
				},
			},
		}

		sql, args := group.GetWhereClause()

		expected := "(status = :status OR (status = :status_confirmed AND version > :version))"
		if sql != expected {
			t.Errorf("expected %q, got %q", expected, sql)
		}

		if len(args) != 3 {
			t.Errorf("expected 3 args, got %d", len(args))
		}
	})
}
