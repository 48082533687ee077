package model

import (
	"roost/shared/model"
)

const (
	TableName  = "properties"
	EntityName = "property"

	FieldID                     = "id"
	FieldOwnerID                = "owner_id"
	FieldName                   = "name"
	FieldNightlyRateCents       = "nightly_rate_cents"
	FieldCurrency               = "currency"
	FieldMinStayNights          = "min_stay_nights"
	FieldMaxStayNights          = "max_stay_nights"
	FieldMaxGuests              = "max_guests"
	FieldCancellationCutoffDays = "cancellation_cutoff_days"
)

type Property struct {
	ID                     string `db:"id"`
	OwnerID                string `db:"owner_id"`
	Name                   string `db:"name"`
	NightlyRateCents       int64  `db:"nightly_rate_cents"`
	Currency               string `db:"currency"`
	MinStayNights          int64  `db:"min_stay_nights"`
	MaxStayNights          int64  `db:"max_stay_nights"`
	MaxGuests              int64  `db:"max_guests"`
	CancellationCutoffDays int64  `db:"cancellation_cutoff_days"`
	model.Metadata
}
