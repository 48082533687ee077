package dto

import (
	"time"

	"github.com/google/uuid"

	"roost/internal/domains/booking/model"
	"roost/shared"
	"roost/shared/constant"
	gDto "roost/shared/dto"
	gModel "roost/shared/model"
	"roost/shared/timezone"
)

type CreateBookingRequest struct {
	PropertyID string `json:"property_id" validate:"required,uuid"`
	StartDate  string `json:"start_date"  validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"end_date"    validate:"required,datetime=2006-01-02"`
	Guests     int64  `json:"guests"      validate:"required,gte=1"`
}

// Interval parses the requested stay as a half-open [start, end) interval.
func (c *CreateBookingRequest) Interval() (start, end time.Time, err error) {
	start, err = time.Parse(constant.DayFormat, c.StartDate)
	if err != nil {
		return start, end, err
	}

	end, err = time.Parse(constant.DayFormat, c.EndDate)

	return start, end, err
}

func (c *CreateBookingRequest) ToModel(requester string, start, end time.Time, totalCents int64, currency string) model.Booking {
	return model.Booking{
		ID:          uuid.NewString(),
		PropertyID:  c.PropertyID,
		RequesterID: requester,
		StartDate:   start,
		EndDate:     end,
		Guests:      c.Guests,
		Status:      model.StatusPending,
		TotalCents:  totalCents,
		Currency:    currency,
		Version:     1,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  requester,
			ModifiedBy: requester,
		},
	}
}

type BookingResponse struct {
	ID          string `json:"id"`
	PropertyID  string `json:"property_id"`
	RequesterID string `json:"requester_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Guests      int64  `json:"guests"`
	Status      string `json:"status"`
	TotalCents  int64  `json:"total_cents"`
	Currency    string `json:"currency"`
	Version     int64  `json:"version"`
	gDto.Metadata
}

func (r *BookingResponse) FromModel(model model.Booking) {
	r.ID = model.ID
	r.PropertyID = model.PropertyID
	r.RequesterID = model.RequesterID
	r.StartDate = model.StartDate.Format(constant.DayFormat)
	r.EndDate = model.EndDate.Format(constant.DayFormat)
	r.Guests = model.Guests
	r.Status = model.Status
	r.TotalCents = model.TotalCents
	r.Currency = model.Currency
	r.Version = model.Version
	r.Metadata.FromModel(model.Metadata)
}

type GetBookingsResponse struct {
	Bookings  []BookingResponse `json:"bookings"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetBookingsResponse) FromModels(models []model.Booking, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Bookings = make([]BookingResponse, len(models))
	for i, mod := range models {
		r.Bookings[i].FromModel(mod)
	}
}

// BookingEvent is the payload published to the booking events topic.
type BookingEvent struct {
	BookingID  string `json:"booking_id"`
	PropertyID string `json:"property_id"`
	Status     string `json:"status"`
	Action     string `json:"action,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
