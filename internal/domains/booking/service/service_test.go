package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"roost/config"
	kafkaMocks "roost/infras/kafka/mocks"
	"roost/infras/otel/mocks"
	bookingMocks "roost/internal/domains/booking/mocks"
	"roost/internal/domains/booking/model"
	"roost/internal/domains/booking/model/dto"
	"roost/internal/domains/booking/service"
	propertyMocks "roost/internal/domains/property/mocks"
	propertyModel "roost/internal/domains/property/model"
	cacheMocks "roost/shared/cache/mocks"
	"roost/shared/constant"
	"roost/shared/failure"
	gModel "roost/shared/model"
	"roost/shared/timezone"
)

const (
	testPropertyID = "11111111-1111-4111-8111-111111111111"
	testBookingID  = "22222222-2222-4222-8222-222222222222"
	testOwnerID    = "owner-1"
	testGuestID    = "guest-1"
)

type testEnv struct {
	repo     *bookingMocks.MockBooking
	property *propertyMocks.MockProperty
	cache    *cacheMocks.MockRedisCache
	events   *kafkaMocks.MockClient
	svc      service.Booking
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	ctrl := gomock.NewController(t)

	repo := bookingMocks.NewMockBooking(ctrl)
	property := propertyMocks.NewMockProperty(ctrl)
	cache := cacheMocks.NewMockRedisCache(ctrl)
	events := kafkaMocks.NewMockClient(ctrl)

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600
	cfg.Kafka.Topics.BookingEvents = "booking-events"

	// Cache writes and event publishing are fire-and-forget goroutines.
	cache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	events.EXPECT().SendMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	return testEnv{
		repo:     repo,
		property: property,
		cache:    cache,
		events:   events,
		svc:      service.New(repo, property, cfg, cache, events, mocks.NewOtel()),
	}
}

func testProperty() propertyModel.Property {
	return propertyModel.Property{
		ID:                     testPropertyID,
		OwnerID:                testOwnerID,
		Name:                   "Seaside Cottage",
		NightlyRateCents:       120,
		Currency:               "USD",
		MinStayNights:          1,
		MaxStayNights:          14,
		MaxGuests:              4,
		CancellationCutoffDays: 3,
	}
}

func testBooking(status string) model.Booking {
	return model.Booking{
		ID:          testBookingID,
		PropertyID:  testPropertyID,
		RequesterID: testGuestID,
		StartDate:   time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 9, 5, 0, 0, 0, 0, time.UTC),
		Guests:      2,
		Status:      status,
		TotalCents:  480,
		Currency:    "USD",
		Version:     1,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  testGuestID,
			ModifiedBy: testGuestID,
		},
	}
}

func requesterCtx() context.Context {
	return context.WithValue(context.Background(), constant.ContextKeyUserID, testGuestID)
}

func TestBookingService_Create(t *testing.T) {
	tests := []struct {
		name      string
		req       dto.CreateBookingRequest
		setupMock func(env testEnv)
		wantErr   bool
		wantCode  int
		wantTotal int64
	}{
		{
			name: "four nights priced at 480",
			req: dto.CreateBookingRequest{
				PropertyID: testPropertyID,
				StartDate:  "2025-09-01",
				EndDate:    "2025-09-05",
				Guests:     2,
			},
			setupMock: func(env testEnv) {
				env.property.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(testProperty(), nil)
				env.repo.EXPECT().
					CreateExclusive(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, booking model.Booking) error {
						assert.Equal(t, int64(480), booking.TotalCents)
						assert.Equal(t, model.StatusPending, booking.Status)
						assert.Equal(t, int64(1), booking.Version)

						return nil
					})
			},
			wantTotal: 480,
		},
		{
			name: "overlapping dates conflict",
			req: dto.CreateBookingRequest{
				PropertyID: testPropertyID,
				StartDate:  "2025-09-03",
				EndDate:    "2025-09-06",
				Guests:     2,
			},
			setupMock: func(env testEnv) {
				env.property.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(testProperty(), nil)
				env.repo.EXPECT().
					CreateExclusive(gomock.Any(), gomock.Any()).
					Return(failure.Conflict("requested dates overlap an existing booking"))
			},
			wantErr:  true,
			wantCode: http.StatusConflict,
		},
		{
			name: "adjacent stay is admissible and priced at 360",
			req: dto.CreateBookingRequest{
				PropertyID: testPropertyID,
				StartDate:  "2025-09-05",
				EndDate:    "2025-09-08",
				Guests:     2,
			},
			setupMock: func(env testEnv) {
				env.property.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(testProperty(), nil)
				env.repo.EXPECT().
					CreateExclusive(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, booking model.Booking) error {
						assert.Equal(t, int64(360), booking.TotalCents)

						return nil
					})
			},
			wantTotal: 360,
		},
		{
			name: "start not before end",
			req: dto.CreateBookingRequest{
				PropertyID: testPropertyID,
				StartDate:  "2025-09-05",
				EndDate:    "2025-09-05",
				Guests:     2,
			},
			setupMock: func(testEnv) {},
			wantErr:   true,
			wantCode:  http.StatusBadRequest,
		},
		{
			name: "property not found",
			req: dto.CreateBookingRequest{
				PropertyID: testPropertyID,
				StartDate:  "2025-09-01",
				EndDate:    "2025-09-05",
				Guests:     2,
			},
			setupMock: func(env testEnv) {
				env.property.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(propertyModel.Property{}, nil)
			},
			wantErr:  true,
			wantCode: http.StatusNotFound,
		},
		{
			name: "stay longer than maximum",
			req: dto.CreateBookingRequest{
				PropertyID: testPropertyID,
				StartDate:  "2025-09-01",
				EndDate:    "2025-10-01",
				Guests:     2,
			},
			setupMock: func(env testEnv) {
				env.property.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(testProperty(), nil)
			},
			wantErr:  true,
			wantCode: http.StatusBadRequest,
		},
		{
			name: "too many guests",
			req: dto.CreateBookingRequest{
				PropertyID: testPropertyID,
				StartDate:  "2025-09-01",
				EndDate:    "2025-09-05",
				Guests:     9,
			},
			setupMock: func(env testEnv) {
				env.property.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(testProperty(), nil)
			},
			wantErr:  true,
			wantCode: http.StatusBadRequest,
		},
		{
			name: "repository error",
			req: dto.CreateBookingRequest{
				PropertyID: testPropertyID,
				StartDate:  "2025-09-01",
				EndDate:    "2025-09-05",
				Guests:     2,
			},
			setupMock: func(env testEnv) {
				env.property.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(testProperty(), nil)
				env.repo.EXPECT().
					CreateExclusive(gomock.Any(), gomock.Any()).
					Return(errors.New("database error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			tt.setupMock(env)

			res, err := env.svc.Create(requesterCtx(), tt.req)

			if tt.wantErr {
				assert.Error(t, err)

				if tt.wantCode != 0 {
					assert.Equal(t, tt.wantCode, failure.GetCode(err))
				}

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.wantTotal, res.TotalCents)
			assert.Equal(t, model.StatusPending, res.Status)
		})
	}
}

func TestBookingService_Transition(t *testing.T) {
	// The cutoff scenario needs dates anchored to the current clock: the stay
	// starts in 2 days while the cancellation cutoff is 3 days.
	nearBooking := testBooking(model.StatusConfirmed)
	nearBooking.StartDate = timezone.Now().AddDate(0, 0, 2)
	nearBooking.EndDate = nearBooking.StartDate.AddDate(0, 0, 4)

	farBooking := testBooking(model.StatusConfirmed)
	farBooking.StartDate = timezone.Now().AddDate(0, 0, 30)
	farBooking.EndDate = farBooking.StartDate.AddDate(0, 0, 4)

	tests := []struct {
		name       string
		action     string
		actor      model.Actor
		booking    model.Booking
		setupMock  func(env testEnv, booking model.Booking)
		wantStatus string
		wantErr    bool
		wantCode   int
	}{
		{
			name:    "owner confirms pending booking",
			action:  model.ActionConfirm,
			actor:   model.Actor{ID: testOwnerID, Role: constant.RoleHost},
			booking: testBooking(model.StatusPending),
			setupMock: func(env testEnv, booking model.Booking) {
				env.property.EXPECT().Get(gomock.Any(), gomock.Any()).Return(testProperty(), nil)
				env.repo.EXPECT().
					UpdateStatusVersion(gomock.Any(), booking.ID, model.StatusPending, model.StatusConfirmed, booking.Version, testOwnerID).
					Return(true, nil)
			},
			wantStatus: model.StatusConfirmed,
		},
		{
			name:    "admin confirms pending booking",
			action:  model.ActionConfirm,
			actor:   model.Actor{ID: "admin-1", Role: constant.RoleAdmin},
			booking: testBooking(model.StatusPending),
			setupMock: func(env testEnv, booking model.Booking) {
				env.property.EXPECT().Get(gomock.Any(), gomock.Any()).Return(testProperty(), nil)
				env.repo.EXPECT().
					UpdateStatusVersion(gomock.Any(), booking.ID, model.StatusPending, model.StatusConfirmed, booking.Version, "admin-1").
					Return(true, nil)
			},
			wantStatus: model.StatusConfirmed,
		},
		{
			name:    "requester cannot confirm",
			action:  model.ActionConfirm,
			actor:   model.Actor{ID: testGuestID, Role: constant.RoleGuest},
			booking: testBooking(model.StatusPending),
			setupMock: func(env testEnv, _ model.Booking) {
				env.property.EXPECT().Get(gomock.Any(), gomock.Any()).Return(testProperty(), nil)
			},
			wantErr:  true,
			wantCode: http.StatusForbidden,
		},
		{
			name:    "requester cancels pending booking",
			action:  model.ActionCancel,
			actor:   model.Actor{ID: testGuestID, Role: constant.RoleGuest},
			booking: testBooking(model.StatusPending),
			setupMock: func(env testEnv, booking model.Booking) {
				env.property.EXPECT().Get(gomock.Any(), gomock.Any()).Return(testProperty(), nil)
				env.repo.EXPECT().
					UpdateStatusVersion(gomock.Any(), booking.ID, model.StatusPending, model.StatusCanceled, booking.Version, testGuestID).
					Return(true, nil)
			},
			wantStatus: model.StatusCanceled,
		},
		{
			name:    "requester cancel inside cutoff is forbidden",
			action:  model.ActionCancel,
			actor:   model.Actor{ID: testGuestID, Role: constant.RoleGuest},
			booking: nearBooking,
			setupMock: func(env testEnv, _ model.Booking) {
				env.property.EXPECT().Get(gomock.Any(), gomock.Any()).Return(testProperty(), nil)
			},
			wantErr:  true,
			wantCode: http.StatusForbidden,
		},
		{
			name:    "owner cancels inside cutoff",
			action:  model.ActionCancel,
			actor:   model.Actor{ID: testOwnerID, Role: constant.RoleHost},
			booking: nearBooking,
			setupMock: func(env testEnv, booking model.Booking) {
				env.property.EXPECT().Get(gomock.Any(), gomock.Any()).Return(testProperty(), nil)
				env.repo.EXPECT().
					UpdateStatusVersion(gomock.Any(), booking.ID, model.StatusConfirmed, model.StatusCanceled, booking.Version, testOwnerID).
					Return(true, nil)
			},
			wantStatus: model.StatusCanceled,
		},
		{
			name:    "requester cancels before cutoff",
			action:  model.ActionCancel,
			actor:   model.Actor{ID: testGuestID, Role: constant.RoleGuest},
			booking: farBooking,
			setupMock: func(env testEnv, booking model.Booking) {
				env.property.EXPECT().Get(gomock.Any(), gomock.Any()).Return(testProperty(), nil)
				env.repo.EXPECT().
					UpdateStatusVersion(gomock.Any(), booking.ID, model.StatusConfirmed, model.StatusCanceled, booking.Version, testGuestID).
					Return(true, nil)
			},
			wantStatus: model.StatusCanceled,
		},
		{
			name:      "completed booking never un-terminates",
			action:    model.ActionCancel,
			actor:     model.Actor{ID: "admin-1", Role: constant.RoleAdmin},
			booking:   testBooking(model.StatusCompleted),
			setupMock: func(testEnv, model.Booking) {},
			wantErr:   true,
			wantCode:  http.StatusConflict,
		},
		{
			name:      "canceled booking never un-terminates",
			action:    model.ActionConfirm,
			actor:     model.Actor{ID: "admin-1", Role: constant.RoleAdmin},
			booking:   testBooking(model.StatusCanceled),
			setupMock: func(testEnv, model.Booking) {},
			wantErr:   true,
			wantCode:  http.StatusConflict,
		},
		{
			name:    "concurrent modification conflicts",
			action:  model.ActionConfirm,
			actor:   model.Actor{ID: testOwnerID, Role: constant.RoleHost},
			booking: testBooking(model.StatusPending),
			setupMock: func(env testEnv, booking model.Booking) {
				env.property.EXPECT().Get(gomock.Any(), gomock.Any()).Return(testProperty(), nil)
				env.repo.EXPECT().
					UpdateStatusVersion(gomock.Any(), booking.ID, model.StatusPending, model.StatusConfirmed, booking.Version, testOwnerID).
					Return(false, nil)
			},
			wantErr:  true,
			wantCode: http.StatusConflict,
		},
		{
			name:    "settlement completes confirmed booking",
			action:  model.ActionComplete,
			actor:   model.SystemActor(),
			booking: testBooking(model.StatusConfirmed),
			setupMock: func(env testEnv, booking model.Booking) {
				env.repo.EXPECT().
					UpdateStatusVersion(gomock.Any(), booking.ID, model.StatusConfirmed, model.StatusCompleted, booking.Version, "system").
					Return(true, nil)
			},
			wantStatus: model.StatusCompleted,
		},
		{
			name:      "external actor cannot complete",
			action:    model.ActionComplete,
			actor:     model.Actor{ID: testOwnerID, Role: constant.RoleHost},
			booking:   testBooking(model.StatusConfirmed),
			setupMock: func(testEnv, model.Booking) {},
			wantErr:   true,
			wantCode:  http.StatusForbidden,
		},
		{
			name:      "complete requires confirmed",
			action:    model.ActionComplete,
			actor:     model.SystemActor(),
			booking:   testBooking(model.StatusPending),
			setupMock: func(testEnv, model.Booking) {},
			wantErr:   true,
			wantCode:  http.StatusConflict,
		},
		{
			name:      "unknown action",
			action:    "archive",
			actor:     model.Actor{ID: "admin-1", Role: constant.RoleAdmin},
			booking:   testBooking(model.StatusPending),
			setupMock: func(testEnv, model.Booking) {},
			wantErr:   true,
			wantCode:  http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			env.repo.EXPECT().
				Get(gomock.Any(), gomock.Any()).
				Return(tt.booking, nil)

			tt.setupMock(env, tt.booking)

			res, err := env.svc.Transition(context.Background(), tt.booking.ID, tt.action, tt.actor)

			if tt.wantErr {
				assert.Error(t, err)

				if tt.wantCode != 0 {
					assert.Equal(t, tt.wantCode, failure.GetCode(err))
				}

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, tt.booking.Version+1, res.Version)
		})
	}
}

func TestBookingService_Transition_NotFound(t *testing.T) {
	env := newTestEnv(t)

	env.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(model.Booking{}, nil)

	_, err := env.svc.Transition(context.Background(), testBookingID, model.ActionConfirm, model.Actor{ID: testOwnerID})

	assert.Error(t, err)
	assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
}

func TestBookingService_Get(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(env testEnv)
		wantErr   bool
		wantCode  int
	}{
		{
			name: "cache miss falls through to store",
			setupMock: func(env testEnv) {
				env.cache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))
				env.repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(testBooking(model.StatusPending), nil)
			},
		},
		{
			name: "not found",
			setupMock: func(env testEnv) {
				env.cache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))
				env.repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(model.Booking{}, nil)
			},
			wantErr:  true,
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			tt.setupMock(env)

			res, err := env.svc.Get(context.Background(), testBookingID)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, testBookingID, res.ID)
		})
	}
}

func TestBookingService_CompleteElapsed(t *testing.T) {
	env := newTestEnv(t)

	first := testBooking(model.StatusConfirmed)
	second := testBooking(model.StatusConfirmed)
	second.ID = "33333333-3333-4333-8333-333333333333"

	env.repo.EXPECT().
		GetElapsedConfirmed(gomock.Any(), gomock.Any()).
		Return([]model.Booking{first, second}, nil)
	env.repo.EXPECT().
		UpdateStatusVersion(gomock.Any(), first.ID, model.StatusConfirmed, model.StatusCompleted, first.Version, "system").
		Return(true, nil)
	// The second booking changed concurrently and is skipped.
	env.repo.EXPECT().
		UpdateStatusVersion(gomock.Any(), second.ID, model.StatusConfirmed, model.StatusCompleted, second.Version, "system").
		Return(false, nil)

	completed, err := env.svc.CompleteElapsed(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, completed)
}
