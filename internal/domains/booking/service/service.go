package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=./mocks/service_mock.go -package=mocks

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"roost/config"
	"roost/infras/kafka"
	"roost/infras/otel"
	"roost/internal/domains/booking/model"
	"roost/internal/domains/booking/model/dto"
	"roost/internal/domains/booking/repository"
	"roost/internal/domains/pricing"
	propertyModel "roost/internal/domains/property/model"
	propertyRepo "roost/internal/domains/property/repository"
	"roost/shared"
	"roost/shared/cache"
	"roost/shared/constant"
	gDto "roost/shared/dto"
	"roost/shared/failure"
	"roost/shared/timezone"
)

const (
	cacheGetBooking    = "booking:get"
	cacheGetAllBooking = "booking:gets"
	cacheCountBooking  = "booking:count"

	eventBookingCreated       = "booking.created"
	eventBookingStatusChanged = "booking.status_changed"
)

type Booking interface {
	Create(ctx context.Context, req dto.CreateBookingRequest) (dto.BookingResponse, error)
	Transition(ctx context.Context, id, action string, actor model.Actor) (dto.BookingResponse, error)
	Get(ctx context.Context, id string) (dto.BookingResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetBookingsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	CompleteElapsed(ctx context.Context) (int, error)
}

type serviceImpl struct {
	repo         repository.Booking
	propertyRepo propertyRepo.Property
	cfg          *config.Config
	cache        cache.RedisCache
	events       kafka.Client
	otel         otel.Otel
}

func New(repo repository.Booking, propertyRepo propertyRepo.Property, cfg *config.Config, cache cache.RedisCache, events kafka.Client, otel otel.Otel) Booking {
	return &serviceImpl{
		repo:         repo,
		propertyRepo: propertyRepo,
		cfg:          cfg,
		cache:        cache,
		events:       events,
		otel:         otel,
	}
}

// Create admits the booking only if its interval does not intersect any
// active booking for the property. Admission and insert happen atomically in
// the repository; no state outside the store is consulted.
func (s *serviceImpl) Create(ctx context.Context, req dto.CreateBookingRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer scope.TraceIfError(err)

	requester, _ := ctx.Value(constant.ContextKeyUserID).(string)

	start, end, err := req.Interval()
	if err != nil {
		return res, failure.BadRequestFromString(fmt.Sprintf("invalid date format: %v", err)) //nolint:wrapcheck
	}

	if !start.Before(end) {
		return res, failure.BadRequestFromString("start date must be before end date") //nolint:wrapcheck
	}

	property, err := s.propertyRepo.Get(ctx, shared.FilterByID(req.PropertyID, propertyModel.FieldID, propertyModel.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get property")

		return res, fmt.Errorf("failed to get property: %w", err)
	}

	if property.ID == constant.Empty {
		return res, failure.NotFound("property not found") //nolint:wrapcheck
	}

	nights := pricing.Nights(start, end)
	if nights < property.MinStayNights || nights > property.MaxStayNights {
		return res, failure.BadRequestFromString(fmt.Sprintf("stay length must be between %d and %d nights", property.MinStayNights, property.MaxStayNights)) //nolint:wrapcheck
	}

	if req.Guests > property.MaxGuests {
		return res, failure.BadRequestFromString(fmt.Sprintf("property sleeps at most %d guests", property.MaxGuests)) //nolint:wrapcheck
	}

	quote := pricing.Calculate(start, end, property.NightlyRateCents, s.feeRules())
	booking := req.ToModel(requester, start, end, quote.TotalCents, property.Currency)

	if err = s.repo.CreateExclusive(ctx, booking); err != nil {
		log.Error().Err(err).Str("propertyID", req.PropertyID).Msg("failed to create booking")

		return res, fmt.Errorf("failed to create booking: %w", err)
	}

	res.FromModel(booking)

	go func() {
		c := context.WithoutCancel(ctx)

		s.publishEvent(c, eventBookingCreated, booking, "")
		shared.InvalidateCaches(c, s.cache, cacheGetAllBooking)
		shared.InvalidateCaches(c, s.cache, cacheCountBooking)
	}()

	return res, nil
}

// Transition drives the booking state machine. Concurrency is optimistic: the
// booking is read with its version, the guard is evaluated, and the write is
// conditional on status and version still matching. A lost race surfaces as
// Conflict for the caller to retry.
func (s *serviceImpl) Transition(ctx context.Context, id, action string, actor model.Actor) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Transition")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return res, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return res, failure.NotFound("booking not found") //nolint:wrapcheck
	}

	target, err := s.guardTransition(ctx, booking, action, actor, timezone.Now())
	if err != nil {
		return res, err
	}

	applied, err := s.repo.UpdateStatusVersion(ctx, booking.ID, booking.Status, target, booking.Version, actor.ID)
	if err != nil {
		log.Error().Err(err).Str("bookingID", id).Msg("failed to apply booking transition")

		return res, fmt.Errorf("failed to apply booking transition: %w", err)
	}

	if !applied {
		return res, failure.Conflict("booking was modified concurrently, retry") //nolint:wrapcheck
	}

	booking.Status = target
	booking.Version++
	res.FromModel(booking)

	go func() {
		c := context.WithoutCancel(ctx)

		s.publishEvent(c, eventBookingStatusChanged, booking, action)
		s.invalidateBooking(c, booking.ID)
	}()

	return res, nil
}

// guardTransition evaluates the transition table. It returns the target
// status when the action is allowed for the actor at the given time.
func (s *serviceImpl) guardTransition(ctx context.Context, booking model.Booking, action string, actor model.Actor, now time.Time) (string, error) {
	if booking.IsTerminal() {
		return "", failure.InvalidTransition(fmt.Sprintf("booking is %s and cannot change status", booking.Status)) //nolint:wrapcheck
	}

	switch action {
	case model.ActionConfirm:
		if booking.Status != model.StatusPending {
			return "", failure.InvalidTransition(fmt.Sprintf("cannot confirm a %s booking", booking.Status)) //nolint:wrapcheck
		}

		property, err := s.getProperty(ctx, booking.PropertyID)
		if err != nil {
			return "", err
		}

		if !actor.System && actor.Role != constant.RoleAdmin && actor.ID != property.OwnerID {
			return "", failure.Forbidden("only the property owner or an admin may confirm a booking") //nolint:wrapcheck
		}

		return model.StatusConfirmed, nil

	case model.ActionCancel:
		property, err := s.getProperty(ctx, booking.PropertyID)
		if err != nil {
			return "", err
		}

		isPrivileged := actor.System || actor.Role == constant.RoleAdmin || actor.ID == property.OwnerID
		isRequester := actor.ID == booking.RequesterID

		if booking.Status == model.StatusPending {
			if !isPrivileged && !isRequester {
				return "", failure.Forbidden("not allowed to cancel this booking") //nolint:wrapcheck
			}

			return model.StatusCanceled, nil
		}

		// Confirmed bookings: the requester may only cancel before the
		// property's cutoff; owners and admins may cancel at any time.
		if isPrivileged {
			return model.StatusCanceled, nil
		}

		if !isRequester {
			return "", failure.Forbidden("not allowed to cancel this booking") //nolint:wrapcheck
		}

		cutoff := booking.StartDate.AddDate(0, 0, -int(property.CancellationCutoffDays))
		if !now.Before(cutoff) {
			return "", failure.Forbidden(fmt.Sprintf("cancellation window closed %d days before the stay", property.CancellationCutoffDays)) //nolint:wrapcheck
		}

		return model.StatusCanceled, nil

	case model.ActionComplete:
		if booking.Status != model.StatusConfirmed {
			return "", failure.InvalidTransition(fmt.Sprintf("cannot complete a %s booking", booking.Status)) //nolint:wrapcheck
		}

		if !actor.System {
			return "", failure.Forbidden("bookings are completed by settlement or the post-stay sweep") //nolint:wrapcheck
		}

		return model.StatusCompleted, nil

	default:
		return "", failure.BadRequestFromString(fmt.Sprintf("unknown action %q", action)) //nolint:wrapcheck
	}
}

func (s *serviceImpl) getProperty(ctx context.Context, id string) (propertyModel.Property, error) {
	property, err := s.propertyRepo.Get(ctx, shared.FilterByID(id, propertyModel.FieldID, propertyModel.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get property")

		return property, fmt.Errorf("failed to get property: %w", err)
	}

	if property.ID == constant.Empty {
		return property, failure.NotFound("property not found") //nolint:wrapcheck
	}

	return property, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetBooking, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking")

		return res, nil
	}

	booking, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return res, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return res, failure.NotFound("booking not found") //nolint:wrapcheck
	}

	res.FromModel(booking)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllBooking, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for bookings")

		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get bookings")

		return res, fmt.Errorf("failed to get bookings: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save bookings to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Count")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountBooking, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking count")

		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking count to cache")
		}
	}()

	return res, nil
}

// CompleteElapsed completes every confirmed booking whose stay has ended.
// Bookings that change concurrently are skipped and picked up on the next
// sweep.
func (s *serviceImpl) CompleteElapsed(ctx context.Context) (completed int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".CompleteElapsed")
	defer scope.End()
	defer scope.TraceIfError(err)

	elapsed, err := s.repo.GetElapsedConfirmed(ctx, timezone.Now())
	if err != nil {
		log.Error().Err(err).Msg("failed to list elapsed bookings")

		return 0, fmt.Errorf("failed to list elapsed bookings: %w", err)
	}

	actor := model.SystemActor()

	for _, booking := range elapsed {
		applied, updateErr := s.repo.UpdateStatusVersion(ctx, booking.ID, booking.Status, model.StatusCompleted, booking.Version, actor.ID)
		if updateErr != nil {
			log.Error().Err(updateErr).Str("bookingID", booking.ID).Msg("failed to complete elapsed booking")

			continue
		}

		if !applied {
			log.Info().Str("bookingID", booking.ID).Msg("elapsed booking changed concurrently, skipping")

			continue
		}

		completed++

		booking.Status = model.StatusCompleted
		booking.Version++

		c := context.WithoutCancel(ctx)
		s.publishEvent(c, eventBookingStatusChanged, booking, model.ActionComplete)
		s.invalidateBooking(c, booking.ID)
	}

	return completed, nil
}

func (s *serviceImpl) feeRules() pricing.FeeRules {
	return pricing.FeeRules{
		CleaningCents: s.cfg.Booking.Fees.CleaningCents,
		ServiceBps:    s.cfg.Booking.Fees.ServiceBps,
	}
}

func (s *serviceImpl) publishEvent(ctx context.Context, key string, booking model.Booking, action string) {
	event := dto.BookingEvent{
		BookingID:  booking.ID,
		PropertyID: booking.PropertyID,
		Status:     booking.Status,
		Action:     action,
		OccurredAt: timezone.Now().Format(constant.DateFormat),
	}

	if err := s.events.SendMessages(ctx, s.cfg.Kafka.Topics.BookingEvents, kafka.Message{Key: key, Value: event}); err != nil {
		log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to publish booking event")
	}
}

func (s *serviceImpl) invalidateBooking(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, shared.BuildCacheKey(cacheGetBooking, id)); err != nil {
		log.Error().Err(err).Msg("failed to delete booking from cache")
	}

	shared.InvalidateCaches(ctx, s.cache, cacheGetAllBooking)
	shared.InvalidateCaches(ctx, s.cache, cacheCountBooking)
}
