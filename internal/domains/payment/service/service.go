package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=./mocks/service_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"roost/config"
	"roost/infras/gateway"
	"roost/infras/kafka"
	"roost/infras/otel"
	"roost/infras/s3"
	bookingModel "roost/internal/domains/booking/model"
	bookingRepo "roost/internal/domains/booking/repository"
	bookingService "roost/internal/domains/booking/service"
	"roost/internal/domains/payment/model"
	"roost/internal/domains/payment/model/dto"
	"roost/internal/domains/payment/repository"
	"roost/shared"
	"roost/shared/cache"
	"roost/shared/constant"
	gDto "roost/shared/dto"
	"roost/shared/failure"
	"roost/shared/timezone"
)

const (
	cacheGetPayment    = "payment:get"
	cacheGetAllPayment = "payment:gets"
	cacheCountPayment  = "payment:count"

	eventPaymentSettled = "payment.settled"
)

type Payment interface {
	Pay(ctx context.Context, req dto.PayRequest) (dto.PaymentResponse, error)
	Reconcile(ctx context.Context, req dto.GatewayCallbackRequest) (dto.PaymentResponse, error)
	Get(ctx context.Context, id string) (dto.PaymentResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetPaymentsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
}

type serviceImpl struct {
	repo        repository.Payment
	bookingRepo bookingRepo.Booking
	bookingSvc  bookingService.Booking
	gateway     gateway.PaymentGateway
	receipts    s3.ReceiptStore
	cfg         *config.Config
	cache       cache.RedisCache
	events      kafka.Client
	otel        otel.Otel
}

func New(
	repo repository.Payment,
	bookingRepo bookingRepo.Booking,
	bookingSvc bookingService.Booking,
	gateway gateway.PaymentGateway,
	receipts s3.ReceiptStore,
	cfg *config.Config,
	cache cache.RedisCache,
	events kafka.Client,
	otel otel.Otel,
) Payment {
	return &serviceImpl{
		repo:        repo,
		bookingRepo: bookingRepo,
		bookingSvc:  bookingSvc,
		gateway:     gateway,
		receipts:    receipts,
		cfg:         cfg,
		cache:       cache,
		events:      events,
		otel:        otel,
	}
}

// Pay settles a payment attempt against a confirmed booking. Replays of the
// same (booking, idempotency key) pair return the original payment untouched;
// the unique constraint behind InsertPending closes the race between two
// first-time submissions.
func (s *serviceImpl) Pay(ctx context.Context, req dto.PayRequest) (res dto.PaymentResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Pay")
	defer scope.End()
	defer scope.TraceIfError(err)

	requester, _ := ctx.Value(constant.ContextKeyUserID).(string)

	existing, err := s.repo.GetByIdempotencyKey(ctx, req.BookingID, req.IdempotencyKey)
	if err != nil {
		log.Error().Err(err).Msg("failed to look up payment by idempotency key")

		return res, fmt.Errorf("failed to look up payment: %w", err)
	}

	if existing.ID != constant.Empty {
		log.Info().Str("paymentID", existing.ID).Msg("idempotent payment replay")
		res.FromModel(existing)

		return res, nil
	}

	booking, err := s.bookingRepo.Get(ctx, shared.FilterByID(req.BookingID, bookingModel.FieldID, bookingModel.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking for payment")

		return res, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return res, failure.NotFound("booking not found") //nolint:wrapcheck
	}

	if booking.Status != bookingModel.StatusConfirmed {
		return res, failure.NotPayable(fmt.Sprintf("booking is %s, only confirmed bookings are payable", booking.Status)) //nolint:wrapcheck
	}

	if req.AmountCents != booking.TotalCents || req.Currency != booking.Currency {
		return res, failure.AmountMismatch(fmt.Sprintf("payment must be %d %s", booking.TotalCents, booking.Currency)) //nolint:wrapcheck
	}

	payment := req.ToModel(requester)

	err = s.repo.InsertPending(ctx, payment)
	if errors.Is(err, repository.ErrDuplicateKey) {
		// Lost the insert race; the winner's row is the canonical result.
		winner, getErr := s.repo.GetByIdempotencyKey(ctx, req.BookingID, req.IdempotencyKey)
		if getErr != nil {
			log.Error().Err(getErr).Msg("failed to re-read payment after duplicate insert")

			return res, fmt.Errorf("failed to re-read payment: %w", getErr)
		}

		res.FromModel(winner)

		return res, nil
	}

	if err != nil {
		log.Error().Err(err).Msg("failed to insert pending payment")

		return res, fmt.Errorf("failed to insert pending payment: %w", err)
	}

	result, err := s.gateway.Charge(ctx, gateway.ChargeRequest{
		AmountCents:  payment.AmountCents,
		Currency:     payment.Currency,
		PaymentToken: req.PaymentToken,
		// The provider echoes this back in its asynchronous callback.
		IdempotencyKey: payment.ID,
	})
	if err != nil {
		// The payment stays pending; a provider callback reconciles it.
		log.Error().Err(err).Str("paymentID", payment.ID).Msg("gateway charge did not complete")

		return res, fmt.Errorf("gateway charge did not complete: %w", err)
	}

	outcome := model.OutcomeFailed
	if result.Approved {
		outcome = model.OutcomeCompleted
	}

	settled, err := s.settleOutcome(ctx, payment, outcome, result.ProviderRef, result.Reason)
	if err != nil {
		return res, err
	}

	res.FromModel(settled)

	return res, nil
}

// Reconcile is the asynchronous-callback entry into settlement. Duplicate
// callbacks for an already-settled payment are no-ops that return the stored
// result.
func (s *serviceImpl) Reconcile(ctx context.Context, req dto.GatewayCallbackRequest) (res dto.PaymentResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Reconcile")
	defer scope.End()
	defer scope.TraceIfError(err)

	payment, err := s.repo.Get(ctx, shared.FilterByID(req.PaymentID, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get payment for reconciliation")

		return res, fmt.Errorf("failed to get payment: %w", err)
	}

	if payment.ID == constant.Empty {
		return res, failure.NotFound("payment not found") //nolint:wrapcheck
	}

	if payment.IsTerminal() {
		log.Info().
			Str("paymentID", payment.ID).
			Str("providerRef", req.ProviderRef).
			Msg("duplicate gateway callback on settled payment, ignoring")
		res.FromModel(payment)

		return res, nil
	}

	settled, err := s.settleOutcome(ctx, payment, req.Outcome, req.ProviderRef, req.Reason)
	if err != nil {
		return res, err
	}

	res.FromModel(settled)

	return res, nil
}

// settleOutcome moves a pending payment to its terminal status and, on
// success, completes the booking. Both the synchronous gateway reply and the
// asynchronous callback funnel through here, so duplicates resolve the same
// way regardless of path.
func (s *serviceImpl) settleOutcome(ctx context.Context, payment model.Payment, outcome, providerRef, reason string) (model.Payment, error) {
	status := model.StatusFailed
	if outcome == model.OutcomeCompleted {
		status = model.StatusCompleted
		reason = constant.Empty
	}

	processedAt := timezone.Now()

	applied, err := s.repo.Settle(ctx, payment.ID, status, providerRef, reason, processedAt, bookingModel.SystemActor().ID)
	if err != nil {
		log.Error().Err(err).Str("paymentID", payment.ID).Msg("failed to settle payment")

		return payment, fmt.Errorf("failed to settle payment: %w", err)
	}

	if !applied {
		// Another path settled first; its result is authoritative.
		current, getErr := s.repo.Get(ctx, shared.FilterByID(payment.ID, model.FieldID, model.TableName))
		if getErr != nil {
			log.Error().Err(getErr).Msg("failed to re-read settled payment")

			return payment, fmt.Errorf("failed to re-read settled payment: %w", getErr)
		}

		return current, nil
	}

	payment.Status = status
	payment.ProviderRef = providerRef
	payment.FailureReason = reason
	payment.ProcessedAt = &processedAt

	if status == model.StatusCompleted {
		if _, transitionErr := s.bookingSvc.Transition(ctx, payment.BookingID, bookingModel.ActionComplete, bookingModel.SystemActor()); transitionErr != nil {
			// The payment settled; the booking transition is retried by the
			// post-stay sweep if it raced with another change.
			log.Error().Err(transitionErr).
				Str("bookingID", payment.BookingID).
				Msg("failed to complete booking after settlement")
		}
	}

	go func() {
		c := context.WithoutCancel(ctx)

		s.afterSettle(c, payment)
	}()

	return payment, nil
}

// afterSettle archives the receipt, publishes the settlement event, and drops
// stale cache entries. All best-effort: settlement itself already committed.
func (s *serviceImpl) afterSettle(ctx context.Context, payment model.Payment) {
	if payment.Status == model.StatusCompleted {
		receipt := dto.Receipt{
			PaymentID:   payment.ID,
			BookingID:   payment.BookingID,
			AmountCents: payment.AmountCents,
			Currency:    payment.Currency,
			Method:      payment.Method,
			ProviderRef: payment.ProviderRef,
			SettledAt:   payment.ProcessedAt.Format(constant.DateFormat),
		}

		if _, err := s.receipts.ArchiveReceipt(ctx, payment.ID+".json", receipt); err != nil {
			log.Error().Err(err).Str("paymentID", payment.ID).Msg("failed to archive settlement receipt")
		}
	}

	event := dto.PaymentEvent{
		PaymentID:   payment.ID,
		BookingID:   payment.BookingID,
		Status:      payment.Status,
		AmountCents: payment.AmountCents,
		Currency:    payment.Currency,
		OccurredAt:  timezone.Now().Format(constant.DateFormat),
	}

	if err := s.events.SendMessages(ctx, s.cfg.Kafka.Topics.PaymentEvents, kafka.Message{Key: eventPaymentSettled, Value: event}); err != nil {
		log.Error().Err(err).Str("paymentID", payment.ID).Msg("failed to publish payment event")
	}

	if err := s.cache.Delete(ctx, shared.BuildCacheKey(cacheGetPayment, payment.ID)); err != nil {
		log.Error().Err(err).Msg("failed to delete payment from cache")
	}

	shared.InvalidateCaches(ctx, s.cache, cacheGetAllPayment)
	shared.InvalidateCaches(ctx, s.cache, cacheCountPayment)
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.PaymentResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetPayment, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for payment")

		return res, nil
	}

	payment, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get payment")

		return res, fmt.Errorf("failed to get payment: %w", err)
	}

	if payment.ID == constant.Empty {
		return res, failure.NotFound("payment not found") //nolint:wrapcheck
	}

	res.FromModel(payment)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save payment to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetPaymentsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllPayment, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for payments")

		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count payments")

		return res, fmt.Errorf("failed to count payments: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get payments")

		return res, fmt.Errorf("failed to get payments: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save payments to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Count")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountPayment, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for payment count")

		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count payments")

		return res, fmt.Errorf("failed to count payments: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save payment count to cache")
		}
	}()

	return res, nil
}
