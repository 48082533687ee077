package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"roost/infras/otel"
	"roost/infras/postgres"
	"roost/internal/domains/payment/model"
	"roost/shared/constant"
	gDto "roost/shared/dto"
	"roost/shared/failure"
	"roost/shared/logger"
	gRepo "roost/shared/repository"
	"roost/shared/timezone"
)

const settleQuery = `UPDATE payments
	SET status = $1, provider_ref = $2, failure_reason = $3, processed_at = $4, modified_at = $5, modified_by = $6
	WHERE id = $7 AND status = 'pending'`

// ErrDuplicateKey marks an insert that lost the race on the
// (booking_id, idempotency_key) unique constraint. The caller re-reads the
// winning row and replays it.
var ErrDuplicateKey = errors.New("payment already exists for idempotency key")

type Payment interface {
	InsertPending(ctx context.Context, payment model.Payment) error
	GetByIdempotencyKey(ctx context.Context, bookingID, key string) (model.Payment, error)
	Settle(ctx context.Context, id, status, providerRef, failureReason string, processedAt time.Time, modifiedBy string) (bool, error)
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Payment, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Payment, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Payment]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Payment {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Payment](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

// InsertPending inserts a new pending payment. The unique constraint on
// (booking_id, idempotency_key) makes the idempotency check race-free: a
// concurrent duplicate surfaces as ErrDuplicateKey instead of a second row.
func (repo *repositoryImpl) InsertPending(ctx context.Context, payment model.Payment) (err error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".payment.InsertPending")
	defer scope.End()
	defer scope.TraceIfError(err)

	err = repo.Insert(ctx, payment)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}

		logger.ErrorWithStack(err)

		return fmt.Errorf("failed to insert payment: %w", err)
	}

	return nil
}

func (repo *repositoryImpl) GetByIdempotencyKey(ctx context.Context, bookingID, key string) (model.Payment, error) {
	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    model.FieldBookingID,
				Operator: gDto.FilterOperatorEq,
				Value:    bookingID,
				Table:    model.TableName,
			},
			gDto.Filter{
				Field:    model.FieldIdempotencyKey,
				Operator: gDto.FilterOperatorEq,
				Value:    key,
				Table:    model.TableName,
			},
		},
	}

	return repo.Get(ctx, filter) //nolint:wrapcheck
}

// Settle moves a pending payment to its terminal status. The status guard in
// the WHERE clause makes settlement exactly-once: a payment that already
// settled matches no row and the method reports false.
func (repo *repositoryImpl) Settle(ctx context.Context, id, status, providerRef, failureReason string, processedAt time.Time, modifiedBy string) (applied bool, err error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".payment.Settle")
	defer scope.End()
	defer scope.TraceIfError(err)

	result, err := repo.db.Write.ExecContext(ctx, settleQuery, status, providerRef, failureReason, processedAt, timezone.Now(), modifiedBy, id)
	if err != nil {
		if isUniqueViolation(err) {
			// The partial unique index rejects a second completed payment
			// for the booking.
			return false, failure.Conflict("booking already has a completed payment") //nolint:wrapcheck
		}

		logger.ErrorWithStack(err)

		return false, fmt.Errorf("failed to settle payment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		logger.ErrorWithStack(err)

		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected == 1, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error

	return errors.As(err, &pqErr) && string(pqErr.Code) == constant.PqErrorCodeUniqueViolation
}
