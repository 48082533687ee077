package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"roost/infras/otel"
	"roost/infras/postgres"
	"roost/internal/domains/booking/model"
	"roost/shared/constant"
	gDto "roost/shared/dto"
	"roost/shared/failure"
	"roost/shared/logger"
	gRepo "roost/shared/repository"
	"roost/shared/timezone"
)

const (
	// Serializes booking creation per property for the duration of the
	// transaction. Released automatically on commit or rollback.
	advisoryLockQuery = "SELECT pg_advisory_xact_lock(hashtext($1))"

	// Half-open interval intersection: existing.start < end AND start < existing.end.
	overlapQuery = `SELECT EXISTS(
		SELECT 1 FROM bookings
		WHERE property_id = $1
		  AND status IN ('pending', 'confirmed', 'completed')
		  AND start_date < $3
		  AND $2 < end_date
	)`

	transitionQuery = `UPDATE bookings
		SET status = $1, version = version + 1, modified_at = $2, modified_by = $3
		WHERE id = $4 AND status = $5 AND version = $6`
)

type Booking interface {
	CreateExclusive(ctx context.Context, booking model.Booking) error
	UpdateStatusVersion(ctx context.Context, id, from, to string, version int64, modifiedBy string) (bool, error)
	GetElapsedConfirmed(ctx context.Context, now time.Time) ([]model.Booking, error)
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Booking, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Booking, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Booking]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Booking {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Booking](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

// CreateExclusive inserts a pending booking if and only if no active booking
// for the same property intersects its interval. The overlap check and the
// insert run in one transaction behind a per-property advisory lock, so two
// racing requests for the same property are serialized and at most one commits.
func (repo *repositoryImpl) CreateExclusive(ctx context.Context, booking model.Booking) (err error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.CreateExclusive")
	defer scope.End()
	defer scope.TraceIfError(err)

	tx, err := repo.db.Write.BeginTxx(ctx, nil)
	if err != nil {
		logger.ErrorWithStack(err)

		return failure.Timeout("could not open booking transaction")
	}

	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				log.Error().Err(rollbackErr).Msg("failed to rollback booking transaction")
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, advisoryLockQuery, booking.PropertyID); err != nil {
		logger.ErrorWithStack(err)

		return failure.Timeout("could not lock property for booking")
	}

	var overlaps bool
	if err = tx.GetContext(ctx, &overlaps, overlapQuery, booking.PropertyID, booking.StartDate, booking.EndDate); err != nil {
		logger.ErrorWithStack(err)

		return fmt.Errorf("failed to check booking overlap: %w", err)
	}

	if overlaps {
		err = failure.Conflict("requested dates overlap an existing booking")

		return err
	}

	if err = repo.InsertTx(ctx, tx, booking); err != nil {
		logger.ErrorWithStack(err)

		return fmt.Errorf("failed to insert booking: %w", err)
	}

	if err = tx.Commit(); err != nil {
		logger.ErrorWithStack(err)

		return failure.Timeout("could not commit booking transaction")
	}

	return nil
}

// UpdateStatusVersion applies a status transition guarded by the optimistic
// version check. It reports false when no row matched, meaning the booking
// changed concurrently since it was read.
func (repo *repositoryImpl) UpdateStatusVersion(ctx context.Context, id, from, to string, version int64, modifiedBy string) (applied bool, err error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.UpdateStatusVersion")
	defer scope.End()
	defer scope.TraceIfError(err)

	result, err := repo.db.Write.ExecContext(ctx, transitionQuery, to, timezone.Now(), modifiedBy, id, from, version)
	if err != nil {
		logger.ErrorWithStack(err)

		return false, fmt.Errorf("failed to update booking status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		logger.ErrorWithStack(err)

		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected == 1, nil
}

// GetElapsedConfirmed lists confirmed bookings whose stay has ended, for the
// post-stay sweep.
func (repo *repositoryImpl) GetElapsedConfirmed(ctx context.Context, now time.Time) ([]model.Booking, error) {
	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    model.FieldStatus,
				Operator: gDto.FilterOperatorEq,
				Value:    model.StatusConfirmed,
				Table:    model.TableName,
			},
			gDto.Filter{
				Field:    model.FieldEndDate,
				Operator: gDto.FilterOperatorLessEq,
				Value:    now,
				Table:    model.TableName,
			},
		},
	}

	return repo.GetAll(ctx, gDto.QueryParams{}, filter) //nolint:wrapcheck
}
