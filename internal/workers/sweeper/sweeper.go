package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"roost/config"
	"roost/infras/otel"
	"roost/internal/domains/booking/service"
	"roost/shared/constant"
)

// Sweeper periodically completes confirmed bookings whose stay has ended.
// It is the safety net for stays that finished without a settlement-driven
// completion.
type Sweeper struct {
	service service.Booking
	cfg     *config.Config
	otel    otel.Otel
}

func New(service service.Booking, cfg *config.Config, otel otel.Otel) *Sweeper {
	return &Sweeper{
		service: service,
		cfg:     cfg,
		otel:    otel,
	}
}

// Run sweeps on the configured interval until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	interval := time.Duration(s.cfg.Booking.SweepIntervalSeconds) * time.Second
	if interval <= 0 {
		log.Warn().Msg("post-stay sweep disabled, no interval configured")

		return
	}

	log.Info().Dur("interval", interval).Msg("starting post-stay sweep")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping post-stay sweep")

			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelWorkerScopeName, constant.OtelWorkerScopeName+".sweep")
	defer scope.End()

	completed, err := s.service.CompleteElapsed(ctx)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("post-stay sweep failed")

		return
	}

	if completed > 0 {
		log.Info().Int("completed", completed).Msg("post-stay sweep completed bookings")
	}

	scope.SetAttribute("sweep.completed", completed)
}
