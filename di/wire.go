//go:build wireinject
// +build wireinject

package di

import (
	"roost/config"
	"roost/infras/gateway"
	"roost/infras/jwt"
	"roost/infras/kafka"
	"roost/infras/otel"
	"roost/infras/postgres"
	"roost/infras/redis"
	"roost/infras/s3"
	bookingHandler "roost/internal/handlers/booking"
	paymentHandler "roost/internal/handlers/payment"
	"roost/internal/workers/sweeper"
	"roost/shared/cache"
	"roost/transport/http"
	"roost/transport/http/middleware"
	"roost/transport/http/router"

	bookingRepository "roost/internal/domains/booking/repository"
	bookingService "roost/internal/domains/booking/service"
	paymentRepository "roost/internal/domains/payment/repository"
	paymentService "roost/internal/domains/payment/service"
	propertyRepository "roost/internal/domains/property/repository"

	"github.com/google/wire"
)

var configurations = wire.NewSet(
	config.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	otel.New,
	redis.New,
	jwt.New,
	kafka.New,
	gateway.New,
	s3.New,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
)

var propertyDomain = wire.NewSet(
	propertyRepository.New,
)

var bookingDomain = wire.NewSet(
	bookingRepository.New,
	bookingService.New,
)

var paymentDomain = wire.NewSet(
	paymentRepository.New,
	paymentService.New,
)

var domains = wire.NewSet(
	propertyDomain,
	bookingDomain,
	paymentDomain,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	bookingHandler.New,
	paymentHandler.New,
	router.New,
)

var workers = wire.NewSet(
	sweeper.New,
)

func InitializeService() *Service {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		workers,
		http.New,
		wire.Struct(new(Service), "*"),
	)

	return &Service{}
}
