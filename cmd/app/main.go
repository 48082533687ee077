package main

import (
	"context"

	"roost/config"
	"roost/di"
	"roost/shared/logger"
)

func main() {
	cfg := config.Get()

	logger.InitLogger()

	logger.SetLogLevel(cfg)

	service := di.InitializeService()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go service.Sweeper.Run(ctx)

	service.HTTP.Serve()
}
