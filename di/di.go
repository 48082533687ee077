package di

import (
	"roost/internal/workers/sweeper"
	"roost/transport/http"
)

// Service bundles the HTTP server and the background workers the app runs.
type Service struct {
	HTTP    *http.HTTP
	Sweeper *sweeper.Sweeper
}
