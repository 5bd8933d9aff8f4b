package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/paoshea/disco-sub000/internal/config"
	authsvc "github.com/paoshea/disco-sub000/internal/services/auth"
	geosvc "github.com/paoshea/disco-sub000/internal/services/geo"
	matchingsvc "github.com/paoshea/disco-sub000/internal/services/matching"
	photossvc "github.com/paoshea/disco-sub000/internal/services/photos"
	ratesvc "github.com/paoshea/disco-sub000/internal/services/rate"
	"github.com/paoshea/disco-sub000/internal/transport/http/handlers"
)

type Dependencies struct {
	JWTManager      *authsvc.JWTManager
	GeoService      *geosvc.Service
	MatchingService *matchingsvc.Service
	PhotoService    *photossvc.Service
	RateLimiter     *ratesvc.Limiter
	Logger          *zap.Logger
	Config          config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	locationHandler := handlers.NewLocationHandler(deps.GeoService)
	photoHandler := handlers.NewPhotoHandler(deps.PhotoService)
	matchesHandler := handlers.NewMatchesHandler(deps.MatchingService)
	preferencesHandler := handlers.NewPreferencesHandler(deps.MatchingService)

	authMW := AuthMiddleware(deps.JWTManager, deps.Logger)
	rateMW := RateLimitMiddleware(deps.RateLimiter, deps.Logger)

	r.Get("/healthz", healthHandler.Handle)

	r.With(authMW).Post("/profile/location", locationHandler.Handle)
	r.With(authMW).Post("/profile/photo", photoHandler.Upload)

	r.Route("/matches", func(r chi.Router) {
		r.Use(authMW)

		r.Get("/preferences", preferencesHandler.Get)
		r.Put("/preferences", preferencesHandler.Update)

		r.With(rateMW).Get("/", matchesHandler.List)
		r.With(rateMW).Get("/{targetID}/status", matchesHandler.GetStatus)
		r.With(rateMW).Post("/{targetID}", matchesHandler.UpdateStatus)
	})
}
