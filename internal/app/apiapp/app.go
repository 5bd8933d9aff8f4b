package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/paoshea/disco-sub000/internal/config"
	natsinfra "github.com/paoshea/disco-sub000/internal/infra/nats"
	s3infra "github.com/paoshea/disco-sub000/internal/infra/s3"
	pgrepo "github.com/paoshea/disco-sub000/internal/repo/postgres"
	redrepo "github.com/paoshea/disco-sub000/internal/repo/redis"
	authsvc "github.com/paoshea/disco-sub000/internal/services/auth"
	chatroomsvc "github.com/paoshea/disco-sub000/internal/services/chatrooms"
	geosvc "github.com/paoshea/disco-sub000/internal/services/geo"
	matchingsvc "github.com/paoshea/disco-sub000/internal/services/matching"
	photossvc "github.com/paoshea/disco-sub000/internal/services/photos"
	ratesvc "github.com/paoshea/disco-sub000/internal/services/rate"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	nats       *natsinfra.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	rateRepo := redrepo.NewRateRepo(redisClient)
	scoreCacheRepo := redrepo.NewScoreCacheRepo(redisClient, cfg.Matching.ScoreCacheTTL)
	userRepo := pgrepo.NewUserRepo(pool)
	preferenceRepo := pgrepo.NewPreferenceRepo(pool)
	matchRepo := pgrepo.NewMatchRepo(pool)
	chatRoomRepo := pgrepo.NewChatRoomRepo(pool)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	geoService := geosvc.NewService(userRepo)
	rateLimiter := ratesvc.NewLimiter(rateRepo, cfg.Rate.MatchRequestsPerMinute)

	var natsClient *natsinfra.Client
	if c, err := natsinfra.NewClient(natsinfra.Config{
		URL:           cfg.NATS.URL,
		Name:          cfg.NATS.Name,
		ReconnectWait: cfg.NATS.ReconnectWait,
		MaxReconnects: cfg.NATS.MaxReconnects,
	}, log); err != nil {
		log.Warn("nats init failed, continuing in degraded mode", zap.Error(err))
	} else {
		natsClient = c
	}

	chatRoomService := chatroomsvc.NewService(chatRoomRepo, log)
	if natsClient != nil {
		chatRoomService.AttachPublisher(natsClient)
	}

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}

	photoStorage := photossvc.NewS3Storage(s3Client, cfg.S3.Bucket)
	photoService := photossvc.NewService(userRepo, photoStorage)

	matchingService := matchingsvc.NewService(matchingsvc.Dependencies{
		Pool:        pool,
		Users:       userRepo,
		Preferences: preferenceRepo,
		Matches:     matchRepo,
	}, matchingsvc.Config{
		CandidateLimit: cfg.Matching.CandidateLimit,
		PhotoURLTTL:    cfg.Matching.PhotoURLTTL,
	}, log)
	matchingService.AttachScoreCache(scoreCacheRepo)
	matchingService.AttachChatRooms(chatRoomService)
	if s3Client != nil {
		matchingService.AttachPhotoSigner(photoStorage)
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		JWTManager:      jwtManager,
		GeoService:      geoService,
		MatchingService: matchingService,
		PhotoService:    photoService,
		RateLimiter:     rateLimiter,
		Logger:          log,
		Config:          cfg,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		nats:       natsClient,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}
	a.nats.Close()

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
