package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/worketyamo/workplace/services/auth-service/internal/application/auth"
	"github.com/worketyamo/workplace/services/auth-service/internal/application/blacklist"
	"github.com/worketyamo/workplace/services/auth-service/internal/application/otp"
	"github.com/worketyamo/workplace/services/auth-service/internal/application/sweeper"
	"github.com/worketyamo/workplace/services/auth-service/internal/audit"
	"github.com/worketyamo/workplace/services/auth-service/internal/config"
	"github.com/worketyamo/workplace/services/auth-service/internal/infrastructure/db/postgres"
	"github.com/worketyamo/workplace/services/auth-service/internal/infrastructure/memory"
	"github.com/worketyamo/workplace/services/auth-service/internal/infrastructure/messaging/mailqueue"
	rabbitmq_pub "github.com/worketyamo/workplace/services/auth-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/worketyamo/workplace/services/auth-service/internal/infrastructure/redis"
	"github.com/worketyamo/workplace/services/auth-service/internal/infrastructure/security"
	"github.com/worketyamo/workplace/services/auth-service/internal/logger"
	http_handlers "github.com/worketyamo/workplace/services/auth-service/internal/transport/http/handlers"
	"github.com/worketyamo/workplace/services/auth-service/internal/transport/http/middleware"
	"github.com/worketyamo/workplace/services/auth-service/internal/transport/http/response"
	"github.com/worketyamo/workplace/services/auth-service/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

// NewSweeper builds the reclamation jobs without the HTTP surface, for one-off runs.
func NewSweeper() (*sweeper.Sweeper, func(), error) {
	c, err := buildCore(defaultDeps())
	if err != nil {
		return nil, nil, err
	}
	return c.sweeper, c.close, nil
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB func(ctx context.Context, cfg *config.Config) (*sql.DB, error)

	Migrate func(ctx context.Context, db *sql.DB) error

	NewRedis func(opts redis.Options) RedisClient

	NewPublisher func(url, exchange string) (Publisher, error)

	NewRouter func(router.Deps) (http.Handler, error)

	Logger zerolog.Logger
}

type RedisClient interface {
	Ping(ctx context.Context) error
	Close() error
}

type Publisher interface {
	mailqueue.Publisher
}

// core holds everything except the HTTP surface.
type core struct {
	cfg     *config.Config
	db      *sql.DB
	svc     *auth.Service
	tokens  *security.TokenService
	sweeper *sweeper.Sweeper
	mail    *mailqueue.Queue

	cleanupFns []func()
}

func (c *core) close() {
	runCleanup(c.cleanupFns)
}

/*
========================
 Core bootstrap logic
========================
*/

func buildCore(deps Deps) (*core, error) {
	lg := deps.Logger
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, err
	}
	c := &core{cfg: cfg}

	// 1) db
	db, err := deps.NewDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.db = db
	c.cleanupFns = append(c.cleanupFns, func() { _ = db.Close() })

	if cfg.DBAutoMigrate && deps.Migrate != nil {
		if err := deps.Migrate(ctx, db); err != nil {
			c.close()
			return nil, err
		}
		lg.Info().Msg("migrations applied")
	}

	accounts := postgres.NewAccountRepo(db)

	// 2) redis (only when a feature needs it)
	var redisCli *redis.Client
	if cfg.RedisAddr != "" && deps.NewRedis != nil {
		rc := deps.NewRedis(redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Timeout:  cfg.StoreTimeout,
		})
		if err := rc.Ping(ctx); err != nil {
			_ = rc.Close()
			if cfg.BlacklistBackend == config.BlacklistRedis {
				c.close()
				return nil, err
			}
			lg.Warn().Err(err).Msg("redis unavailable; sweeps run unlocked")
		} else {
			lg.Info().Msg("redis connected")
			c.cleanupFns = append(c.cleanupFns, func() { _ = rc.Close() })
			redisCli, _ = rc.(*redis.Client)
		}
	}

	var blRepo blacklist.Repo = postgres.NewBlacklistRepo(db)
	if cfg.BlacklistBackend == config.BlacklistRedis {
		if redisCli == nil {
			c.close()
			return nil, errors.New("bootstrap: redis blacklist backend needs a redis client")
		}
		blRepo = redis.NewBlacklistRepo(redisCli)
	}
	lg.Info().Str("backend", cfg.BlacklistBackend).Msg("blacklist backend selected")

	// 3) mail publisher + queue
	var pub Publisher
	if cfg.RabbitURL != "" && deps.NewPublisher != nil {
		pub, err = deps.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			if cfg.IsProd() {
				c.close()
				return nil, err
			}
			lg.Warn().Err(err).Msg("rabbitmq unavailable; using noop publisher")
			pub = nil
		}
	}
	if pub == nil {
		pub = memory.NewNoopPublisher(lg)
	}
	if cl, ok := pub.(interface{ Close() error }); ok {
		c.cleanupFns = append(c.cleanupFns, func() { _ = cl.Close() })
	}

	c.mail = mailqueue.New(pub, mailqueue.Options{
		Size:    cfg.MailQueueSize,
		Workers: cfg.MailWorkers,
	}, lg)
	c.cleanupFns = append(c.cleanupFns, func() {
		dctx, dcancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer dcancel()
		if err := c.mail.Close(dctx); err != nil {
			lg.Warn().Err(err).Msg("mail queue drain timed out")
		}
	})

	// 4) security
	lg.Info().Str("issuer", cfg.JWTIssuer).Msg("initializing jwt signer")
	tokens, err := security.NewTokenService(security.TokenConfig{
		Secret:     cfg.JWTSecret,
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, time.Now)
	if err != nil {
		c.close()
		return nil, err
	}
	c.tokens = tokens
	hasher := security.NewHashPool(security.NewBcryptHasher(cfg.BcryptCost), cfg.HashWorkers)

	// 5) service
	bl := blacklist.NewStore(blRepo, tokens, cfg.StoreTimeout)
	c.svc = auth.NewService(
		accounts,
		hasher,
		tokens,
		otp.NewManager(accounts, otp.Config{TTL: cfg.OTPTTL, Length: cfg.OTPLength}),
		bl,
		c.mail,
		auth.Config{
			StoreTimeout:    cfg.StoreTimeout,
			UnverifiedGrace: cfg.UnverifiedGrace,
		},
	).WithAudit(audit.New(lg))

	// seed (optional)
	if err := postgres.SeedAdmin(ctx, accounts, hasher, postgres.AdminSeed{
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Name:     cfg.AdminName,
	}, lg); err != nil {
		c.close()
		return nil, err
	}

	// 6) sweeper
	c.sweeper = sweeper.New([]sweeper.Task{
		{Name: "blacklist", Run: bl.Sweep},
		{Name: "unverified_accounts", Run: c.svc.PurgeUnverified},
	}, sweeper.Options{Interval: cfg.SweepInterval}, lg)
	if cfg.SweepLock && redisCli != nil {
		c.sweeper = c.sweeper.WithLocker(redis.NewSweepLock(redisCli))
	}

	return c, nil
}

func newServer(deps Deps) (*http.Server, func(), error) {
	c, err := buildCore(deps)
	if err != nil {
		return nil, nil, err
	}
	cfg := c.cfg

	// 7) handlers + middleware
	authH := http_handlers.NewAuthHandler(c.svc, cfg.RefreshTokenTTL, cfg.CookieSecure)
	healthH := http_handlers.NewHealthHandler(c.db)

	if cfg.InternalSecret == "" {
		deps.Logger.Warn().Msg("INTERNAL_SECRET not set; internal routes will reject every call")
	}

	// 8) router
	mux, err := deps.NewRouter(router.Deps{
		Health:         healthH,
		Auth:           authH,
		Metrics:        promhttp.Handler(),
		RequestIDMW:    middleware.RequestID,
		AccessLogMW:    middleware.AccessLog,
		MetricsMW:      middleware.Metrics,
		AuthMW:         middleware.Auth(c.svc, response.WriteError),
		CSRFMW:         middleware.CSRFProtection(cfg.AllowedOrigins, response.WriteError),
		InternalAuthMW: middleware.InternalAuth(cfg.InternalSecret, response.WriteError),
	})
	if err != nil {
		c.close()
		return nil, nil, err
	}

	// 9) background reclamation, stopped before the stores close
	stop := c.sweeper.Start(context.Background())
	c.cleanupFns = append(c.cleanupFns, stop)

	// 10) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return srv, c.close, nil
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	lg := logger.Logger
	return Deps{
		LoadConfig: config.Load,
		NewDB: func(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
			return config.NewDB(ctx, cfg.DBAddr, config.PoolOptions{
				MaxOpenConns:    cfg.DBMaxOpenConns,
				MaxIdleConns:    cfg.DBMaxIdleConns,
				ConnMaxLifetime: cfg.DBConnMaxLifetime,
			}, cfg.DBDebug, lg)
		},
		Migrate: postgres.Migrate,
		NewRedis: func(opts redis.Options) RedisClient {
			return redis.New(opts)
		},
		NewPublisher: func(url, exchange string) (Publisher, error) {
			return rabbitmq_pub.NewPublisher(url, exchange, lg)
		},
		NewRouter: router.New,
		Logger:    lg,
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
