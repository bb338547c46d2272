package main

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	auth "github.com/edutrial/go-auth"
	"github.com/edutrial/go-auth/config"
	"github.com/edutrial/go-auth/mailer"
	"github.com/edutrial/go-auth/middleware/jwtware"
)

// serverDeps are the collaborators the HTTP server is built from. Zero
// values are filled from the configuration.
type serverDeps struct {
	DB       *bun.DB
	Logrus   *logrus.Logger
	Registry *prometheus.Registry
	Sender   mailer.Sender
	Redis    redis.UniversalClient
	Now      func() time.Time
}

// server is a wired fiber app plus the resources to release on shutdown
type server struct {
	app        *fiber.App
	dispatcher *mailer.Dispatcher
	redis      redis.UniversalClient
	logger     *auth.LogrusLogger
}

// signingKeyConfig overrides the signing key of an auth.Config
type signingKeyConfig struct {
	auth.Config
	key string
}

func (c signingKeyConfig) GetSigningKey() string { return c.key }

func newServer(cfg *config.Config, deps serverDeps) (*server, error) {
	if deps.Logrus == nil {
		deps.Logrus = logrus.StandardLogger()
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
		deps.Registry.MustRegister(collectors.NewGoCollector())
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	logger := auth.NewLogrusLogger(deps.Logrus, "authd")
	srv := &server{logger: logger}

	metrics := auth.NewMetrics(deps.Registry)
	activity := auth.MultiActivitySink{metrics, auth.LoggingActivitySink{Logger: logger.Named("activity")}}

	sender := deps.Sender
	if sender == nil {
		if cfg.Mail.Transport == config.MailTransportSMTP {
			sender = mailer.NewSMTPSender(cfg.SMTP())
		} else {
			sender = mailer.LogSender{Logger: logger.Named("mail")}
		}
	}
	srv.dispatcher = mailer.NewDispatcher(sender, mailer.Options{
		Workers:     cfg.Mail.Workers,
		MaxWorkers:  cfg.Mail.MaxWorkers,
		QueueSize:   cfg.Mail.QueueSize,
		IdleTimeout: cfg.Mail.IdleTimeout,
		SendTimeout: cfg.Mail.SendTimeout,
		OnResult:    metrics.ObserveMail,
		Logger:      logger.Named("mailer"),
	})

	renderer, err := mailer.NewTemplateRenderer()
	if err != nil {
		srv.close(context.Background())
		return nil, err
	}

	throttle, err := srv.newThrottle(cfg, deps.Redis)
	if err != nil {
		srv.close(context.Background())
		return nil, err
	}

	tokens, err := auth.NewTokenServiceFromConfig(cfg, logger.Named("tokens"))
	if err != nil {
		srv.close(context.Background())
		return nil, err
	}
	tokens.WithClock(deps.Now)

	validators := []auth.TokenValidator{tokens}
	for _, key := range cfg.JWT.PreviousSigningKeys {
		previous, err := auth.NewTokenServiceFromConfig(signingKeyConfig{Config: cfg, key: key}, logger.Named("tokens"))
		if err != nil {
			srv.close(context.Background())
			return nil, err
		}
		validators = append(validators, previous.WithClock(deps.Now))
	}

	repo := auth.NewRepositoryManager(deps.DB, auth.WithAccountsClock(deps.Now))
	hasher := auth.NewBcryptHasher(0)

	otp := auth.NewOTPManager(repo).
		WithLogger(logger.Named("otp")).
		WithHasher(hasher).
		WithMailDispatcher(srv.dispatcher).
		WithRenderer(renderer).
		WithThrottle(throttle).
		WithActivitySink(activity).
		WithClock(deps.Now).
		WithOTPConfig(cfg).
		WithDefaultRole(cfg.Accounts.DefaultRole).
		WithPhoneRegion(cfg.Accounts.PhoneRegion).
		WithDeterministicIDs(cfg.Accounts.DeterministicIDs)

	provider := auth.NewAccountProvider(repo.Accounts(), hasher).WithLogger(logger.Named("provider"))
	authenticator := auth.NewAuthenticator(provider, tokens).
		WithLogger(logger.Named("authenticator")).
		WithActivitySink(activity).
		WithClock(deps.Now)
	accounts := auth.NewAccountService(repo, hasher).
		WithLogger(logger.Named("accounts")).
		WithActivitySink(activity)

	policy, err := auth.NewRoutePolicy(auth.DefaultRouteRules(cfg.Server.BasePath)...)
	if err != nil {
		srv.close(context.Background())
		return nil, err
	}
	policy.WithLogger(logger.Named("policy")).WithContextKey(cfg.GetContextKey())

	app := fiber.New(fiber.Config{
		AppName:               "authd",
		DisableStartupMessage: true,
		ErrorHandler:          auth.NewErrorHandler(logger.Named("http")),
	})
	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.Server.Debug}))
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Output: deps.Logrus.WriterLevel(logrus.DebugLevel),
		Format: "${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	// fiber panics when credentials are allowed for a wildcard origin
	origins := cfg.Server.AllowedOrigins()
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           3600,
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := deps.DB.PingContext(c.UserContext()); err != nil {
			return oops.Code(string(auth.CodeInternal)).Wrapf(err, "database unreachable")
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))

	jwtCfg := auth.RequestAuthenticationConfig(cfg, auth.NewMultiTokenValidator(validators...), repo.Accounts(), logger.Named("jwt"))
	auth.RegisterValidationListeners(&jwtCfg, auth.MetricsValidationListener(metrics))

	api := app.Group(cfg.Server.BasePath, jwtware.New(jwtCfg))
	auth.RegisterAuthRoutes(api,
		auth.WithControllerLogger(logger.Named("controller")),
		auth.WithControllerDebug(cfg.Server.Debug),
		auth.WithControllerContextKey(cfg.GetContextKey()),
		auth.WithOTPLifecycle(otp),
		auth.WithAuthenticator(authenticator),
		auth.WithAccountManager(accounts),
	)

	guarded := policy.Middleware()
	admin := api.Group("/admin", guarded)
	admin.Get("/ping", pingHandler(cfg.GetContextKey())).Name("admin.ping")
	staff := api.Group("/staff", guarded)
	staff.Get("/ping", pingHandler(cfg.GetContextKey())).Name("staff.ping")
	universities := api.Group("/universities/private", guarded)
	universities.Get("/ping", pingHandler(cfg.GetContextKey())).Name("universities.private.ping")

	srv.app = app
	return srv, nil
}

func (s *server) newThrottle(cfg *config.Config, client redis.UniversalClient) (auth.ResendThrottle, error) {
	if cfg.OTP.Throttle != config.ThrottleRedis {
		return auth.NewMemoryThrottle(cfg.OTP.ResendInterval, 0), nil
	}
	if client == nil {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s.redis = client
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, oops.Code("REDIS_CONNECT_FAILED").With("addr", cfg.Redis.Addr).Wrap(err)
	}
	return auth.NewRedisThrottle(client, cfg.OTP.ResendInterval, cfg.Redis.Prefix), nil
}

// close drains queued mail and releases the redis client
func (s *server) close(ctx context.Context) error {
	var err error
	if s.dispatcher != nil {
		err = s.dispatcher.Close(ctx)
	}
	if s.redis != nil {
		if cerr := s.redis.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// pingHandler answers guarded probes with the caller identity
func pingHandler(contextKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := auth.IdentityFromFiber(c, contextKey)
		if !ok {
			return auth.Authorize(nil, auth.Authenticated())
		}
		return c.JSON(fiber.Map{
			"status":    "ok",
			"email":     identity.Email,
			"authority": identity.Authority,
		})
	}
}

