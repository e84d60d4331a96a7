package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/carbonledger/api/emissions"
	emissionHandlers "github.com/carbonledger/api/emissions/handlers"
	emissionServices "github.com/carbonledger/api/emissions/services"
	"github.com/carbonledger/api/internal/cache"
	"github.com/carbonledger/api/internal/database/interfaces"
	"github.com/carbonledger/api/internal/database/observability"
	"github.com/carbonledger/api/internal/middleware/requestid"
	"github.com/carbonledger/api/internal/notify"
	"github.com/carbonledger/api/internal/pkg/log"
	"github.com/carbonledger/api/internal/platform"
	platformconfig "github.com/carbonledger/api/internal/platform/config"
	"github.com/carbonledger/api/internal/platform/email"
	"github.com/carbonledger/api/internal/platform/sms"
	"github.com/carbonledger/api/internal/recaptcha"
	"github.com/carbonledger/api/notifications"
	notificationHandlers "github.com/carbonledger/api/notifications/handlers"
	notificationServices "github.com/carbonledger/api/notifications/services"
	"github.com/carbonledger/api/roles"
	roleHandlers "github.com/carbonledger/api/roles/handlers"
	roleServices "github.com/carbonledger/api/roles/services"
	"github.com/carbonledger/api/shared/apierror"
	"github.com/carbonledger/api/targets"
	targetHandlers "github.com/carbonledger/api/targets/handlers"
	targetServices "github.com/carbonledger/api/targets/services"
	"github.com/carbonledger/api/tasks"
	taskHandlers "github.com/carbonledger/api/tasks/handlers"
	taskServices "github.com/carbonledger/api/tasks/services"
	"github.com/carbonledger/api/users"
	userHandlers "github.com/carbonledger/api/users/handlers"
	userServices "github.com/carbonledger/api/users/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"
)

// allIndexes lists the indexes of every collection the API owns.
var allIndexes = []map[string][]interfaces.IndexSpec{
	userServices.Indexes,
	roleServices.Indexes,
	emissionServices.Indexes,
	targetServices.Indexes,
	taskServices.Indexes,
	notificationServices.Indexes,
}

// services holds the long-lived dependencies shared by the commands.
type services struct {
	cfg        *platformconfig.Config
	base       *platform.BaseService
	metrics    *observability.Metrics
	caches     *cache.Services
	nats       *nats.Conn
	dispatcher *notify.Dispatcher

	users         userServices.UserService
	roles         roleServices.RoleService
	emissions     emissionServices.EmissionService
	targets       targetServices.TargetService
	tasks         taskServices.TaskService
	notifications notificationServices.NotificationService
}

func newServices(ctx context.Context, cfg *platformconfig.Config) (*services, error) {
	metrics := observability.NewMetrics()
	base, err := platform.NewBaseService(ctx, cfg, metrics)
	if err != nil {
		return nil, err
	}

	caches, err := cache.NewServices(cfg.Cache)
	if err != nil {
		_ = base.Close()
		return nil, fmt.Errorf("cache: %w", err)
	}

	s := &services{cfg: cfg, base: base, metrics: metrics, caches: caches}
	if err := metrics.Register(caches.Collector()); err != nil {
		s.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}

	notifyCfg := notify.Config{
		Repository: base.Repository,
		Subject:    cfg.NATS.Subject,
		AppName:    cfg.App.Name,
	}
	if cfg.NATS.URL != "" {
		nc, err := notify.ConnectNATS(cfg.NATS.URL, cfg.App.Name)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("nats: %w", err)
		}
		s.nats = nc
		notifyCfg.Publisher = nc
	}
	if cfg.Email.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPEmail)
		if err != nil {
			log.Warn("email notifications disabled: %v", err)
		} else {
			notifyCfg.Email = sender
		}
	}
	if cfg.SMS.AuthID != "" && cfg.SMS.AuthToken != "" {
		sender, err := sms.NewPlivoSender(cfg.SMS.AuthID, cfg.SMS.AuthToken, cfg.SMS.SourceNumber)
		if err != nil {
			log.Warn("sms notifications disabled: %v", err)
		} else {
			notifyCfg.SMS = sender
		}
	}
	s.dispatcher = notify.NewDispatcher(notifyCfg)

	s.users = userServices.NewUserService(base, cfg, caches.Revocations)
	s.roles = roleServices.NewRoleService(base, s.users)
	s.emissions = emissionServices.NewEmissionService(base, caches.Lookups)
	s.targets = targetServices.NewTargetService(base, s.dispatcher)
	s.tasks = taskServices.NewTaskService(base, s.users, s.targets)
	s.notifications = notificationServices.NewNotificationService(base)
	return s, nil
}

func (s *services) ensureIndexes(ctx context.Context) error {
	for _, indexes := range allIndexes {
		if err := s.base.EnsureIndexes(ctx, indexes); err != nil {
			return err
		}
	}
	return nil
}

// Close waits for pending notifications, then releases connections.
func (s *services) Close() {
	if s.dispatcher != nil {
		s.dispatcher.Wait()
	}
	if s.nats != nil {
		if err := s.nats.Drain(); err != nil {
			log.Warn("nats drain: %v", err)
		}
	}
	if err := s.caches.Close(); err != nil {
		log.Warn("cache close: %v", err)
	}
	if err := s.base.Close(); err != nil {
		log.Warn("repository close: %v", err)
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	// A handler that already wrote a response keeps it.
	if len(c.Response().Body()) > 0 {
		return nil
	}
	if code >= fiber.StatusInternalServerError {
		log.ErrorWithContext(c.UserContext(), "%s %s: %v", c.Method(), c.Path(), err)
	}
	return apierror.Respond(c, code, apierror.CodeInvalidRequest, err.Error(), nil)
}

func newApp(s *services) *fiber.App {
	cfg := s.cfg
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: errorHandler,
		BodyLimit:    16 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowCredentials: cfg.Server.AllowedOrigins != "*",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := s.base.HealthCheck(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))

	api := app.Group(cfg.Server.BaseRoute)
	revocations := s.caches.Revocations

	userHandler := userHandlers.NewUserHandler(s.users, userHandlers.HandlerConfig{
		CookieName:   cfg.JWT.CookieName,
		SecureCookie: !cfg.Server.Debug,
	})
	if cfg.Recaptcha.SecretKey != "" {
		verifier, err := recaptcha.NewGoogleVerifier(cfg.Recaptcha.SecretKey, cfg.Recaptcha.Endpoint)
		if err != nil {
			log.Warn("recaptcha disabled: %v", err)
		} else {
			userHandler.WithRecaptcha(verifier)
		}
	}
	users.RegisterRoutes(api, &users.Handlers{UserHandler: userHandler}, cfg, revocations)
	roles.RegisterRoutes(api, &roles.Handlers{
		RoleHandler: roleHandlers.NewRoleHandler(s.roles),
	}, cfg, revocations)
	emissions.RegisterRoutes(api, &emissions.Handlers{
		EmissionHandler: emissionHandlers.NewEmissionHandler(s.emissions),
	}, cfg, revocations)
	targets.RegisterRoutes(api, &targets.Handlers{
		TargetHandler: targetHandlers.NewTargetHandler(s.targets),
	}, cfg, revocations)
	tasks.RegisterRoutes(api, &tasks.Handlers{
		TaskHandler: taskHandlers.NewTaskHandler(s.tasks),
	}, cfg, revocations)
	notifications.RegisterRoutes(api, &notifications.Handlers{
		NotificationHandler: notificationHandlers.NewNotificationHandler(s.notifications),
	}, cfg, revocations)

	return app
}
