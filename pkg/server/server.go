// Package server wires the repositories, services, consumers, and HTTP
// surface together and manages their startup order.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/sage/config"
	actionitemrepo "github.com/Ramsey-B/sage/internal/repositories/actionitem"
	contingencyrepo "github.com/Ramsey-B/sage/internal/repositories/contingencyplan"
	coveragerepo "github.com/Ramsey-B/sage/internal/repositories/coverage"
	handoverrepo "github.com/Ramsey-B/sage/internal/repositories/handover"
	contentrepo "github.com/Ramsey-B/sage/internal/repositories/handovercontent"
	messagerepo "github.com/Ramsey-B/sage/internal/repositories/message"
	patientrepo "github.com/Ramsey-B/sage/internal/repositories/patient"
	shiftinstancerepo "github.com/Ramsey-B/sage/internal/repositories/shiftinstance"
	shifttemplaterepo "github.com/Ramsey-B/sage/internal/repositories/shifttemplate"
	shiftwindowrepo "github.com/Ramsey-B/sage/internal/repositories/shiftwindow"
	userrepo "github.com/Ramsey-B/sage/internal/repositories/user"
	"github.com/Ramsey-B/sage/pkg/chaining"
	coveragepkg "github.com/Ramsey-B/sage/pkg/coverage"
	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/events"
	handoverpkg "github.com/Ramsey-B/sage/pkg/handover"
	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/middleware"
	coverageroutes "github.com/Ramsey-B/sage/pkg/routes/coverage"
	handoverroutes "github.com/Ramsey-B/sage/pkg/routes/handover"
	"github.com/Ramsey-B/sage/pkg/routes/health"
	shiftroutes "github.com/Ramsey-B/sage/pkg/routes/shift"
	"github.com/Ramsey-B/sage/pkg/startup"
)

// Version is set at build time
var Version = "dev"

// Server owns the process lifecycle: database, migrations, Kafka, and the
// echo HTTP server, started in dependency order with retries.
type Server struct {
	cfg      config.Config
	logger   ectologger.Logger
	echo     *echo.Echo
	db       *sqlx.DB
	producer *kafka.Producer
	consumer *kafka.Consumer
	checker  *health.Checker
	startup  *startup.Startup
}

// New builds the full dependency graph from config
func New(cfg config.Config, logger ectologger.Logger) (*Server, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName,
		cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
	)

	sqlxDB, err := sqlx.Open(cfg.DatabaseDriver, dsn)
	if err != nil {
		return nil, err
	}
	sqlxDB.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	sqlxDB.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	sqlxDB.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

	db := database.NewDatabaseInstance(sqlxDB, logger)

	templateRepo := shifttemplaterepo.NewRepository(db, logger)
	instanceRepo := shiftinstancerepo.NewRepository(db, logger)
	windowRepo := shiftwindowrepo.NewRepository(db, logger)
	covRepo := coveragerepo.NewRepository(db, logger)
	hRepo := handoverrepo.NewRepository(db, logger)
	cRepo := contentrepo.NewRepository(db, logger)
	aiRepo := actionitemrepo.NewRepository(db, logger)
	cpRepo := contingencyrepo.NewRepository(db, logger)
	msgRepo := messagerepo.NewRepository(db, logger)
	pRepo := patientrepo.NewRepository(db, logger)
	uRepo := userrepo.NewRepository(db, logger)

	producer := kafka.NewProducer(cfg, logger)
	emitter := events.NewEmitter(producer, logger)

	coverageService := coveragepkg.NewService(logger, covRepo, pRepo, instanceRepo, emitter)
	handoverService := handoverpkg.NewService(
		logger, hRepo, cRepo, covRepo, pRepo, uRepo,
		templateRepo, instanceRepo, windowRepo,
		aiRepo, cpRepo, msgRepo, emitter,
		cfg.DefaultPageSize, cfg.MaxPageSize,
	)

	var consumer *kafka.Consumer
	if cfg.KafkaChainingEnabled {
		processor := chaining.NewProcessor(logger, handoverService, templateRepo)
		consumer = kafka.NewConsumer(cfg, logger, processor.HandleMessage)
	}

	if err := registerDependencies(templateRepo, instanceRepo, coverageService, handoverService); err != nil {
		return nil, err
	}

	checker := health.NewChecker(sqlxDB, consumerHealth(consumer), Version)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.HTTPErrorHandler = middleware.Error(logger)

	checker.RegisterRoutes(e)
	api := e.Group("/api/v1")
	shiftroutes.Register(api.Group("/shifts"))
	coverageroutes.Register(api.Group("/coverage"))
	handoverroutes.Register(api.Group("/handovers"))

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		echo:     e,
		db:       sqlxDB,
		producer: producer,
		consumer: consumer,
		checker:  checker,
	}
	s.startup = s.buildStartup()

	return s, nil
}

// registerDependencies publishes the route-facing services in the default DI
// container so handlers can resolve them from request contexts
func registerDependencies(
	templateRepo *shifttemplaterepo.Repository,
	instanceRepo *shiftinstancerepo.Repository,
	coverageService *coveragepkg.Service,
	handoverService *handoverpkg.Service,
) error {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return err
	}

	if err := ectoinject.RegisterInstance[*shifttemplaterepo.Repository](container, templateRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*shiftinstancerepo.Repository](container, instanceRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*coveragepkg.Service](container, coverageService); err != nil {
		return err
	}
	return ectoinject.RegisterInstance[*handoverpkg.Service](container, handoverService)
}

func consumerHealth(c *kafka.Consumer) interface{ Health() bool } {
	if c == nil {
		return nil
	}
	return c
}

func (s *Server) buildStartup() *startup.Startup {
	st := startup.New(s.logger, s.cfg.StartupMaxAttempts)

	st.AddDependency(&dependency{
		name: "database",
		start: func(ctx context.Context) error {
			if err := s.db.PingContext(ctx); err != nil {
				return err
			}
			driver, err := postgres.WithInstance(s.db.DB, &postgres.Config{})
			if err != nil {
				return err
			}
			migrations := database.NewMigrationService(s.logger, &database.MigrationConfig{
				MigrationFolderPath: s.cfg.DatabaseMigrationFolderPath,
				Version:             uint(s.cfg.DatabaseMigrationVersion),
				Force:               s.cfg.DatabaseMigrationForce,
				AutoRollback:        s.cfg.DatabaseMigrationAutoRollback,
			})
			return migrations.Migrate(s.cfg.DatabaseName, driver)
		},
		stop: func(context.Context) error { return s.db.Close() },
	})

	if s.consumer != nil {
		st.AddDependency(&dependency{
			name:      "kafka",
			dependsOn: []string{"database"},
			start:     func(ctx context.Context) error { return s.consumer.Start(ctx) },
			stop:      func(context.Context) error { return s.consumer.Stop() },
		})
	}

	st.AddDependency(&dependency{
		name:      "http",
		dependsOn: []string{"database"},
		start: func(ctx context.Context) error {
			go func() {
				addr := fmt.Sprintf(":%d", s.cfg.Port)
				s.logger.WithContext(ctx).WithField("addr", addr).Info("HTTP server listening")
				if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
					s.logger.WithError(err).Error("HTTP server stopped unexpectedly")
				}
			}()
			return nil
		},
		stop: func(ctx context.Context) error { return s.echo.Shutdown(ctx) },
	})

	return st
}

// Start brings dependencies up in order and marks the service ready
func (s *Server) Start(ctx context.Context) error {
	if err := s.startup.Start(ctx); err != nil {
		return err
	}
	s.checker.SetReady(true)
	return nil
}

// Stop drains dependencies in reverse order
func (s *Server) Stop(ctx context.Context) error {
	s.checker.SetReady(false)
	if err := s.startup.Stop(ctx); err != nil {
		return err
	}
	return s.producer.Close()
}

// dependency adapts closures to the startup graph
type dependency struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (d *dependency) GetName() string                 { return d.name }
func (d *dependency) DependsOn() []string             { return d.dependsOn }
func (d *dependency) Start(ctx context.Context) error { return d.start(ctx) }
func (d *dependency) Stop(ctx context.Context) error  { return d.stop(ctx) }
