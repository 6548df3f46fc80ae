package daemon

import (
	"fmt"
	"time"

	sessionmysql "github.com/gofiber/storage/mysql/v2"
	sessionpostgres "github.com/gofiber/storage/postgres/v3"
	"github.com/gofiber/storage"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/GoAssetDesk/GoAssetDesk/internal/config"
	"github.com/GoAssetDesk/GoAssetDesk/internal/db/dsn"
	"github.com/GoAssetDesk/GoAssetDesk/internal/logger"
	"github.com/GoAssetDesk/GoAssetDesk/internal/logger/adapter/stdlogger"
	"github.com/GoAssetDesk/GoAssetDesk/internal/db/models"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/session"
)

// Daemon represents the main application daemon.
type Daemon struct {
	webService web.Service
	cfg        *config.Config
}

// Start starts the Daemon's web service and blocks until shutdown.
func (d *Daemon) Start() error {
	go d.webService.WaitShutdown()

	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	if err := logger.Init(cfg.Log); err != nil {
		log.Error().Err(err).Msg("failed to initialize logging, continuing with defaults")
	}

	// gorm logs slow queries and errors through the main logger.
	gormLog := gormlogger.New(stdlogger.New(), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(openDialector(cfg), &gorm.Config{Logger: gormLog})
	if err != nil {
		log.Fatal().Err(err).Str("engine", cfg.DB.GormEngine).Msg("failed to connect database")
		return nil
	}

	if err = db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.RolePermission{},
		&models.Asset{},
		&models.VirtualMachine{},
		&models.IAMAccount{},
		&models.Setting{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
		return nil
	}

	seed(cfg, db)

	session.Init(sessionStorage(cfg))

	return &Daemon{
		webService: *web.New(cfg, db),
		cfg:        cfg,
	}
}

// openDialector selects the gorm driver for the configured engine.
// Unknown engines fall back to sqlite.
func openDialector(cfg *config.Config) gorm.Dialector {
	switch cfg.DB.GormEngine {
	case "mysql":
		return gormmysql.Open(dsn.Create(cfg))
	case "postgres":
		return gormpostgres.Open(dsn.CreatePostgres(cfg))
	case "sqlite", "":
		return sqlite.Open(dsn.CreateSQLite(cfg))
	default:
		log.Warn().Str("engine", cfg.DB.GormEngine).Msg("unknown gorm engine, falling back to sqlite")
		return sqlite.Open(dsn.CreateSQLite(cfg))
	}
}

// sessionStorage returns the fiber session storage matching the configured
// engine. The sqlite engine keeps sessions in memory.
func sessionStorage(cfg *config.Config) storage.Storage {
	switch cfg.DB.GormEngine {
	case "mysql":
		return sessionmysql.New(sessionmysql.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         "sessions",
		})
	case "postgres":
		return sessionpostgres.New(sessionpostgres.Config{
			ConnectionURI: dsn.CreatePostgres(cfg),
			Table:         "sessions",
		})
	default:
		return nil
	}
}
