package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/casefiles/internal/audit"
	"github.com/iliyamo/casefiles/internal/config"
	"github.com/iliyamo/casefiles/internal/database"
	"github.com/iliyamo/casefiles/internal/gate"
	"github.com/iliyamo/casefiles/internal/handler"
	"github.com/iliyamo/casefiles/internal/queue"
	"github.com/iliyamo/casefiles/internal/repository"
	"github.com/iliyamo/casefiles/internal/router"
	"github.com/iliyamo/casefiles/internal/service"
	"github.com/iliyamo/casefiles/internal/session"
	"github.com/iliyamo/casefiles/internal/storage"
)

func main() {
	cfg := config.Load() // Load environment config

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(cfg)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	if err := database.NewMigrator(db, cfg.DBDriver).Up(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	cases := repository.NewCaseFileRepo(db)
	photos := repository.NewPhotoRepo(db)
	siteCfg := repository.NewSiteConfigRepo(db)
	attempts := repository.NewAttemptRepo(db)
	admins := repository.NewAdminRepo(db, cfg.DBDriver)
	tokens := repository.NewTokenRepo(db)

	if cfg.InitialPassword != "" {
		if err := siteCfg.Seed(ctx, cfg.InitialPassword); err != nil {
			log.Fatalf("seed site config: %v", err)
		}
	}

	rdb := config.NewRedisClient() // nil when Redis is unreachable
	var store session.Store
	visitorTTL := time.Duration(cfg.VisitorTTLMin) * time.Minute
	if rdb != nil {
		defer rdb.Close()
		store = session.NewRedisStore(rdb, "visitor:", visitorTTL)
	} else {
		mem := session.NewMemoryStore(visitorTTL)
		go mem.Cleanup(ctx, time.Hour)
		store = mem
		log.Printf("redis unavailable: visitor sessions kept in memory")
	}
	sessions := session.NewManager(store, visitorTTL, cfg.Env == "prod")

	// Attempt events go to RabbitMQ only when a broker is configured.
	var pub audit.Publisher
	if cfg.RabbitURL != "" {
		pub = service.NewQueuePublisher(cfg.RabbitURL)
		go func() {
			if err := queue.StartAccessConsumer(ctx, cfg.RabbitURL, cfg.LogDir); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("access consumer stopped: %v", err)
			}
		}()
	}
	auditLog := audit.NewLogger(attempts, pub, audit.Options{StoreRaw: cfg.AuditStoreRaw, Buffer: cfg.AuditBuffer})
	// The audit worker outlives the signal context: it is closed only after
	// the HTTP server has finished in-flight gate submits.
	go auditLog.Run(context.Background())
	diagDone := make(chan struct{})
	go func() {
		audit.LogDiagnostics(context.Background(), auditLog)
		close(diagDone)
	}()

	files, err := storage.NewDiskBucket(cfg.StorageRoot, storage.CaseFilesBucket, cfg.PublicBaseURL)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	music, err := storage.NewDiskBucket(cfg.StorageRoot, storage.MusicBucket, cfg.PublicBaseURL)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	gateSvc := gate.NewService(siteCfg, auditLog, cfg.GateUnlockDelay, cfg.GateVerifyTimeout)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	deps := router.Deps{
		DB:          db,
		Redis:       rdb,
		Sessions:    sessions,
		JWTSecret:   cfg.JWTSecret,
		StorageRoot: cfg.StorageRoot,
		Cache:       config.LoadCacheConfig(),
		RateLimit:   config.LoadRateLimitConfig(),
		Admins:      admins,
	}
	router.RegisterRoutes(e, deps)
	router.RegisterSetup(e, handler.NewSetupHandler(cfg, admins), deps)
	router.RegisterGate(e, handler.NewGateHandler(cfg, gateSvc, cases, siteCfg), deps)
	router.RegisterVisitor(e,
		handler.NewCasesHandler(cases, photos, siteCfg),
		handler.NewBrowseHandler(cases, siteCfg, photos),
		deps)
	router.RegisterAdmin(e,
		handler.NewAuthHandler(cfg, admins, tokens),
		handler.NewAdminHandler(cases, photos, attempts, siteCfg, files, music),
		deps)

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s, db=%s)", addr, cfg.Env, cfg.DBDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	auditLog.Close()
	<-diagDone
}

func openDB(cfg config.Config) (*sql.DB, error) {
	if cfg.DBDriver == "sqlite" {
		return database.OpenSQLite(cfg.SQLitePath)
	}
	return database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
}
