package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	adapthttp "weighttracking/internal/adapter/http"
	"weighttracking/internal/adapter/cache"
	"weighttracking/internal/adapter/memory"
	"weighttracking/internal/adapter/postgres"
	"weighttracking/internal/app"
	"weighttracking/internal/config"
	"weighttracking/internal/domain"
	"weighttracking/internal/logging"
)

// store is everything the services need from a persistence adapter.
type store interface {
	domain.UserRepository
	domain.EmployeeRepository
	domain.ResidentRepository
	domain.WeightSheetRepository
	domain.WeightRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, "weighttracking")
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db       store
		sessions domain.SessionRepository
	)
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("db open", zap.Error(err))
		}
		defer func() { _ = pg.Close() }()
		db, sessions = pg, postgres.NewSessionRepo(pg)
	} else {
		mem := memory.New()
		seedDemo(mem, logger)
		db, sessions = mem, mem.NewSessionRepo()
		logger.Warn("DATABASE_URL not set, using in-memory store")
	}

	var dateCache domain.DateCache
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = client.Close() }()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, date cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			dateCache = cache.NewDateCache(cache.NewRedisKVStore(client), cfg.Redis.DateTTL, logger.Named("cache"))
		}
	}

	lock := app.LockAdvisory
	if cfg.LockFinalSheets {
		lock = app.LockEnforced
	}

	sheetSvc := app.NewWeightSheetService(db, db,
		app.WithLockPolicy(lock),
		app.WithDateCache(dateCache),
		app.WithLogger(logger.Named("weightsheets")),
	)
	weightSvc := app.NewWeightService(db, db)
	reportSvc := app.NewReportService(db, dateCache, logger.Named("reports"))
	authSvc := app.NewAuthService(db, sessions, db, cfg.Auth.SessionTTL).
		WithEmployeeProvisioning(cfg.Auth.ProvisionRole)

	srv := adapthttp.New(sheetSvc, weightSvc, reportSvc, authSvc, logger.Named("http")).
		WithForwardAuthHeader(cfg.Auth.ForwardHeader).
		WithWebDir(cfg.WebDir)
	if cfg.OIDCEnabled() {
		oidcCfg, err := adapthttp.NewOIDCConfig(ctx, cfg.Auth.OIDC.Issuer, cfg.Auth.OIDC.ClientID,
			cfg.Auth.OIDC.ClientSecret, cfg.Auth.OIDC.RedirectURL)
		if err != nil {
			logger.Fatal("oidc setup", zap.Error(err))
		}
		srv = srv.WithOIDC(oidcCfg)
	}

	go purgeSessions(ctx, sessions, logger)

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening",
		zap.String("addr", cfg.Addr),
		zap.Bool("lock_final_sheets", cfg.LockFinalSheets),
		zap.Bool("sso", cfg.OIDCEnabled()),
		zap.Bool("date_cache", dateCache != nil),
	)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("http server", zap.Error(err))
	}
}

func purgeSessions(ctx context.Context, sessions domain.SessionRepository, logger *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sessions.DeleteExpired(ctx); err != nil {
				logger.Warn("expired session purge failed", zap.Error(err))
			}
		}
	}
}

// seedDemo gives the in-memory store a small roster and one employee so the
// service is usable without postgres. The employee logs in through the
// forward auth header as "admin".
// demoPassword is the password of the seeded in-memory "admin" login.
const demoPassword = "admin"

func seedDemo(db *memory.DB, logger *zap.Logger) {
	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Warn("demo seed failed", zap.Error(err))
		return
	}
	u, err := db.Create(context.Background(), "admin", string(hash))
	if err != nil {
		logger.Warn("demo seed failed", zap.Error(err))
		return
	}
	if _, err := db.AddEmployee(u.ID, "admin"); err != nil {
		logger.Warn("demo seed failed", zap.Error(err))
		return
	}
	db.AddResident("Ada", "Lovelace", 101)
	db.AddResident("Alan", "Turing", 102)
	db.AddResident("Grace", "Hopper", 103)
	logger.Warn("in-memory store seeded with demo login", zap.String("username", "admin"))
}
