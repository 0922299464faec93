package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/config"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/report"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/roster"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/settings"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/sweep"
	appHTTP "github.com/cmlabs-hris/school-attendance-go/internal/handler/http"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/cron"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/database"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/faceclient"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/lock"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/qrtoken"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/sse"
	"github.com/cmlabs-hris/school-attendance-go/internal/repository/memory"
	"github.com/cmlabs-hris/school-attendance-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/school-attendance-go/internal/service/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/service/geofence"
	reportService "github.com/cmlabs-hris/school-attendance-go/internal/service/report"
	settingsService "github.com/cmlabs-hris/school-attendance-go/internal/service/settings"
	sweepService "github.com/cmlabs-hris/school-attendance-go/internal/service/sweep"
	"github.com/go-chi/httplog/v3"
	"github.com/redis/go-redis/v9"
)

type repositories struct {
	attendance attendance.AttendanceRepository
	roster     roster.RosterRepository
	settings   settings.SettingsRepository
	sweepLocks sweep.LockRepository
	reports    report.ReportRepository
	close      func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logFormat := httplog.SchemaECS.Concise(cfg.App.Env != "development")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       parseLevel(cfg.App.LogLevel),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "school-attendance"),
		slog.String("version", "v1.0.0"),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	repos, err := openRepositories(cfg)
	if err != nil {
		slog.Error("Error opening storage", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer repos.close()

	runLock, closeLock, err := openLocker(cfg)
	if err != nil {
		slog.Error("Error connecting to redis", "addr", cfg.Redis.Addr, "error", err)
		os.Exit(1)
	}
	defer closeLock()

	var face faceclient.Verifier
	if cfg.Face.ServiceURL != "" || cfg.Face.Skip {
		client := faceclient.New(cfg.Face.ServiceURL, cfg.Face.Skip)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := client.Health(ctx); err != nil {
			slog.Warn("Face service is not reachable, biometric checks will fail until it is", "error", err)
		}
		cancel()
		face = client
	}

	appMetrics := metrics.New()
	tokens := qrtoken.NewService()

	settingsSvc := settingsService.NewSettingsService(repos.settings, cfg.AttendanceDefaults())
	fence := geofence.NewValidator(settingsSvc)
	ledger := attendanceService.NewLedger(repos.attendance)
	recorder := attendanceService.NewRecorder(
		ledger,
		repos.attendance,
		tokens,
		fence,
		settingsSvc,
		repos.roster,
		face,
		appMetrics,
		attendanceService.Options{
			TokenMaxAge: cfg.Attendance.TokenMaxAge,
			Timeout:     cfg.Attendance.RecordTimeout,
		},
	)
	sweeper := sweepService.NewSweeper(
		ledger,
		repos.attendance,
		repos.roster,
		repos.sweepLocks,
		runLock,
		settingsSvc,
		appMetrics,
		cfg.Sweep.LockTTL,
	)
	reportSvc := reportService.NewReportService(repos.reports, repos.roster)

	scheduler := cron.NewScheduler()
	cron.NewAttendanceJobs(sweeper, settingsSvc).RegisterJobs(scheduler, cfg.Sweep.Interval, cfg.Sweep.LockTTL)
	scheduler.Start()

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	router := appHTTP.NewRouter(
		JWTService,
		appHTTP.RouterOptions{
			Logger:         logger,
			AllowedOrigins: cfg.App.CORSAllowedOrigins,
			Metrics:        appMetrics.Handler(),
		},
		appHTTP.NewAttendanceHandler(recorder, sse.NewHub()),
		appHTTP.NewReportHandler(reportSvc),
		appHTTP.NewSweepHandler(sweeper),
		appHTTP.NewTokenHandler(tokens),
		appHTTP.NewSettingsHandler(settingsSvc),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server running", "addr", server.Addr, "storage", cfg.Database.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}

func openRepositories(cfg *config.Config) (*repositories, error) {
	switch cfg.Database.Driver {
	case config.StorageMemory:
		db := memory.Open()
		return &repositories{
			attendance: db.Attendance(),
			roster:     db.Roster(),
			settings:   db.Settings(),
			sweepLocks: db.SweepLocks(),
			reports:    db.Reports(),
			close:      func() {},
		}, nil
	case config.StoragePostgres:
		db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
		if err != nil {
			return nil, err
		}
		return &repositories{
			attendance: postgresql.NewAttendanceRepository(db),
			roster:     postgresql.NewRosterRepository(db),
			settings:   postgresql.NewSettingsRepository(db),
			sweepLocks: postgresql.NewSweepLockRepository(db),
			reports:    postgresql.NewReportRepository(db),
			close:      db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Database.Driver)
	}
}

// openLocker uses redis when an address is configured so that several
// instances share one sweep lock, and an in-process lock otherwise.
func openLocker(cfg *config.Config) (lock.Locker, func(), error) {
	if cfg.Redis.Addr == "" {
		slog.Info("REDIS_ADDR not set, using in-process sweep lock")
		return lock.NewMemoryLocker(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return lock.NewRedisLocker(client, "attendance:"), func() { _ = client.Close() }, nil
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
