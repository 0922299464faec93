package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/user"
	"github.com/cmlabs-hris/school-attendance-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterOptions struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	Metrics        http.Handler
}

func NewRouter(
	JWTService jwt.Service,
	opts RouterOptions,
	attendanceHandler AttendanceHandler,
	reportHandler ReportHandler,
	sweepHandler SweepHandler,
	tokenHandler TokenHandler,
	settingsHandler SettingsHandler,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	if opts.Logger != nil {
		r.Use(httplog.RequestLogger(opts.Logger, &httplog.Options{
			Level:  slog.LevelDebug,
			Schema: httplog.SchemaECS,
		}))
	}

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Event streams cannot set headers, so the token may come in ?jwt=
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verify(JWTService.JWTAuth(), jwtauth.TokenFromHeader, jwtauth.TokenFromQuery))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))
			r.With(middleware.RequirePermission(user.PermissionAttendanceViewOwn)).Get("/stream/attendance", attendanceHandler.Stream)
		})

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))

			r.Route("/attendance", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionAttendanceRecord)).Post("/check-in", attendanceHandler.CheckIn)
				r.With(middleware.RequirePermission(user.PermissionAttendanceRecord)).Post("/check-out", attendanceHandler.CheckOut)
				r.With(middleware.RequirePermission(user.PermissionAttendanceViewOwn)).Get("/status", attendanceHandler.Status)
				r.With(middleware.RequirePermission(user.PermissionAttendanceViewAll)).Get("/", attendanceHandler.List)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Use(middleware.RequirePermission(user.PermissionReportsView))
				r.Get("/summary", reportHandler.Summary)
				r.Get("/groups/{groupID}", reportHandler.GroupBreakdown)
			})

			r.With(middleware.RequirePermission(user.PermissionSweepRun)).Post("/sweeps", sweepHandler.Run)

			r.Route("/tokens", func(r chi.Router) {
				r.Use(middleware.RequirePermission(user.PermissionTokensIssue))
				r.Post("/", tokenHandler.Issue)
				r.Get("/qr", tokenHandler.QRCode)
			})

			r.Route("/settings", func(r chi.Router) {
				r.Use(middleware.RequirePermission(user.PermissionSettingsManage))
				r.Get("/attendance", settingsHandler.GetAttendance)
				r.Put("/attendance", settingsHandler.UpdateAttendance)
				r.Get("/geofence", settingsHandler.GetGeofence)
				r.Put("/geofence", settingsHandler.UpdateGeofence)
			})
		})
	})
	return r
}
