package routes

import (
	"net/http"

	"go-api/internal/auth"
	"go-api/internal/config"
	"go-api/internal/handlers"
	"go-api/internal/logger"
	"go-api/internal/metrics"
	mdlwr "go-api/internal/middleware"
	"go-api/internal/models"
	"go-api/internal/services"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

func NewRouter(db *bun.DB, cfg *config.Config, logr *logger.Logger, reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	m := metrics.New(reg)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mdlwr.RequestLogger(logr.Logger))
	r.Use(middleware.Recoverer)
	// re-panics so Recoverer still answers 500
	r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	r.Use(mdlwr.Instrument(m))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTIssuer)
	if err != nil {
		logr.Fatal("failed to init jwt manager", zap.Error(err))
	}

	tr := services.NewTranslationService(db)
	authSvc := services.NewAuthService(db, jwtMgr, cfg, logr.Logger)
	authMW := mdlwr.NewAuthMiddleware(jwtMgr, authSvc, logr.Logger)
	admin := mdlwr.RequireRole(models.RoleAdmin)

	base := cfg.PublicURL
	authHandler := handlers.NewAuthHandler(authSvc, logr.Logger, cfg.IsProduction())
	geoHandler := handlers.NewGeoHandler(services.NewGeoService(db), logr.Logger, base)
	eventHandler := handlers.NewEventHandler(services.NewEventService(db, tr), logr.Logger, base)
	fieldReportHandler := handlers.NewFieldReportHandler(services.NewFieldReportService(db, tr), logr.Logger, base)
	appealHandler := handlers.NewAppealHandler(services.NewAppealService(db, tr), logr.Logger, base)
	drefHandler := handlers.NewDrefHandler(services.NewDrefService(db), logr.Logger, base)
	perHandler := handlers.NewPerHandler(services.NewPerService(db), logr.Logger, base)
	opsSvc := services.NewOpsLearningService(db, tr, services.NewExtractiveSummarizer(), logr.Logger)
	opsHandler := handlers.NewOpsLearningHandler(opsSvc, logr.Logger, base, m)
	localUnitHandler := handlers.NewLocalUnitHandler(services.NewLocalUnitService(db, tr), logr.Logger, base)
	deploymentHandler := handlers.NewDeploymentHandler(services.NewDeploymentService(db), logr.Logger, base)
	countryPlanHandler := handlers.NewCountryPlanHandler(services.NewCountryPlanService(db), logr.Logger, base)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v2", func(r chi.Router) {

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.LoginLocal)
			r.Post("/ldap", authHandler.LoginLDAP)
			// the refresh token itself is the credential here
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)
		})

		r.Get("/regions", geoHandler.ListRegions)
		r.Get("/disaster_types", geoHandler.ListDisasterTypes)
		r.Get("/admin2", geoHandler.ListAdmin2)
		r.Route("/countries", func(r chi.Router) {
			r.Get("/", geoHandler.ListCountries)
			r.Get("/{id}", geoHandler.GetCountry)
			r.Get("/{id}/districts", geoHandler.CountryDistricts)
		})
		r.Route("/districts", func(r chi.Router) {
			r.Get("/", geoHandler.ListDistricts)
			r.Get("/{id}", geoHandler.GetDistrict)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", eventHandler.ListEvents)
			r.Get("/{id}", eventHandler.GetEvent)
			r.Group(func(r chi.Router) {
				r.Use(authMW.JWTAuth)
				r.Post("/", eventHandler.CreateEvent)
				r.Put("/{id}", eventHandler.UpdateEvent)
				r.With(admin).Delete("/{id}", eventHandler.DeleteEvent)
			})
		})

		r.Route("/field_reports", func(r chi.Router) {
			r.Get("/", fieldReportHandler.ListFieldReports)
			r.Get("/{id}", fieldReportHandler.GetFieldReport)
			r.Group(func(r chi.Router) {
				r.Use(authMW.JWTAuth)
				r.Post("/", fieldReportHandler.CreateFieldReport)
				r.Put("/{id}", fieldReportHandler.UpdateFieldReport)
			})
		})

		r.Route("/appeals", func(r chi.Router) {
			r.Get("/", appealHandler.ListAppeals)
			r.Get("/aggregate", appealHandler.Aggregate)
			r.Get("/{id}", appealHandler.GetAppeal)
			r.Group(func(r chi.Router) {
				r.Use(authMW.JWTAuth, admin)
				r.Post("/", appealHandler.CreateAppeal)
				r.Put("/{id}", appealHandler.UpdateAppeal)
			})
		})
		r.Get("/appeal_documents", appealHandler.ListDocuments)

		r.Route("/dref", func(r chi.Router) {
			r.Get("/", drefHandler.ListDrefs)
			r.Get("/{id}", drefHandler.GetDref)
			r.Group(func(r chi.Router) {
				r.Use(authMW.JWTAuth)
				r.Post("/", drefHandler.CreateDref)
				r.Put("/{id}", drefHandler.UpdateDref)
				r.With(admin).Post("/{id}/publish", drefHandler.PublishDref)
			})
		})
		r.Route("/dref_op_update", func(r chi.Router) {
			r.Get("/", drefHandler.ListOperationalUpdates)
			r.Get("/{id}", drefHandler.GetOperationalUpdate)
			r.Group(func(r chi.Router) {
				r.Use(authMW.JWTAuth)
				r.Post("/", drefHandler.CreateOperationalUpdate)
				r.Put("/{id}", drefHandler.UpdateOperationalUpdate)
				r.With(admin).Post("/{id}/publish", drefHandler.PublishOperationalUpdate)
			})
		})
		r.Route("/dref_final_report", func(r chi.Router) {
			r.Get("/", drefHandler.ListFinalReports)
			r.Get("/{id}", drefHandler.GetFinalReport)
			r.Group(func(r chi.Router) {
				r.Use(authMW.JWTAuth)
				r.Post("/", drefHandler.CreateFinalReport)
				r.Put("/{id}", drefHandler.UpdateFinalReport)
				r.With(admin).Post("/{id}/publish", drefHandler.PublishFinalReport)
			})
		})

		r.Route("/per_overview", func(r chi.Router) {
			r.Get("/", perHandler.ListOverviews)
			r.Get("/{id}", perHandler.GetOverview)
			r.Group(func(r chi.Router) {
				r.Use(authMW.JWTAuth)
				r.Post("/", perHandler.CreateOverview)
				r.Put("/{id}", perHandler.UpdateOverview)
				r.Put("/{id}/ratings", perHandler.PutRatings)
			})
		})
		r.Get("/per_stats", perHandler.Stats)
		r.Get("/per_formarea", perHandler.ListAreas)
		r.Get("/per_formcomponent", perHandler.ListComponents)

		r.Get("/ops_learning", opsHandler.ListLearnings)
		r.Get("/ops_learning/summary", opsHandler.Summary)

		r.Route("/local_units", func(r chi.Router) {
			r.Get("/", localUnitHandler.ListLocalUnits)
			r.Get("/geojson", localUnitHandler.GeoJSON)
			r.Get("/{id}", localUnitHandler.GetLocalUnit)
			r.Group(func(r chi.Router) {
				r.Use(authMW.JWTAuth)
				r.Post("/", localUnitHandler.CreateLocalUnit)
				r.Put("/{id}", localUnitHandler.UpdateLocalUnit)
				r.With(admin).Post("/{id}/validate", localUnitHandler.ValidateLocalUnit)
			})
		})

		r.Route("/deployments", func(r chi.Router) {
			r.Get("/personnel", deploymentHandler.ListPersonnel)
			r.Get("/deployment", deploymentHandler.ListDeployments)
			r.Group(func(r chi.Router) {
				r.Use(authMW.JWTAuth)
				r.Post("/personnel", deploymentHandler.CreatePersonnel)
				r.Post("/deployment", deploymentHandler.CreateDeployment)
			})
		})
		r.Get("/eru", deploymentHandler.ListERUs)
		r.Get("/eru/readiness", deploymentHandler.Readiness)

		r.Route("/country_plan", func(r chi.Router) {
			r.Use(authMW.OptionalAuth)
			r.Get("/", countryPlanHandler.ListCountryPlans)
			r.Get("/{id}", countryPlanHandler.GetCountryPlan)
		})
	})

	return r
}
