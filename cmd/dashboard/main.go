package main

import (
	analyticshandler "bizpulse/internal/analytics/handler"
	dashboardhandler "bizpulse/internal/dashboard/handler"
	dashboardservice "bizpulse/internal/dashboard/service"
	documentrepo "bizpulse/internal/documents/repository"
	jobrepo "bizpulse/internal/jobs/repository"
	"bizpulse/pkg/app"
	"bizpulse/pkg/client"
	"bizpulse/pkg/config"
)

const ServiceName = "dashboard"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Dashboard service")
	dashboardService := initServices(cfg)

	serverApp := app.NewApplication(cfg, ServiceName)
	serverApp.SetApp(
		dashboardhandler.NewDashboardHandler(dashboardService, cfg.Log),
		analyticshandler.NewAnalyticsHandler(dashboardService, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config) dashboardservice.DashboardService {
	portal := client.NewPortalClient(cfg.PortalBaseURL, cfg.PortalAdminKey, cfg.PortalTimeout, cfg.Log)
	documentRepo := documentrepo.NewMongoDocumentRepository(cfg)
	jobRepo := jobrepo.NewMongoJobRepository(cfg)

	dashboardService := dashboardservice.NewDashboardService(portal, documentRepo, jobRepo, cfg)

	cfg.Log.Info("Dashboard service initialized",
		"database", cfg.MongoDatabaseName,
		"portal", cfg.PortalBaseURL,
		"cache_ttl", cfg.BookingCacheTTL,
	)
	return dashboardService
}
