// Package wire provides dependency injection for the appraise application.
// It creates singleton services with lazy initialization.
package wire

import (
	"database/sql"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/example/appraise/internal/adapters/annotclient"
	"github.com/example/appraise/internal/adapters/export"
	"github.com/example/appraise/internal/adapters/filesystem"
	"github.com/example/appraise/internal/adapters/httpapi"
	"github.com/example/appraise/internal/adapters/sqlite"
	"github.com/example/appraise/internal/app"
	"github.com/example/appraise/internal/config"
	"github.com/example/appraise/internal/core/normalize"
	"github.com/example/appraise/internal/db"
	"github.com/example/appraise/internal/logging"
	"github.com/example/appraise/internal/metrics"
	"github.com/example/appraise/internal/ports/primary"
)

var (
	settings *config.Settings
	logger   = zap.NewNop()

	database          *sql.DB
	registry          *prometheus.Registry
	campaignMetrics   *metrics.CampaignMetrics
	pipelineService   primary.PipelineService
	credentialService *app.CredentialServiceImpl
	annotationService primary.AnnotationService
	statusService     primary.CampaignStatusService
	logService        primary.LogService
	once              sync.Once
)

// Configure sets the settings and logger every service is built with.
// It must be called before the first service accessor to take effect.
func Configure(s *config.Settings, l *zap.Logger) {
	settings = s
	logger = logging.OrNop(l)
	db.Configure(s.DB.Path)
}

// Settings returns the resolved configuration.
func Settings() *config.Settings {
	once.Do(initServices)
	return settings
}

// PipelineService returns the singleton PipelineService instance.
func PipelineService() primary.PipelineService {
	once.Do(initServices)
	return pipelineService
}

// CredentialService returns the singleton CredentialService instance.
func CredentialService() primary.CredentialService {
	once.Do(initServices)
	return credentialService
}

// AnnotationService returns the singleton AnnotationService instance.
func AnnotationService() primary.AnnotationService {
	once.Do(initServices)
	return annotationService
}

// CampaignStatusService returns the singleton CampaignStatusService instance.
func CampaignStatusService() primary.CampaignStatusService {
	once.Do(initServices)
	return statusService
}

// LogService returns the singleton LogService instance.
func LogService() primary.LogService {
	once.Do(initServices)
	return logService
}

// HTTPServer returns a new task endpoint server backed by the singleton
// services, exposing the shared metrics registry.
func HTTPServer() *httpapi.Server {
	once.Do(initServices)
	return httpapi.New(annotationService,
		httpapi.WithMetrics(campaignMetrics, registry),
		httpapi.WithHealthCheck(database.PingContext),
		httpapi.WithLogger(logger.Named("http")),
	)
}

// AnnotationClient returns a client for the server at baseURL, or one that
// serves requests in-process when baseURL is empty.
func AnnotationClient(baseURL string) *annotclient.Client {
	if baseURL != "" {
		return annotclient.New(baseURL, nil)
	}
	return annotclient.NewInProcess(HTTPServer())
}

// Close releases the database connection.
func Close() error {
	return db.Close()
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	if settings == nil {
		s, err := config.Load("")
		if err != nil {
			logger.Fatal("failed to load configuration", zap.Error(err))
		}
		Configure(s, logger)
	}

	var err error
	database, err = db.GetDB()
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	campaignMetrics, err = metrics.NewCampaignMetrics(registry)
	if err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}

	// Create repository adapters (secondary ports) - sqlite adapters with injected DB
	users := sqlite.NewUserRepository(database)
	campaigns := sqlite.NewCampaignRepository(database)
	teams := sqlite.NewTeamRepository(database)
	markets := sqlite.NewMarketRepository(database)
	metadata := sqlite.NewMetadataRepository(database)
	batches := sqlite.NewBatchRepository(database)
	items := sqlite.NewItemRepository(database)
	agendaRepo := sqlite.NewAgendaRepository(database)
	creds := sqlite.NewCredentialRepository(database)
	runLogs := sqlite.NewRunLogRepository(database)

	// Create services (primary ports implementation)
	agenda := app.NewAgendaService(app.AgendaRepos{
		Teams: teams, Users: users, Markets: markets, Metadata: metadata,
		Batches: batches, Items: items, Agenda: agendaRepo,
	}, settings.Agenda.Workers, campaignMetrics, logger.Named("agenda"))
	registryService := app.NewRegistryService(campaigns, teams, users, markets, metadata, agenda, logger.Named("registry"))
	batchService := app.NewBatchService(markets, metadata, batches, items,
		normalize.Options{MaxSegmentLength: settings.Normalize.MaxSegmentLength},
		campaignMetrics, logger.Named("batch"))
	credentialService = app.NewCredentialService(app.CredentialRepos{
		Campaigns: campaigns, Teams: teams, Users: users, Credentials: creds,
	}, app.CredentialOptions{Secret: settings.SecretKey}, campaignMetrics, logger.Named("credential"))
	annotationService = app.NewAnnotationService(app.AnnotationRepos{
		Users: users, Campaigns: campaigns, Batches: batches, Metadata: metadata, Agenda: agendaRepo,
	}, credentialService.Signer(), campaignMetrics, logger.Named("annotation"))
	statusService = app.NewCampaignStatusService(app.StatusRepos{
		Campaigns: campaigns, Teams: teams, Users: users, Batches: batches, Metadata: metadata, Agenda: agendaRepo,
	})
	logService = app.NewLogService(runLogs, campaigns)
	pipelineService = app.NewPipelineService(app.PipelineDeps{
		Registry:    registryService,
		Batches:     batchService,
		Credentials: credentialService,
		Source:      filesystem.NewBatchReader(),
		CSV:         export.NewCSVSink(),
		XLSX:        export.NewXLSXSink(),
		RunLog:      sqlite.NewLogWriterAdapter(runLogs),
	}, logger.Named("pipeline"))
}
