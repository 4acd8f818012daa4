package app

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/appraise/internal/adapters/export"
	"github.com/example/appraise/internal/adapters/filesystem"
	"github.com/example/appraise/internal/adapters/sqlite"
	"github.com/example/appraise/internal/core/normalize"
	"github.com/example/appraise/internal/db"
	"github.com/example/appraise/internal/metrics"
	"github.com/example/appraise/internal/ports/primary"
)

const testSecret = "0123456789abcdef0123456789abcdef"

const demoManifest = `{
  "campaign_name": "wmt-demo",
  "campaign_no": 1,
  "task_types": [{"type": "Direct", "quota": 1, "instructions": "Rate the translation."}],
  "language_pairs": [{"source": "eng", "target": "deu", "annotators": 2}]
}`

const demoBatch = `{
  "source_language": "eng",
  "target_language": "deu",
  "items": [
    {"item_id": "1", "source_text": "Hello world", "target_text": "Hallo Welt"},
    {"item_id": "2", "source_text": "Good morning", "target_text": "Guten Morgen"}
  ]
}`

// testEnv wires every service against a migrated temp-file ledger.
type testEnv struct {
	t           *testing.T
	dir         string
	conn        *sql.DB
	metrics     *metrics.CampaignMetrics
	registry    *RegistryServiceImpl
	batches     *BatchServiceImpl
	agenda      *AgendaServiceImpl
	credentials *CredentialServiceImpl
	annotation  *AnnotationServiceImpl
	status      *CampaignStatusServiceImpl
	pipeline    *PipelineServiceImpl
	runLogs     *sqlite.RunLogRepository
	logs        *LogServiceImpl
}

func newTestEnv(t *testing.T, secret string) *testEnv {
	t.Helper()

	dir := t.TempDir()
	conn, err := db.Open(filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	m, err := metrics.NewCampaignMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)

	users := sqlite.NewUserRepository(conn)
	campaigns := sqlite.NewCampaignRepository(conn)
	teams := sqlite.NewTeamRepository(conn)
	markets := sqlite.NewMarketRepository(conn)
	metadata := sqlite.NewMetadataRepository(conn)
	batches := sqlite.NewBatchRepository(conn)
	items := sqlite.NewItemRepository(conn)
	agendaRepo := sqlite.NewAgendaRepository(conn)
	creds := sqlite.NewCredentialRepository(conn)
	runLogs := sqlite.NewRunLogRepository(conn)

	env := &testEnv{t: t, dir: dir, conn: conn, metrics: m, runLogs: runLogs}
	env.agenda = NewAgendaService(AgendaRepos{
		Teams: teams, Users: users, Markets: markets, Metadata: metadata,
		Batches: batches, Items: items, Agenda: agendaRepo,
	}, 2, m, logger)
	env.registry = NewRegistryService(campaigns, teams, users, markets, metadata, env.agenda, logger)
	env.batches = NewBatchService(markets, metadata, batches, items, normalize.Options{MaxSegmentLength: normalize.DefaultMaxSegmentLength}, m, logger)
	env.credentials = NewCredentialService(CredentialRepos{
		Campaigns: campaigns, Teams: teams, Users: users, Credentials: creds,
	}, CredentialOptions{Secret: secret, BcryptCost: bcrypt.MinCost}, m, logger)
	env.annotation = NewAnnotationService(AnnotationRepos{
		Users: users, Campaigns: campaigns, Batches: batches, Metadata: metadata, Agenda: agendaRepo,
	}, env.credentials.Signer(), m, logger)
	env.status = NewCampaignStatusService(StatusRepos{
		Campaigns: campaigns, Teams: teams, Users: users, Batches: batches, Metadata: metadata, Agenda: agendaRepo,
	})
	env.logs = NewLogService(runLogs, campaigns)
	env.pipeline = NewPipelineService(PipelineDeps{
		Registry:    env.registry,
		Batches:     env.batches,
		Credentials: env.credentials,
		Source:      filesystem.NewBatchReader(),
		CSV:         export.NewCSVSink(),
		XLSX:        export.NewXLSXSink(),
		RunLog:      sqlite.NewLogWriterAdapter(runLogs),
	}, logger)
	return env
}

// write stores content under the env's temp dir and returns its path.
func (e *testEnv) write(name, content string) string {
	e.t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(e.t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// demoRequest is a start-campaign run of the demo manifest and batch.
func (e *testEnv) demoRequest() primary.StartCampaignRequest {
	return primary.StartCampaignRequest{
		ManifestPath: e.write("manifest.json", demoManifest),
		TaskType:     "Direct",
		BatchesPath:  e.write("batch.json", demoBatch),
		CSVOutput:    filepath.Join(e.dir, "credentials.csv"),
	}
}

// count runs a COUNT(*) query.
func (e *testEnv) count(query string, args ...any) int {
	e.t.Helper()
	var n int
	require.NoError(e.t, e.conn.QueryRow(query, args...).Scan(&n))
	return n
}
