package pgi

import (
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borealinsurance/pgi/config"
	"github.com/borealinsurance/pgi/database"
	"github.com/borealinsurance/pgi/database/mocks"
	"github.com/borealinsurance/pgi/internal/clock"
)

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func testConfig() *config.Configuration {
	cnf := &config.Configuration{ProjectName: "Boreal PGI test"}
	cnf.Accrual.JobName = "premium_accrual"
	cnf.Accrual.LockTimeoutSeconds = 3600
	cnf.Accrual.RunTimeoutSeconds = 600
	config.MockConfig(cnf)
	return cnf
}

// newTestPGI wires a PGI over sqlmock so tests can assert the exact statements,
// including BEGIN, COMMIT and ROLLBACK.
func newTestPGI(t *testing.T) (*PGI, sqlmock.Sqlmock, *clock.FakeClock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	fake := clock.NewFakeClock(testNow)
	p, err := NewPGI(&database.Datasource{Conn: db}, testConfig(), WithClock(fake))
	require.NoError(t, err)
	return p, mock, fake
}

func newMockPGI(t *testing.T) (*PGI, *mocks.MockDataSource) {
	t.Helper()
	ds := &mocks.MockDataSource{}
	p, err := NewPGI(ds, testConfig(), WithClock(clock.NewFakeClock(testNow)))
	require.NoError(t, err)
	return p, ds
}

func TestNewPGI_RequiresDependencies(t *testing.T) {
	_, err := NewPGI(nil, testConfig())
	assert.Error(t, err)

	_, err = NewPGI(&mocks.MockDataSource{}, nil)
	assert.Error(t, err)
}

func TestNewPGI_TimeoutDefaults(t *testing.T) {
	p, err := NewPGI(&mocks.MockDataSource{}, &config.Configuration{})
	require.NoError(t, err)

	assert.Equal(t, time.Hour, p.lockTimeout())
	assert.Equal(t, 10*time.Minute, p.runTimeout())
	assert.Equal(t, "premium_accrual", p.accrualJobName())
}

func TestEmbeddedMigrations(t *testing.T) {
	source := migrate.EmbedFileSystemMigrationSource{FileSystem: SQLFiles, Root: "sql"}
	migrations, err := source.FindMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	up := strings.Join(migrations[0].Up, "\n")
	assert.Contains(t, up, "CREATE SCHEMA")
	assert.Contains(t, up, "BEFORE DELETE ON pgi.ledger_entries")
	assert.Contains(t, up, "BEFORE UPDATE ON pgi.ledger_entries")
	assert.Contains(t, up, "CREATE TABLE IF NOT EXISTS pgi.job_locks")

	down := strings.Join(migrations[0].Down, "\n")
	assert.Contains(t, down, "DROP TRIGGER IF EXISTS ledger_entries_no_delete")
}
