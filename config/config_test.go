package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "config-*.json")
	require.NoError(t, err)
	_, err = f.WriteString(`{
		"project_name": "ledgerkeep-test",
		"server": {"port": "7101"},
		"data_source": {"dns": "postgres://ledgerkeep:pw@localhost:5432/ledgerkeep"},
		"reconciliation": {"date_window_days": 14, "max_upload_size_mb": 2}
	}`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, InitConfig(f.Name()))

	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "ledgerkeep-test", cnf.ProjectName)
	assert.Equal(t, "7101", cnf.Server.Port)
	assert.Equal(t, 14, cnf.Reconciliation.DateWindowDays)
	assert.Equal(t, int64(2<<20), cnf.MaxUploadSizeBytes())
}

func TestDefaultsApplied(t *testing.T) {
	MockConfig(&Configuration{})

	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, DEFAULT_PORT, cnf.Server.Port)
	assert.Equal(t, DefaultDateWindowDays, cnf.Reconciliation.DateWindowDays)
	assert.Equal(t, DefaultMaxUploadSizeMB, cnf.Reconciliation.MaxUploadSizeMB)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("LEDGERKEEP_SERVER_PORT", "9099")
	t.Setenv("LEDGERKEEP_RECONCILIATION_DATE_WINDOW_DAYS", "7")

	require.NoError(t, loadConfigFromFile(""))

	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "9099", cnf.Server.Port)
	assert.Equal(t, 7, cnf.Reconciliation.DateWindowDays)
}
