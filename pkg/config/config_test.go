package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

const sampleYAML = `
log:
  level: debug
dry_run: true
metrics_addr: 127.0.0.1:9100
journal_path: data/journal.db
feed_workers: 8
shared_lock_registry: true
triggers:
  - name: amzn-dip
    equity_code: amzn
    price_threshold: "5.00"
    quantity: 50
  - equity_code: MSFT
    price_threshold: "300.25"
    quantity: 10
`

func TestLoadFromFile_YAML(t *testing.T) {
	cfg, err := LoadFromFile(writeFile(t, "config.yaml", sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 100, cfg.Log.MaxSize)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr)
	assert.Equal(t, "data/journal.db", cfg.JournalPath)
	assert.Equal(t, 8, cfg.FeedWorkers)
	assert.True(t, cfg.SharedLockRegistry)
	assert.False(t, cfg.RetainLockEntries)
	assert.Equal(t, 10*time.Second, cfg.OrderService.Timeout)

	require.Len(t, cfg.Triggers, 2)
	assert.Equal(t, "amzn-dip", cfg.Triggers[0].Name)
	assert.Equal(t, "AMZN", cfg.Triggers[0].EquityCode)
	assert.True(t, cfg.Triggers[0].Params.PriceThreshold.Equal(decimal.RequireFromString("5")))
	assert.Equal(t, 50, cfg.Triggers[0].Params.Quantity)
	assert.Equal(t, "msft-1", cfg.Triggers[1].Name)
}

func TestLoadFromFile_JSON(t *testing.T) {
	p := writeFile(t, "config.json", `{"dry_run":true,"triggers":[{"name":"a","equity_code":"AMZN","price_threshold":"5.00","quantity":50}]}`)
	cfg, err := LoadFromFile(p)
	require.NoError(t, err)
	require.Len(t, cfg.Triggers, 1)
	assert.Equal(t, 4, cfg.FeedWorkers)
}

func TestLoadFromFile_EnvOverrides(t *testing.T) {
	t.Setenv("EQUITYORDER_DRY_RUN", "false")
	t.Setenv("EQUITYORDER_ORDER_ENDPOINT", "http://broker:8080")
	t.Setenv("EQUITYORDER_FEED_WORKERS", "2")
	t.Setenv("EQUITYORDER_EQUITY_CODE", "nflx")
	t.Setenv("EQUITYORDER_PRICE_THRESHOLD", "420.5")
	t.Setenv("EQUITYORDER_QUANTITY", "3")

	cfg, err := LoadFromFile(writeFile(t, "config.yml", sampleYAML))
	require.NoError(t, err)

	assert.False(t, cfg.DryRun)
	assert.Equal(t, "http://broker:8080", cfg.OrderService.Endpoint)
	assert.Equal(t, 2, cfg.FeedWorkers)
	require.Len(t, cfg.Triggers, 3)
	assert.Equal(t, "env", cfg.Triggers[2].Name)
	assert.Equal(t, "NFLX", cfg.Triggers[2].EquityCode)
}

func TestLoadFromFile_EnvOnly(t *testing.T) {
	t.Setenv("EQUITYORDER_DRY_RUN", "true")
	t.Setenv("EQUITYORDER_EQUITY_CODE", "AMZN")
	t.Setenv("EQUITYORDER_PRICE_THRESHOLD", "5.00")
	t.Setenv("EQUITYORDER_QUANTITY", "50")

	cfg, err := LoadFromFile("")
	require.NoError(t, err)
	require.Len(t, cfg.Triggers, 1)
}

func TestLoadFromFile_Errors(t *testing.T) {
	cases := map[string]string{
		"no triggers":   "dry_run: true\n",
		"zero quantity": "dry_run: true\ntriggers:\n  - {name: a, equity_code: AMZN, price_threshold: \"5\", quantity: 0}\n",
		"neg threshold": "dry_run: true\ntriggers:\n  - {name: a, equity_code: AMZN, price_threshold: \"-1\", quantity: 1}\n",
		"bad threshold": "dry_run: true\ntriggers:\n  - {name: a, equity_code: AMZN, price_threshold: \"five\", quantity: 1}\n",
		"duplicate":     "dry_run: true\ntriggers:\n  - {name: a, equity_code: AMZN, price_threshold: \"5\", quantity: 1}\n  - {name: a, equity_code: MSFT, price_threshold: \"5\", quantity: 1}\n",
		"no endpoint":   "triggers:\n  - {name: a, equity_code: AMZN, price_threshold: \"5\", quantity: 1}\n",
		"no code":       "dry_run: true\ntriggers:\n  - {name: a, price_threshold: \"5\", quantity: 1}\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFromFile(writeFile(t, "c.yaml", content))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadFromFile_UnsupportedExtension(t *testing.T) {
	_, err := LoadFromFile(writeFile(t, "c.toml", "x = 1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "不支持的配置文件格式")
}
