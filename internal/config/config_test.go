package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coveragesync/internal/keys"
	"coveragesync/internal/models"
)

func validConfig() *Config {
	return &Config{
		DatabaseURL:     "postgres://localhost:5432/coverage",
		APIBaseURL:      "https://coverage.example.com",
		APIKey:          "secret",
		Region:          "US",
		Mode:            keys.ModeRanges,
		Rate:            10,
		BatchSize:       500,
		RequestTimeout:  8 * time.Second,
		MaxAttempts:     3,
		RetryBase:       2 * time.Second,
		RetryMax:        30 * time.Second,
		RetryMultiplier: 2,
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"SYNC_RATE", "SYNC_BATCH_SIZE", "SYNC_MODE", "SYNC_REQUEST_TIMEOUT_MS", "SYNC_MAX_ATTEMPTS", "SERVER_ADDR"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, keys.ModeRanges, cfg.Mode)
	assert.Equal(t, 10.0, cfg.Rate)
	assert.Equal(t, 500, cfg.BatchSize)
	assert.Equal(t, 8*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.RetryBase)
	assert.Equal(t, "US", cfg.Region)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SYNC_RATE", "2.5")
	t.Setenv("SYNC_BATCH_SIZE", "100")
	t.Setenv("SYNC_MODE", keys.ModeCurated)
	t.Setenv("SYNC_STATUS_ONLY", "1")
	t.Setenv("SYNC_REQUEST_TIMEOUT_MS", "5000")
	t.Setenv("COVERAGE_API_KEY", "k")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2.5, cfg.Rate)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, keys.ModeCurated, cfg.Mode)
	assert.True(t, cfg.StatusOnly)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "k", cfg.APIKey)
}

func TestLoad_BadNumbers(t *testing.T) {
	t.Setenv("SYNC_RATE", "fast")
	t.Setenv("SYNC_BATCH_SIZE", "lots")

	_, err := Load()
	require.Error(t, err)

	var fatal *FatalError
	require.True(t, errors.As(err, &fatal))
	assert.Len(t, fatal.Errs, 2)
	assert.ErrorIs(t, err, ErrInvalidSetting)
}

func TestLoad_Booleans(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{"false", false},
		{"0", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("SYNC_STATUS_ONLY", tt.value)
			t.Setenv("SYNC_AGGRESSIVE", tt.value)

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.StatusOnly)
			assert.Equal(t, tt.want, cfg.Aggressive)
			assert.Equal(t, tt.want, cfg.LookupConfig().StatusOnly)
		})
	}
}

func TestLoad_StrictByDefaultWhenFlagsAreFalse(t *testing.T) {
	t.Setenv("SYNC_STATUS_ONLY", "false")
	t.Setenv("SYNC_AGGRESSIVE", "0")
	t.Setenv("SYNC_RATE", "10")
	t.Setenv("SYNC_MODE", keys.ModeRanges)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, models.JobTypeRanges, cfg.JobType())
	assert.Equal(t, 10.0, cfg.EffectiveRate())
}

func TestLoad_BadBoolean(t *testing.T) {
	t.Setenv("SYNC_STATUS_ONLY", "nope")

	_, err := Load()
	require.Error(t, err)

	var fatal *FatalError
	require.True(t, errors.As(err, &fatal))
	assert.Len(t, fatal.Errs, 1)
	assert.ErrorIs(t, err, ErrInvalidSetting)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"missing api key", func(c *Config) { c.APIKey = "" }, ErrMissingAPIKey},
		{"missing base url", func(c *Config) { c.APIBaseURL = "" }, ErrMissingBaseURL},
		{"bad base url", func(c *Config) { c.APIBaseURL = "ftp://coverage" }, ErrInvalidBaseURL},
		{"missing database", func(c *Config) { c.DatabaseURL = "" }, ErrMissingDatabaseURL},
		{"unknown mode", func(c *Config) { c.Mode = "everything" }, ErrInvalidMode},
		{"zero rate", func(c *Config) { c.Rate = 0 }, ErrInvalidSetting},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }, ErrInvalidSetting},
		{"no attempts", func(c *Config) { c.MaxAttempts = 0 }, ErrInvalidSetting},
		{"shrinking retries", func(c *Config) { c.RetryMultiplier = 0.5 }, ErrInvalidSetting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var fatal *FatalError
			assert.True(t, errors.As(err, &fatal))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.APIKey = ""
	cfg.DatabaseURL = ""

	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.ErrorIs(t, err, ErrMissingDatabaseURL)
}

func TestValidateServe(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://localhost/coverage"}
	assert.NoError(t, cfg.ValidateServe())

	cfg.Schedule = "@hourly"
	assert.ErrorIs(t, cfg.ValidateServe(), ErrMissingAPIKey)

	assert.ErrorIs(t, (&Config{}).ValidateServe(), ErrMissingDatabaseURL)
}

func TestEffectiveRate(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, 10.0, cfg.EffectiveRate())

	cfg.Aggressive = true
	assert.Equal(t, AggressiveRate, cfg.EffectiveRate())

	cfg.Rate = 20
	assert.Equal(t, 20.0, cfg.EffectiveRate())
}

func TestJobType(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, models.JobTypeRanges, cfg.JobType())

	cfg.StatusOnly = true
	assert.Equal(t, models.JobTypeCoverageOnly, cfg.JobType())
}

func TestRetryPolicyAndLookupConfig(t *testing.T) {
	cfg := validConfig()

	p := cfg.RetryPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 2*time.Second, p.BaseDelay)
	assert.Equal(t, 30*time.Second, p.MaxDelay)
	assert.Equal(t, 2.0, p.Multiplier)

	lc := cfg.LookupConfig()
	assert.Equal(t, "https://coverage.example.com", lc.BaseURL)
	assert.Equal(t, "secret", lc.APIKey)
	assert.Equal(t, 8*time.Second, lc.Timeout)
}

func TestLoadKeysFile(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		f, err := LoadKeysFile("")
		assert.NoError(t, err)
		assert.Nil(t, f)
	})

	t.Run("missing file", func(t *testing.T) {
		f, err := LoadKeysFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.NoError(t, err)
		assert.Nil(t, f)
	})

	t.Run("parses sections", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "keys.yaml")
		content := `
curated:
  - name: New York
    keys: ["10001", "10002"]
ranges:
  - {name: Test, start: 100, end: 102}
special: ["00501"]
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		f, err := LoadKeysFile(path)
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, []keys.Group{{Name: "New York", Keys: []string{"10001", "10002"}}}, f.Curated)
		assert.Equal(t, []keys.Range{{Name: "Test", Start: 100, End: 102}}, f.Ranges)
		assert.Equal(t, []string{"00501"}, f.Special)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "keys.yaml")
		require.NoError(t, os.WriteFile(path, []byte("ranges: [oops"), 0o600))

		_, err := LoadKeysFile(path)
		assert.Error(t, err)
	})
}

func TestSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ranges:\n  - {name: Tiny, start: 100, end: 101}\nspecial: []\n"), 0o600))

	cfg := validConfig()
	cfg.KeysFile = path

	src, err := cfg.Source()
	require.NoError(t, err)
	assert.Equal(t, []string{"00100", "00101"}, src.Keys())

	cfg.Mode = "bogus"
	_, err = cfg.Source()
	var fatal *FatalError
	assert.True(t, errors.As(err, &fatal))
}
