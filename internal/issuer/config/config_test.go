package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "devstoreaccount1", c.AccountName)
	assert.Equal(t, DevAccountKey, c.AccountKey)
	assert.Equal(t, "http://127.0.0.1:10000/devstoreaccount1", c.BlobEndpoint)
	assert.Equal(t, BackendAzure, c.BlobBackend)
	assert.Equal(t, BackendAzure, c.PolicyBackend)
	assert.Equal(t, "backup", c.ContainerName)
	assert.Equal(t, "tutorialpolicy", c.PolicyName)
	assert.Equal(t, 5*time.Minute, c.ClockSkew)
	assert.Equal(t, 240*time.Hour, c.ContainerTokenTTL)
	assert.Equal(t, 4*time.Hour, c.ObjectTokenTTL)
	assert.Equal(t, 10*time.Hour, c.PolicyTTL)
	assert.Equal(t, "info", c.LogLevel)
	assert.Empty(t, c.OTelEndpoint)
	require.NoError(t, c.Validate())
}

func TestLoadConfig_UsesDefaultsWithoutInput(t *testing.T) {
	c, err := LoadConfig(nil)
	require.NoError(t, err)
	require.NotNil(t, c)

	want := &Config{}
	want.LoadDefaults()
	assert.Equal(t, want, c)
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeTempFile(t, "sas.yaml", "container_name: fromfile\npolicy_name: filepolicy\nlog_level: warn\n")
	t.Setenv("SAS_POLICY_NAME", "envpolicy")
	t.Setenv("SAS_LOG_LEVEL", "error")

	c, err := LoadConfig([]string{"-c", path, "-l", "debug"})
	require.NoError(t, err)

	assert.Equal(t, "fromfile", c.ContainerName)
	assert.Equal(t, "envpolicy", c.PolicyName)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestLoadConfig_ConnectionStringOverridesAccount(t *testing.T) {
	t.Setenv("SAS_CONNECTION_STRING", "DefaultEndpointsProtocol=https;AccountName=prodacct;AccountKey=a2V5;EndpointSuffix=core.windows.net")

	c, err := LoadConfig([]string{"-n", "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "prodacct", c.AccountName)
	assert.Equal(t, "a2V5", c.AccountKey)
	assert.Equal(t, "https://prodacct.blob.core.windows.net", c.BlobEndpoint)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig([]string{"-config", "/does/not/exist.json"})
		require.Error(t, err)
	})

	t.Run("bad env duration", func(t *testing.T) {
		t.Setenv("SAS_CLOCK_SKEW", "a while")
		_, err := LoadConfig(nil)
		require.Error(t, err)
	})

	t.Run("bad flag value", func(t *testing.T) {
		_, err := LoadConfig([]string{"-w", "soon"})
		require.Error(t, err)
	})

	t.Run("bad connection string", func(t *testing.T) {
		_, err := LoadConfig([]string{"-s", "AccountName=x"})
		require.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := LoadConfig([]string{"-b", "ftp"})
		require.ErrorContains(t, err, `unknown blob backend "ftp"`)
	})
}

func TestValidate(t *testing.T) {
	base := func() Config {
		var c Config
		c.LoadDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "memory backends", mutate: func(c *Config) { c.BlobBackend, c.PolicyBackend = BackendMemory, BackendMemory }},
		{name: "s3 without endpoint", mutate: func(c *Config) { c.BlobBackend, c.S3BaseEndpoint = BackendS3, "" }, wantErr: "requires an S3 endpoint"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.PolicyBackend, c.DatabaseDSN = BackendPostgres, "" }, wantErr: "requires a database DSN"},
		{name: "unknown policy backend", mutate: func(c *Config) { c.PolicyBackend = "redis" }, wantErr: "unknown policy backend"},
		{name: "no account", mutate: func(c *Config) { c.AccountName = "" }, wantErr: "account name and key"},
		{name: "no endpoint", mutate: func(c *Config) { c.BlobEndpoint = "" }, wantErr: "blob endpoint"},
		{name: "zero ttl", mutate: func(c *Config) { c.ObjectTokenTTL = 0 }, wantErr: "must be positive"},
		{name: "negative skew", mutate: func(c *Config) { c.ClockSkew = -time.Second }, wantErr: "must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
