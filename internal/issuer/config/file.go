package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/blobsas/internal/flagx"
	"github.com/dmitrijs2005/blobsas/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk form of Config. Durations accept "10h" style
// strings or integer nanoseconds. Empty fields keep the value already in
// Config.
type FileConfig struct {
	AccountName      string `json:"account_name" yaml:"account_name"`
	AccountKey       string `json:"account_key" yaml:"account_key"`
	ConnectionString string `json:"connection_string" yaml:"connection_string"`
	BlobEndpoint     string `json:"blob_endpoint" yaml:"blob_endpoint"`

	BlobBackend   string `json:"blob_backend" yaml:"blob_backend"`
	PolicyBackend string `json:"policy_backend" yaml:"policy_backend"`
	DatabaseDSN   string `json:"database_dsn" yaml:"database_dsn"`

	S3RootUser     string `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password" yaml:"s3_root_password"`
	S3Region       string `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`

	ContainerName     string         `json:"container_name" yaml:"container_name"`
	PolicyName        string         `json:"policy_name" yaml:"policy_name"`
	ClockSkew         timex.Duration `json:"clock_skew" yaml:"clock_skew"`
	ContainerTokenTTL timex.Duration `json:"container_token_ttl" yaml:"container_token_ttl"`
	ObjectTokenTTL    timex.Duration `json:"object_token_ttl" yaml:"object_token_ttl"`
	PolicyTTL         timex.Duration `json:"policy_ttl" yaml:"policy_ttl"`

	LogLevel     string `json:"log_level" yaml:"log_level"`
	OTelEndpoint string `json:"otel_endpoint" yaml:"otel_endpoint"`
}

// parseFile loads the file named by -c/-config, if any. The format is
// chosen by extension: .yaml and .yml are YAML, anything else is JSON.
func parseFile(c *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	fc.apply(c)
	return nil
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.AccountName, fc.AccountName)
	setString(&c.AccountKey, fc.AccountKey)
	setString(&c.ConnectionString, fc.ConnectionString)
	setString(&c.BlobEndpoint, fc.BlobEndpoint)
	setString(&c.BlobBackend, fc.BlobBackend)
	setString(&c.PolicyBackend, fc.PolicyBackend)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.S3RootUser, fc.S3RootUser)
	setString(&c.S3RootPassword, fc.S3RootPassword)
	setString(&c.S3Region, fc.S3Region)
	setString(&c.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&c.ContainerName, fc.ContainerName)
	setString(&c.PolicyName, fc.PolicyName)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.OTelEndpoint, fc.OTelEndpoint)

	if fc.ClockSkew.Duration != 0 {
		c.ClockSkew = fc.ClockSkew.Duration
	}
	if fc.ContainerTokenTTL.Duration != 0 {
		c.ContainerTokenTTL = fc.ContainerTokenTTL.Duration
	}
	if fc.ObjectTokenTTL.Duration != 0 {
		c.ObjectTokenTTL = fc.ObjectTokenTTL.Duration
	}
	if fc.PolicyTTL.Duration != 0 {
		c.PolicyTTL = fc.PolicyTTL.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
