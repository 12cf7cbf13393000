package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/blobsas/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-n string     storage account name
//	-k string     storage account key (base64)
//	-s string     storage connection string
//	-e string     blob service endpoint
//	-b string     blob backend: azure, s3, memory
//	-p string     policy backend: azure, postgres, memory
//	-d string     PostgreSQL DSN
//	-r string     container name
//	-i string     stored policy name
//	-w duration   clock skew allowance for object token start times
//	-l string     log level
//	-o string     OTLP/HTTP trace endpoint
//
// Arguments are filtered with flagx.FilterArgs first so -c/-config and any
// other unknown flags do not cause a parse error.
func parseFlags(c *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-n", "-k", "-s", "-e", "-b", "-p", "-d", "-r", "-i", "-w", "-l", "-o"})

	fs := flag.NewFlagSet("sasdemo", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&c.AccountName, "n", c.AccountName, "storage account name")
	fs.StringVar(&c.AccountKey, "k", c.AccountKey, "storage account key")
	fs.StringVar(&c.ConnectionString, "s", c.ConnectionString, "storage connection string")
	fs.StringVar(&c.BlobEndpoint, "e", c.BlobEndpoint, "blob service endpoint")
	fs.StringVar(&c.BlobBackend, "b", c.BlobBackend, "blob backend")
	fs.StringVar(&c.PolicyBackend, "p", c.PolicyBackend, "policy backend")
	fs.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "database DSN")
	fs.StringVar(&c.ContainerName, "r", c.ContainerName, "container name")
	fs.StringVar(&c.PolicyName, "i", c.PolicyName, "stored policy name")
	fs.DurationVar(&c.ClockSkew, "w", c.ClockSkew, "clock skew allowance")
	fs.StringVar(&c.LogLevel, "l", c.LogLevel, "log level")
	fs.StringVar(&c.OTelEndpoint, "o", c.OTelEndpoint, "OTLP/HTTP endpoint")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
