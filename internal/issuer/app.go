// Package issuer wires configuration, storage backends and the token
// issuer together and runs the sample token workflow.
package issuer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/blobsas/internal/blobstore"
	"github.com/dmitrijs2005/blobsas/internal/issuer/config"
	"github.com/dmitrijs2005/blobsas/internal/issuer/repositories/repomanager"
	"github.com/dmitrijs2005/blobsas/internal/issuer/services"
	"github.com/dmitrijs2005/blobsas/internal/logging"
	"github.com/dmitrijs2005/blobsas/internal/sas"
	"github.com/dmitrijs2005/blobsas/internal/storage/azure"
	"github.com/dmitrijs2005/blobsas/internal/storage/memory"
	"github.com/dmitrijs2005/blobsas/internal/storage/s3store"
	"github.com/dmitrijs2005/blobsas/internal/telemetry"
)

const serviceName = "sasdemo"

// Blob names and contents uploaded by the sample run.
const (
	AdHocBlobName  = "sasblob.txt"
	PolicyBlobName = "sasblobpolicy.txt"
	adHocBlobBody  = "This blob will be accessible to clients via a Shared Access Signature."
	policyBlobBody = "This blob will be accessible to clients via a shared access signature. A stored access policy defines the constraints for the signature."
)

var logOutput io.Writer = os.Stdout

// Seams for tests.
var (
	newAzure       = azure.NewClient
	newS3Store     = s3store.New
	openPostgres   = repomanager.OpenPostgres
	newRepoManager = repomanager.NewPostgresRepositoryManager
	setupTelemetry = telemetry.Setup
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	cred    *sas.Credential
	store   blobstore.Store
	issuer  *sas.Issuer
	now     func() time.Time
	closers []func(context.Context) error
}

// NewApp builds every dependency named by c. Close releases them.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(logOutput, c.LogLevel)
	if err != nil {
		return nil, err
	}

	app := &App{config: c, logger: logger, now: time.Now}

	shutdown, err := setupTelemetry(ctx, serviceName, c.OTelEndpoint)
	if err != nil {
		return nil, fmt.Errorf("telemetry init error: %w", err)
	}
	app.closers = append(app.closers, shutdown)

	app.cred, err = sas.CredentialFromBase64(c.AccountName, c.AccountKey)
	if err != nil {
		_ = app.Close(ctx)
		return nil, err
	}

	var mem *memory.Store
	var az *azure.Client

	switch c.BlobBackend {
	case config.BackendAzure:
		az, err = newAzure(c.BlobEndpoint, c.AccountName, c.AccountKey, logger)
		app.store = az
	case config.BackendS3:
		app.store, err = newS3Store(ctx, s3store.Options{
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			BaseEndpoint: c.S3BaseEndpoint,
		}, logger)
	case config.BackendMemory:
		var endpoint sas.ServiceEndpoint
		if endpoint, err = sas.NewServiceEndpoint(c.BlobEndpoint); err == nil {
			mem = memory.New(endpoint)
			app.store = mem
		}
	default:
		err = fmt.Errorf("unknown blob backend %q", c.BlobBackend)
	}
	if err != nil {
		_ = app.Close(ctx)
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	backend, err := app.policyBackend(ctx, az, mem)
	if err != nil {
		_ = app.Close(ctx)
		return nil, fmt.Errorf("policy backend init error: %w", err)
	}

	app.issuer = sas.NewIssuer(app.cred, sas.NewPolicyStore(backend), app.store,
		sas.WithLogger(logger),
		sas.WithClock(func() time.Time { return app.now() }),
	)
	return app, nil
}

func (app *App) policyBackend(ctx context.Context, az *azure.Client, mem *memory.Store) (sas.PolicyBackend, error) {
	c := app.config
	switch c.PolicyBackend {
	case config.BackendAzure:
		if az != nil {
			return az, nil
		}
		return newAzure(c.BlobEndpoint, c.AccountName, c.AccountKey, app.logger)
	case config.BackendMemory:
		if mem != nil {
			return mem, nil
		}
		endpoint, err := sas.NewServiceEndpoint(c.BlobEndpoint)
		if err != nil {
			return nil, err
		}
		return memory.New(endpoint), nil
	case config.BackendPostgres:
		db, err := openPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func(context.Context) error { return db.Close() })

		rm := newRepoManager()
		if err := rm.RunMigrations(ctx, db); err != nil {
			return nil, err
		}
		return services.NewPolicyService(db, rm, app.logger), nil
	default:
		return nil, fmt.Errorf("unknown policy backend %q", c.PolicyBackend)
	}
}

// Close flushes telemetry and closes the database, in reverse order of
// creation.
func (app *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			cancelFunc()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

// Result holds the URIs produced by one sample run.
type Result struct {
	ContainerURI       string
	BlobURI            string
	PolicyContainerURI string
	PolicyBlobURI      string
}

// Run executes the sample workflow and logs every URI it issues. SIGINT
// and SIGTERM cancel it.
func (app *App) Run(ctx context.Context) (*Result, error) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	stop := app.initSignalHandler(cancelFunc)
	defer stop()

	app.logger.Info(ctx, "Starting app...", "backend", app.config.BlobBackend, "policies", app.config.PolicyBackend)

	res, err := app.runSample(ctx)
	if err != nil {
		app.logger.Error(ctx, "sample run failed", "error", err)
		return nil, err
	}
	return res, nil
}

func (app *App) runSample(ctx context.Context) (*Result, error) {
	c := app.config
	account := app.cred.AccountName()
	res := &Result{}

	if err := app.store.EnsureContainer(ctx, c.ContainerName); err != nil {
		return nil, fmt.Errorf("ensure container: %w", err)
	}

	containerRef, err := sas.NewContainerReference(account, c.ContainerName)
	if err != nil {
		return nil, err
	}

	// No start time: valid immediately.
	now := app.now()
	tok, err := app.issuer.IssueAdHocToken(ctx, containerRef, sas.AdHoc{
		Expiry:      now.Add(c.ContainerTokenTTL),
		Permissions: sas.NewPermissions(sas.Write, sas.List),
	})
	if err != nil {
		return nil, fmt.Errorf("container token: %w", err)
	}
	res.ContainerURI = tok.URI()
	app.logger.Info(ctx, "Container SAS URI", "uri", res.ContainerURI)

	blobRef, err := sas.NewObjectReference(account, c.ContainerName, AdHocBlobName)
	if err != nil {
		return nil, err
	}
	if err := app.store.Upload(ctx, blobRef, []byte(adHocBlobBody)); err != nil {
		return nil, fmt.Errorf("upload %s: %w", AdHocBlobName, err)
	}

	now = app.now()
	tok, err = app.issuer.IssueAdHocToken(ctx, blobRef, sas.AdHoc{
		Start:       sas.BackdateStart(now, c.ClockSkew),
		Expiry:      now.Add(c.ObjectTokenTTL),
		Permissions: sas.NewPermissions(sas.Read, sas.Write),
	})
	if err != nil {
		return nil, fmt.Errorf("blob token: %w", err)
	}
	res.BlobURI = tok.URI()
	app.logger.Info(ctx, "Blob SAS URI", "uri", res.BlobURI)

	policy := sas.StoredPolicy{
		ID:          c.PolicyName,
		Expiry:      app.now().Add(c.PolicyTTL),
		Permissions: sas.NewPermissions(sas.Read, sas.Write, sas.List),
	}
	if err := app.issuer.SetContainerPolicies(ctx, c.ContainerName, []sas.StoredPolicy{policy}); err != nil {
		return nil, fmt.Errorf("stored policy: %w", err)
	}

	tok, err = app.issuer.IssuePolicyToken(ctx, containerRef, c.PolicyName)
	if err != nil {
		return nil, fmt.Errorf("container policy token: %w", err)
	}
	res.PolicyContainerURI = tok.URI()
	app.logger.Info(ctx, "Container SAS URI using stored access policy", "uri", res.PolicyContainerURI)

	policyBlobRef, err := sas.NewObjectReference(account, c.ContainerName, PolicyBlobName)
	if err != nil {
		return nil, err
	}
	if err := app.store.Upload(ctx, policyBlobRef, []byte(policyBlobBody)); err != nil {
		return nil, fmt.Errorf("upload %s: %w", PolicyBlobName, err)
	}

	tok, err = app.issuer.IssuePolicyToken(ctx, policyBlobRef, c.PolicyName)
	if err != nil {
		return nil, fmt.Errorf("blob policy token: %w", err)
	}
	res.PolicyBlobURI = tok.URI()
	app.logger.Info(ctx, "Blob SAS URI using stored access policy", "uri", res.PolicyBlobURI)

	return res, nil
}
