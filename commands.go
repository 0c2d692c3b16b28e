package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"vidframe/bucket"
	"vidframe/cloud"
	"vidframe/config"
	"vidframe/delivery"
	"vidframe/failures"
	"vidframe/job"
	"vidframe/logger"
	"vidframe/queue"
	"vidframe/role"
	"vidframe/routes"
	"vidframe/success"
	"vidframe/workflow"
)

// recordRetention is how long success and failure records are kept by serve.
const recordRetention = 30 * 24 * time.Hour

// appContext is what every command starts from: configuration, logging and,
// on demand, AWS clients and the record stores.
type appContext struct {
	cfg     *config.Config
	clients *cloud.Clients
	pending *queue.Pending
	closers []func() error
}

func newAppContext(ctx context.Context, cmd *cli.Command) (*appContext, error) {
	cfg, err := config.Load(cmd.String("env"))
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.LogFile, true, logger.ParseLevel(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	clients, err := cloud.NewClients(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &appContext{cfg: cfg, clients: clients}, nil
}

// openStores opens the pending queue and initializes the success and
// failure stores under cfg.DataDir.
func (a *appContext) openStores() error {
	if err := os.MkdirAll(a.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir %s: %w", a.cfg.DataDir, err)
	}

	logger.Debug("Initializing failures database")
	if err := failures.Init(a.cfg.FailuresDBPath()); err != nil {
		return err
	}
	a.closers = append(a.closers, failures.Close)

	logger.Debug("Initializing success database")
	if err := success.Init(a.cfg.SuccessDBPath()); err != nil {
		return err
	}
	a.closers = append(a.closers, success.Close)

	pending, err := queue.OpenPending(a.cfg.PendingDBPath())
	if err != nil {
		return err
	}
	a.pending = pending
	a.closers = append(a.closers, pending.Close)
	return nil
}

func (a *appContext) jobClient(ctx context.Context) (*job.Client, error) {
	var opts []job.Option
	if a.cfg.QueueARN != "" {
		opts = append(opts, job.WithQueue(a.cfg.QueueARN))
	}
	return job.New(ctx, a.clients.Config, opts...)
}

// deps wires the workflow collaborators; the caller owns the returned
// target and must close it when non-nil.
func (a *appContext) deps(ctx context.Context) (workflow.Deps, error) {
	jobs, err := a.jobClient(ctx)
	if err != nil {
		return workflow.Deps{}, err
	}
	target, err := delivery.NewTarget(ctx, a.cfg.Delivery)
	if err != nil {
		return workflow.Deps{}, err
	}
	return workflow.Deps{
		IAM:     a.clients.IAM,
		S3:      a.clients.S3,
		Jobs:    jobs,
		Pending: a.pending,
		Target:  target,
	}, nil
}

func (a *appContext) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warnf("Failed to close store: %v", err)
		}
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	app, err := newAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	if err := app.openStores(); err != nil {
		return err
	}
	if cmd.Bool("serve") {
		stop := app.serveAlongside(ctx)
		defer stop()
	}

	d, err := app.deps(ctx)
	if err != nil {
		return err
	}
	if d.Target != nil {
		defer d.Target.Close()
	}

	res, err := workflow.Run(ctx, d, app.cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Job %s: %s\n", res.Record.JobID, res.Status)
	fmt.Printf("Frames: %s\n", res.Record.Destinations[job.FrameCaptureGroup])
	fmt.Printf("Video:  %s\n", res.Record.Destinations[job.VideoOutputGroup])
	if d.Target != nil {
		fmt.Printf("Delivered %d frames to %s target\n", res.Delivered, app.cfg.Delivery.Type)
	}
	return nil
}

func roleAction(ctx context.Context, cmd *cli.Command) error {
	app, err := newAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	r, err := role.Ensure(ctx, app.clients.IAM, role.Spec{Name: app.cfg.RoleName})
	if err != nil {
		return err
	}
	fmt.Println(r.ARN)
	return nil
}

func bucketAction(ctx context.Context, cmd *cli.Command) error {
	app, err := newAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	b, err := bucket.Ensure(ctx, app.clients.S3, app.cfg.Bucket, app.cfg.Region)
	if err != nil {
		return err
	}
	fmt.Println(b.Name)
	return nil
}

func submitAction(ctx context.Context, cmd *cli.Command) error {
	app, err := newAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	if err := app.openStores(); err != nil {
		return err
	}

	r, err := role.Ensure(ctx, app.clients.IAM, role.Spec{Name: app.cfg.RoleName})
	if err != nil {
		return err
	}
	jobs, err := app.jobClient(ctx)
	if err != nil {
		return err
	}

	d := workflow.Deps{Jobs: jobs, Pending: app.pending}
	rec, err := workflow.Submit(ctx, d, app.cfg.Region, r.ARN, job.Request{
		InputBucket:   app.cfg.Bucket,
		InputKey:      app.cfg.InputKey,
		OutputBucket:  app.cfg.OutputBucket,
		FrameInterval: app.cfg.FrameInterval,
	})
	if err != nil {
		return err
	}
	fmt.Println(rec.JobID)
	return nil
}

func statusAction(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("at least one job ID is required")
	}

	app, err := newAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	jobs, err := app.jobClient(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		status, err := jobs.Status(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", id, status)
	}
	return nil
}

func resumeAction(ctx context.Context, cmd *cli.Command) error {
	app, err := newAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	if err := app.openStores(); err != nil {
		return err
	}
	if cmd.Bool("serve") {
		stop := app.serveAlongside(ctx)
		defer stop()
	}

	d, err := app.deps(ctx)
	if err != nil {
		return err
	}
	if d.Target != nil {
		defer d.Target.Close()
	}

	results, err := workflow.Resume(ctx, d, app.cfg.PollInterval)
	for _, res := range results {
		fmt.Printf("Job %s: %s\n", res.Record.JobID, res.Status)
	}
	return err
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("env"))
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.LogFile, true, logger.ParseLevel(cfg.LogLevel)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app := &appContext{cfg: cfg}
	defer app.Close()
	if err := app.openStores(); err != nil {
		return err
	}

	go cleanupRoutine(ctx)

	return routes.Serve(ctx, cfg.HTTPAddr, app.pending)
}

// serveAlongside starts the status server over the stores the command
// already holds open. The returned stop shuts it down and waits for it.
func (a *appContext) serveAlongside(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := routes.Serve(ctx, a.cfg.HTTPAddr, a.pending); err != nil {
			logger.Errorf("Status server: %v", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// cleanupRoutine periodically removes old success and failure records.
func cleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := success.CleanupOldRecords(recordRetention); err != nil {
				logger.Errorf("Failed to cleanup old success records: %v", err)
			} else {
				logger.Infof("Removed %d old success records", n)
			}
			if n, err := failures.CleanupOldRecords(recordRetention); err != nil {
				logger.Errorf("Failed to cleanup old failure records: %v", err)
			} else {
				logger.Infof("Removed %d old failure records", n)
			}
		}
	}
}
