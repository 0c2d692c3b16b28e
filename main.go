package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"vidframe/logger"
)

// serveFlag lets the long-running commands answer status queries while
// they hold the record stores.
func serveFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "serve",
		Usage: "also serve job records over HTTP on VIDFRAME_HTTP_ADDR",
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "vidframe",
		Usage: "Extract still frames from a video with AWS Elemental MediaConvert",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "path to an environment file",
				Value: ".env",
			},
		},
		Action: runAction,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "ensure bucket and role, submit the job, wait for it and deliver frames",
				Flags:  []cli.Flag{serveFlag()},
				Action: runAction,
			},
			{
				Name:   "role",
				Usage:  "create the MediaConvert IAM role if it does not exist",
				Action: roleAction,
			},
			{
				Name:   "bucket",
				Usage:  "create the bucket and apply the MediaConvert access policy",
				Action: bucketAction,
			},
			{
				Name:   "submit",
				Usage:  "submit a frame-extraction job without waiting for it",
				Action: submitAction,
			},
			{
				Name:      "status",
				Usage:     "print the current status of one or more jobs",
				ArgsUsage: "JOB_ID...",
				Action:    statusAction,
			},
			{
				Name:   "resume",
				Usage:  "wait for jobs left pending by an earlier run",
				Flags:  []cli.Flag{serveFlag()},
				Action: resumeAction,
			},
			{
				Name:   "serve",
				Usage:  "serve job records over HTTP while no run or resume holds the stores",
				Action: serveAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Errorf("%v", err)
		logger.Close()
		os.Exit(1)
	}
	logger.Close()
}
