package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := &runner{}
	app := &cli.Command{
		Name:  "pms",
		Usage: "Project management backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("PMS_CONFIG"),
			},
		},
		Before:   r.load,
		Commands: r.commands(),
		Action:   r.serve,
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal("application error", "err", err)
	}
}

func (r *runner) commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "serve",
			Usage:  "Run the HTTP API",
			Action: r.serve,
		},
		{
			Name:  "migrate",
			Usage: "Create missing tables",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "drop",
					Usage: "Drop all tables first",
				},
			},
			Action: r.migrate,
		},
		{
			Name:  "seed",
			Usage: "Insert sample roles, users, projects and works",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "reset",
					Usage: "Delete existing rows before seeding",
				},
			},
			Action: r.seed,
		},
		{
			Name:   "consume",
			Usage:  "Append audit events from the broker to the audit log",
			Action: r.consume,
		},
	}
}
