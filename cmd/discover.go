package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tubetodo/internal/models"
	"github.com/desertthunder/tubetodo/internal/shared"
	"github.com/desertthunder/tubetodo/internal/tasks"
)

// discovery builds a runner for direct or relay probing from the discovery config.
func (r *Runner) discovery(relay bool) *tasks.Discovery {
	cfg := r.config.Discovery
	opts := tasks.ProbeOpts{Canary: cfg.CanaryPlaylist, Timeout: cfg.Timeout()}

	var prober tasks.Prober = tasks.NewDirectProber(r.api, opts)
	if relay {
		prober = tasks.NewRelayProber(r.api, cfg.RelayURL, opts)
	}
	return tasks.NewDiscovery(prober, cfg.MaxConcurrency, r.logger)
}

type discoveryView struct {
	Mode       string            `json:"mode"`
	Working    []models.Instance `json:"working"`
	NotWorking []models.Instance `json:"not_working"`
}

// Discover probes the candidates given as arguments, or the configured list, and reports the working ones.
func (r *Runner) Discover(ctx context.Context, cmd *cli.Command) error {
	candidates := cmd.Args().Slice()
	if len(candidates) == 0 {
		candidates = r.config.Discovery.Candidates
	}
	if len(candidates) == 0 {
		return fmt.Errorf("%w: no candidates given and none configured", shared.ErrMissingArgument)
	}

	relay := cmd.Bool("relay")
	mode := "direct"
	if relay {
		mode = "relay"
	}

	progress, stop := r.watchProgress()
	result := r.discovery(relay).Run(ctx, progress, candidates)
	stop()

	if cmd.Bool("save") {
		if err := r.openStore(); err != nil {
			return err
		}
		if err := r.instances.SaveRun(result.Instances); err != nil {
			return err
		}
		r.logger.Info("discovery saved", "instances", len(result.Instances))
	}

	view := discoveryView{Mode: mode, Working: result.Working(), NotWorking: result.NotWorking()}
	if cmd.Bool("json") {
		return r.writeJSON(view, true)
	}

	r.writePlainHeader(fmt.Sprintf("Working instances (%d/%d, %s)", len(view.Working), len(result.Instances), mode))
	for _, inst := range view.Working {
		users := ""
		if inst.Users != nil {
			users = fmt.Sprintf(" %d users", *inst.Users)
		}
		r.writePlain("  ✓ %-40s %-9s%s %s\n", inst.BaseURL, inst.Kind, users, inst.Latency.Round(time.Millisecond))
	}
	if len(view.NotWorking) > 0 {
		r.writePlain("\nNot working:\n")
		for _, inst := range view.NotWorking {
			r.writePlain("  ✗ %-40s %s (%s): %s\n", inst.BaseURL, inst.LastError, inst.Stage, inst.Message)
		}
	}
	return nil
}
