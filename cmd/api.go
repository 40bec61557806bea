package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tubetodo/internal/services"
	"github.com/desertthunder/tubetodo/internal/shared"
)

// APIGet fetches a URL with the shared HTTP transport and prints the body.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	target := strings.TrimSpace(cmd.StringArg("url"))
	if target == "" {
		return fmt.Errorf("%w: url", shared.ErrMissingArgument)
	}

	r.logger.Info("GET request", "url", target)

	resp, err := r.api.Get(ctx, target)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	r.logger.Debug("response", "status", resp.StatusCode, "elapsed", resp.Elapsed, "bytes", len(resp.Body))

	if !resp.OK() {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if cmd.Bool("detect") {
		kind, err := services.DetectShape(resp.Body)
		if err != nil {
			return r.writePlain("shape: none (%v)\n", err)
		}
		return r.writePlain("shape: %s\n", kind)
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, !cmd.Bool("json"))
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}
