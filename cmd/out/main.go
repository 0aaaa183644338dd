// Command out delivers one notification to Slack. It reads a
// {source, params} JSON request on stdin, writes the resulting
// {version, metadata} to stdout and logs to stderr. The process exits
// non-zero only when the primary send path fails; crosspost failures are
// advisory and reported in metadata.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/bissquit/slack-courier/internal/app"
	"github.com/bissquit/slack-courier/internal/config"
	"github.com/bissquit/slack-courier/internal/resource"
	"github.com/bissquit/slack-courier/internal/version"
)

func main() {
	cfg, err := config.Load(os.Getenv("SLACK_COURIER_CONFIG"))
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	req, err := resource.ParseRequest(os.Stdin)
	if err != nil {
		app.InitLogger(cfg.Log)
		slog.Error("invalid request", "error", err)
		os.Exit(1)
	}

	if req.Params.Debug {
		cfg.Log.Level = "debug"
	}
	app.InitLogger(cfg.Log)

	slog.Debug("slack-courier starting",
		"version", version.Version,
		"commit", version.GitCommit,
	)

	resp, err := app.Run(context.Background(), cfg, req)
	if err != nil {
		slog.Error("delivery failed", "error", err)
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	if err := encoder.Encode(resp); err != nil {
		slog.Error("write response", "error", err)
		os.Exit(1)
	}
}
