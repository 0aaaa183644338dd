// Package app wires one delivery run: client construction, channel
// resolution, file uploads, the primary send, permalink resolution and
// crosspost fan-out.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/bissquit/slack-courier/internal/config"
	"github.com/bissquit/slack-courier/internal/delivery"
	"github.com/bissquit/slack-courier/internal/pkg/ctxlog"
	"github.com/bissquit/slack-courier/internal/resource"
	"github.com/bissquit/slack-courier/internal/slack"
)

// Run executes one notification delivery and returns the response to
// emit. An error from the primary send path should flip the process exit
// code; crosspost failures are recorded in the response metadata only.
func Run(ctx context.Context, cfg *config.Config, req *resource.Request) (*resource.Response, error) {
	ctx, requestID := ctxlog.WithRequestID(ctx)
	logger := ctxlog.FromContext(ctx)

	logger.Info("starting delivery",
		"channel", req.Params.Channel,
		"blocks", len(req.Params.Blocks),
		"files", len(req.Params.Files),
		"dry_run", req.Params.DryRun,
	)

	client, err := slack.NewClient(slack.Config{
		BaseURL:        cfg.API.URL,
		Token:          req.Source.Token,
		Timeout:        cfg.API.Timeout,
		ConnectTimeout: cfg.API.ConnectTimeout,
		RateLimit:      cfg.API.RateLimit,
	})
	if err != nil {
		return nil, err
	}

	policy := slack.RetryPolicy{
		MaxAttempts:       cfg.Retry.MaxAttempts,
		InitialBackoff:    cfg.Retry.InitialBackoff,
		MaxBackoff:        cfg.Retry.MaxBackoff,
		BackoffMultiplier: cfg.Retry.BackoffMultiplier,
	}
	sender := delivery.NewSender(client, policy)

	n := req.Notification()

	if !n.DryRun {
		channelID, err := resolveTarget(ctx, client, n.Channel)
		if err != nil {
			return nil, fmt.Errorf("resolve channel %q: %w", n.Channel, err)
		}
		n.Channel = channelID
	}

	if err := attachFiles(ctx, client, req, &n); err != nil {
		return nil, err
	}

	result, err := sender.Send(ctx, n)
	if err != nil {
		return nil, err
	}

	if !n.DryRun {
		permalink, err := sender.ResolvePermalink(ctx, result.ChannelID, result.Timestamp)
		if err != nil {
			// The message is already delivered; failing the step now
			// would cause a duplicate send on retry. The crosspost
			// backlink is skipped instead.
			logger.Warn("permalink resolution failed", "error", err)
		} else {
			result.Permalink = permalink
		}
	}

	outcomes := delivery.NewOrchestrator(sender).Crosspost(ctx, n, result.Permalink)

	logger.Info("delivery complete",
		"request_id", requestID,
		"ts", result.Timestamp,
		"crossposts", len(outcomes),
	)

	return resource.BuildResponse(req, result, outcomes), nil
}

// resolveTarget maps a channel mention to a conversation ID. A leading @
// addresses a user and opens a direct message; anything else resolves as
// a channel. Already-valid IDs pass through without a lookup.
func resolveTarget(ctx context.Context, client *slack.Client, target string) (string, error) {
	if strings.HasPrefix(target, "@") {
		return client.ResolveDMID(ctx, target)
	}
	return client.ResolveChannelID(ctx, target)
}

// attachFiles uploads each requested file and appends the resulting
// block to the notification. Upload failures are fatal to the run.
func attachFiles(ctx context.Context, client *slack.Client, req *resource.Request, n *delivery.Notification) error {
	logger := ctxlog.FromContext(ctx)

	for _, f := range req.Params.Files {
		if n.DryRun {
			logger.Info("dry run: skipping file upload", "path", f.Path)
			continue
		}

		block, err := client.UploadFile(ctx, slack.UploadRequest{
			Path:    f.Path,
			Channel: n.Channel,
			Title:   f.Title,
			Comment: f.Comment,
		})
		if err != nil {
			return fmt.Errorf("upload %s: %w", f.Path, err)
		}

		raw, err := block.Raw()
		if err != nil {
			return err
		}
		n.Blocks = append(n.Blocks, raw)
	}

	return nil
}

// InitLogger installs the process-wide slog logger writing to stderr so
// stdout stays reserved for the resource response.
func InitLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
