package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/upb/chat-fallback-router/app"
	"github.com/upb/chat-fallback-router/config"
	"github.com/upb/chat-fallback-router/models"
	"github.com/upb/chat-fallback-router/services"
	"github.com/upb/chat-fallback-router/services/providers"
	"github.com/upb/chat-fallback-router/services/routing"
)

type AskCommand struct {
	Prompt string `arg:"" help:"The user message to send."`
	Model  string `help:"Model to try before the configured chain." short:"m"`
	JSON   bool   `help:"Print the response as JSON." name:"json"`
}

func (c AskCommand) Run(ctx context.Context) error {
	return c.run(ctx, os.Stdout)
}

func (c AskCommand) run(ctx context.Context, out io.Writer) error {
	cfg, err := config.New(ctx)
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg.Observability)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	messages := []providers.Message{{Role: models.RoleUser, Content: c.Prompt}}
	resp, err := deps.Router.Route(ctx, messages, c.Model)
	if err != nil {
		if services.IsExhaustedError(err) {
			return fmt.Errorf("%w; %s", err, routing.DescribeAttempts(routing.AttemptedModels(err)))
		}
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(models.ChatResponse{
			Content:      resp.Content,
			UsedFallback: resp.UsedFallback,
			UsedModel:    resp.UsedModel,
		})
	}

	if resp.UsedFallback {
		logger.Info("answered by fallback model", zap.String("model", resp.UsedModel))
	}
	_, err = fmt.Fprintln(out, resp.Content)
	return err
}
