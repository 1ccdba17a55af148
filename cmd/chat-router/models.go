package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/upb/chat-fallback-router/config"
	"github.com/upb/chat-fallback-router/models"
	"github.com/upb/chat-fallback-router/services/routing"
)

type ModelsCommand struct {
	Model string `help:"Preferred model to place first." short:"m"`
}

func (c ModelsCommand) Run(ctx context.Context) error {
	return c.run(ctx, os.Stdout)
}

func (c ModelsCommand) run(ctx context.Context, out io.Writer) error {
	cfg, err := config.New(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(models.ModelsResponse{
		Default:    cfg.Routing.DefaultModel,
		Fallbacks:  cfg.Routing.FallbackModels,
		Candidates: routing.Candidates(c.Model, cfg.Routing.DefaultModel, cfg.Routing.FallbackModels...),
	})
}
