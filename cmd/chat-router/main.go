package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/upb/chat-fallback-router/config"
	"github.com/upb/chat-fallback-router/internal/observability"
)

type CLI struct {
	Serve  ServeCommand  `cmd:"serve" default:"1" help:"Start the chat API server."`
	Ask    AskCommand    `cmd:"ask" help:"Send a single prompt through the model fallback chain."`
	Models ModelsCommand `cmd:"models" help:"Print the configured model candidates in attempt order."`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("chat-router"),
		kong.Description("Chat API that forwards conversations to OpenRouter with model fallback."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	if err := kctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// initLogger builds the process logger from the loaded configuration
func initLogger(cfg config.ObservabilityConfig) (*zap.Logger, error) {
	return observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
}
