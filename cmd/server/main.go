package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yukikurage/task-approval-api/internal/config"
	"github.com/yukikurage/task-approval-api/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "task-approval",
	Short:         "CEO task approval and delegation API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the process logger
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log, err := logger.New(!cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, log, nil
}
