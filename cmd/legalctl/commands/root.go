package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/legal-service/internal/app"
	"github.com/spec-kit/legal-service/internal/config"
	"github.com/spec-kit/legal-service/internal/observability"
)

// NewRootCommand assembles the legalctl command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "legalctl",
		Short:         "Administrative commands for the legal service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCommand(), newSLACommand())
	return root
}

type session struct {
	cfg    *config.Config
	logger *zap.Logger
}

func loadSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &session{cfg: cfg, logger: logger}, nil
}

func (r *session) container(ctx context.Context) (*app.Container, error) {
	return app.New(ctx, r.cfg, r.logger, app.Options{})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
