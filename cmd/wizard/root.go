package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/migratemate/cancellation-flow/internal/config"
	"github.com/migratemate/cancellation-flow/internal/content"
	"github.com/migratemate/cancellation-flow/internal/domain"
	"github.com/migratemate/cancellation-flow/internal/flow"
	"github.com/migratemate/cancellation-flow/internal/gateway"
	"github.com/migratemate/cancellation-flow/internal/observability"
	"github.com/migratemate/cancellation-flow/internal/wizard"
)

var rootCmd = &cobra.Command{
	Use:           "wizard",
	Short:         "Walk through cancelling the current subscription",
	Long:          `Opens the subscription page and the cancellation wizard in the terminal, saving answers through the cancellation API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runWizard,
}

func init() {
	rootCmd.PersistentFlags().String("api-url", "", "Cancellation API base URL (default GATEWAY_BASE_URL)")
	rootCmd.PersistentFlags().String("log-file", "", "Write JSON logs to this file")

	rootCmd.Flags().String("force-variant", "", "Pin the downsell variant (A or B); ignored by production builds")
	rootCmd.Flags().Bool("strict", false, "Stop on persistence failures instead of continuing")
	rootCmd.Flags().Bool("open", false, "Open the cancellation wizard immediately")
}

type clientSetup struct {
	cfg    *config.Config
	logger *zap.Logger
	client *gateway.Client
}

func setup(cmd *cobra.Command) (*clientSetup, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if apiURL, _ := cmd.Flags().GetString("api-url"); apiURL != "" {
		cfg.Gateway.BaseURL = strings.TrimRight(apiURL, "/")
	}
	logFile, _ := cmd.Flags().GetString("log-file")
	logger, err := observability.NewFileLogger(cfg.Logger, "cancellation-wizard", logFile)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &clientSetup{cfg: cfg, logger: logger, client: gateway.NewFromConfig(cfg.Gateway, logger)}, nil
}

func runWizard(cmd *cobra.Command, _ []string) error {
	s, err := setup(cmd)
	if err != nil {
		return err
	}
	defer s.logger.Sync() //nolint:errcheck
	ctx := cmd.Context()

	session, err := flow.LoadSession(ctx, s.client)
	if err != nil {
		// the wizard still runs, it just has nothing to save against
		s.logger.Warn("account lookup failed; answers will not be saved", zap.Error(err))
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: could not load your account (%v); answers will not be saved\n", err)
	}

	forced, err := forcedVariant(cmd, s.cfg.Flow.ForceVariant)
	if err != nil {
		return err
	}
	opts := []flow.Option{flow.WithLogger(s.logger)}
	if forced != "" {
		opts = append(opts, flow.WithForcedVariant(forced))
	}
	strict, _ := cmd.Flags().GetBool("strict")
	if strict || s.cfg.Flow.StrictPersistence {
		opts = append(opts, flow.WithStrictPersistence())
	}

	deck, err := content.Default()
	if err != nil {
		return err
	}
	openOnStart, _ := cmd.Flags().GetBool("open")
	model := wizard.New(ctx, wizard.Config{
		Machine:     flow.NewMachine(session, s.client, opts...),
		Content:     deck,
		Logger:      s.logger,
		Email:       session.Email,
		OpenOnStart: openOnStart,
	})

	s.logger.Info("wizard started",
		zap.String("user_id", session.UserID),
		zap.String("forced_variant", string(forced)))
	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// forcedVariant picks the pinned variant: the flag, then FLOW_FORCE_VARIANT,
// then the remembered preference. Production builds never pin.
func forcedVariant(cmd *cobra.Command, fromEnv string) (domain.DownsellVariant, error) {
	if !flow.VariantOverrideEnabled {
		return "", nil
	}
	if raw, _ := cmd.Flags().GetString("force-variant"); raw != "" {
		v := domain.DownsellVariant(strings.ToUpper(strings.TrimSpace(raw)))
		if !v.Valid() {
			return "", fmt.Errorf("invalid --force-variant %q: want A or B", raw)
		}
		return v, nil
	}
	if fromEnv != "" {
		return domain.DownsellVariant(fromEnv), nil
	}
	path, err := flow.PreferencePath()
	if err != nil {
		return "", nil
	}
	return flow.LoadPreferredVariant(path), nil
}
