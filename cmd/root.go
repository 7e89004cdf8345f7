package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/abhisek/gradeprobe/internal/config"
	"github.com/abhisek/gradeprobe/internal/logging"
	"github.com/abhisek/gradeprobe/internal/store"
)

var (
	appConfig config.Config
	logger    = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:           "gradeprobe",
	Short:         "Adaptive diagnostic assessment",
	Long:          "gradeprobe runs short adaptive diagnostic assessments and estimates a student's grade-level skill.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.LogLevel = lvl
		}
		if cmd.Flags().Changed("log-pretty") {
			cfg.LogPretty, _ = cmd.Flags().GetBool("log-pretty")
		}
		appConfig = cfg
		logger = logging.New(cfg.LogLevel, cfg.LogPretty)
		return nil
	},
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides GRADEPROBE_DB_PATH)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides GRADEPROBE_LOG_LEVEL)")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "Human-readable log output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then GRADEPROBE_DB_PATH, then GRADEPROBE_DB or the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if appConfig.DBPath != "" {
		return appConfig.DBPath, store.EnsureDir(appConfig.DBPath)
	}
	return store.DefaultDBPath()
}

// openStore opens the database selected by resolveDBPath.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}
