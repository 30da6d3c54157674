package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	port       string
	configPath string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:           "exam-service",
		Short:         "Timed multiple-choice exam service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.AddCommand(NewStartCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	cmd.AddCommand(NewUserCmd(&configPath))
	cmd.AddCommand(NewCourseCmd(&configPath))
	cmd.AddCommand(NewQuestionCmd(&configPath))
	cmd.AddCommand(NewImportCmd(&configPath))
	cmd.AddCommand(NewResultsCmd(&configPath))
	cmd.AddCommand(NewAnalyticsCmd(&configPath))
	return cmd
}
