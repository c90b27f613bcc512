package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vulnetix/bkctl/internal/auth"
	"github.com/vulnetix/bkctl/internal/config"
)

var (
	// Wired by the root PersistentPreRunE for every command
	current *app

	// Command line flags
	configPath string
	baseURL    string
	storeFlag  string
	logLevel   string
	logFormat  string
	outputFlag string
	version    = "1.0.0" // This will be set during build
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bkctl",
	Short: "bkctl - authenticated client for the backend API",
	Long: `bkctl logs in to the backend with an OAuth2 password grant, keeps the
session token, and issues authenticated calls against the backend API.

Failed calls are reported the same way everywhere: a 500 or 401 shows an
error notification, and an unreachable backend clears the session and
returns the shell to the root route.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlags(cfg)

		a, err := newApp(cfg, os.Stderr)
		if err != nil {
			return err
		}
		current = a
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInfo(contextOf(cmd))
	},
}

// applyFlags lets explicit flags win over the file and the environment
func applyFlags(cfg *config.Config) {
	if baseURL != "" {
		cfg.BackendURL = baseURL
	}
	if storeFlag != "" {
		cfg.Store = storeFlag
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if outputFlag != "" {
		cfg.Output = outputFlag
	}
}

// runInfo prints the effective configuration and the session state
func runInfo(ctx context.Context) error {
	fmt.Printf("bkctl v%s\n\n", version)
	current.cfg.PrintConfiguration(os.Stdout)
	fmt.Println()

	status, _ := auth.Status(ctx, current.store)
	fmt.Printf("Session: %s\n", status)
	if status == "Not authenticated" {
		fmt.Println("Run 'bkctl auth login' to get started.")
	}
	return nil
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.bkctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Backend base URL (default "+config.DefaultBackendURL+")")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "Session storage: home, project, memory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text, json")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "", "Output format: pretty, json, raw")

	// Add version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of bkctl",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bkctl v%s\n", version)
		},
	}

	rootCmd.AddCommand(versionCmd)
}
