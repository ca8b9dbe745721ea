package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reviewlens/reviewlens/internal/config"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Create, view and validate the reviewlens configuration file.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultPath
		}
		path = config.ExpandHome(path)
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists; use --force to overwrite", path)
		}
		if err := config.Default().Save(path); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		printOK("wrote %s", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current config (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		printTitle("Configuration")
		fmt.Println("  Banks:")
		for _, b := range cfg.Banks {
			fmt.Printf("    %-8s %s (%s)\n", b.Code, b.Name, b.AppID)
		}
		fmt.Println()
		fmt.Println("  Scraper:")
		fmt.Printf("    Target reviews: %d\n", cfg.Scraper.TargetReviews)
		fmt.Printf("    Attempts:       %d (delay %s)\n", cfg.Scraper.MaxAttempts, cfg.Scraper.RetryDelay)
		fmt.Printf("    Locale:         %s-%s\n", cfg.Scraper.Lang, cfg.Scraper.Country)
		fmt.Println()
		fmt.Println("  Directories:")
		fmt.Printf("    Raw:            %s\n", cfg.Dirs.Raw)
		fmt.Printf("    Processed:      %s\n", cfg.Dirs.Processed)
		fmt.Printf("    Logs:           %s\n", cfg.Dirs.Logs)
		fmt.Printf("    Visualizations: %s\n", cfg.Dirs.Visualizations)
		fmt.Printf("    Database:       %s\n", cfg.Dirs.Database)
		fmt.Println()
		fmt.Println("  Database:")
		fmt.Printf("    Host:           %s:%d\n", cfg.Database.Host, cfg.Database.Port)
		fmt.Printf("    Name:           %s\n", cfg.Database.Name)
		fmt.Printf("    User:           %s\n", cfg.Database.User)
		fmt.Printf("    Password:       %s\n", maskSecret(cfg.Database.Password))
		fmt.Println()
		fmt.Println("  Sentiment:")
		fmt.Printf("    Backend:        %s\n", cfg.Sentiment.Backend)
		if cfg.Sentiment.Backend == "tei" {
			fmt.Printf("    Endpoint:       %s\n", cfg.Sentiment.BaseURL)
			fmt.Printf("    Model:          %s\n", cfg.Sentiment.Model)
			fmt.Printf("    API key:        %s\n", maskSecret(cfg.Sentiment.APIKey))
		}
		if cfg.Dump.S3Bucket != "" {
			fmt.Println()
			fmt.Printf("  Dump upload:      s3://%s/%s\n", cfg.Dump.S3Bucket, cfg.Dump.S3Prefix)
			if cfg.Dump.S3Prune {
				fmt.Printf("  Dump prune:       yes\n")
			}
		}
		if cfg.Mirror.URI != "" {
			fmt.Printf("  Mirror:           %s (%s)\n", maskSecret(cfg.Mirror.URI), cfg.Mirror.Database)
		}
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.Load(cfgFile); err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}
		printOK("configuration is valid")
		return nil
	},
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
