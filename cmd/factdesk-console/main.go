// ABOUTME: Entry point for factdesk-console, the browser console for the fact-checking API
// ABOUTME: Subcommands: serve, init, health, version

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/factdesk/internal/config"
	"github.com/2389/factdesk/internal/server"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const banner = `
  __            _      _           _
 / _| __ _  ___| |_ __| | ___  ___| | __
| |_ / _' |/ __| __/ _' |/ _ \/ __| |/ /
|  _| (_| | (__| || (_| |  __/\__ \   <
|_|  \__,_|\___|\__\__,_|\___||___/_|\_\
`

// getDataPath returns the factdesk data directory.
// Priority: XDG_DATA_HOME/factdesk > ~/.local/share/factdesk
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "factdesk")
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "factdesk-console",
		Short:         "Browser console for the fake-news detection database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $FACTDESK_CONFIG or $XDG_CONFIG_HOME/factdesk/console.yaml)")

	resolve := func() string {
		if configPath != "" {
			return configPath
		}
		return config.DefaultPath()
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the console server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer cancel()
				return runServe(ctx, resolve())
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Create a config file interactively",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runInit(cmd.InOrStdin(), cmd.OutOrStdout(), resolve())
			},
		},
		&cobra.Command{
			Use:   "health",
			Short: "Check a running console's readiness",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runHealth(cmd.Context(), cmd.OutOrStdout(), resolve())
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "factdesk-console %s\n", version)
			},
		},
	)
	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Console:  %s/console/\n", cfg.ConsoleBaseURL())
	green.Print("    ▶ ")
	fmt.Printf("API:      %s\n", cfg.API.BaseURL)
	green.Print("    ▶ ")
	fmt.Printf("Sessions: %s\n", cfg.Database.Path)
	if cfg.Metrics.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Metrics:  %s\n", cfg.Metrics.Path)
	}
	fmt.Println()

	logger.Info("starting factdesk-console",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"api", cfg.API.BaseURL,
	)

	srv, err := server.New(cfg, version, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	return srv.Run(ctx)
}

func runHealth(ctx context.Context, out io.Writer, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	url := fmt.Sprintf("http://%s/health/ready", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	fmt.Fprintln(out, "healthy")
	return nil
}

func runInit(in io.Reader, out io.Writer, defaultConfigPath string) error {
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "factdesk-console configuration setup")
	fmt.Fprintln(out, "====================================")
	fmt.Fprintln(out)

	outputFile := prompt(reader, out, "Config file path", defaultConfigPath)
	if _, err := os.Stat(outputFile); err == nil {
		overwrite := strings.ToLower(prompt(reader, out, "File exists. Overwrite?", "no"))
		if overwrite != "yes" && overwrite != "y" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	fmt.Fprintln(out, "\n--- Server Configuration ---")
	httpAddr := prompt(reader, out, "HTTP address", config.DefaultHTTPAddr)
	apiURL := prompt(reader, out, "Fact-checking API URL", config.DefaultAPIBaseURL)

	fmt.Fprintln(out, "\n--- Database Configuration ---")
	dbPath := prompt(reader, out, "SQLite session database path", filepath.Join(getDataPath(), "console.db"))

	starter := config.Starter(httpAddr, apiURL, dbPath)
	if _, err := config.Parse([]byte(starter)); err != nil {
		return fmt.Errorf("generated config is invalid: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(starter), 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Fprintf(out, "\nConfig written to %s\n", outputFile)
	fmt.Fprintln(out, "Start the console with: factdesk-console serve")
	return nil
}

// prompt asks for a value, returning def on an empty answer.
func prompt(reader *bufio.Reader, out io.Writer, question, def string) string {
	if def != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, def)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return def
	}
	return answer
}
