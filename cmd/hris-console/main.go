// ABOUTME: Entry point for the hris-console shell server
// ABOUTME: Serves the guarded console pages and proxies /api to the HRIS backend

package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/2389/hris-console/internal/config"
	"github.com/2389/hris-console/internal/console"
	"github.com/2389/hris-console/internal/logging"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _          _                                  _
| |__  _ __(_)___        ___ ___  _ __  ___  ___ | | ___
| '_ \| '__| / __|_____ / __/ _ \| '_ \/ __|/ _ \| |/ _ \
| | | | |  | \__ \_____| (_| (_) | | | \__ \ (_) | |  __/
|_| |_|_|  |_|___/      \___\___/|_| |_|___/\___/|_|\___|
`

// getConfigPath returns the path to the console config file.
// Priority: HRIS_CONFIG env var > XDG_CONFIG_HOME/hris/console.yaml > ~/.config/hris/console.yaml
func getConfigPath() string {
	if envPath := os.Getenv("HRIS_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "console.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "hris", "console.yaml")
}

// getDataPath returns the hris data directory.
// Priority: XDG_DATA_HOME/hris > ~/.local/share/hris
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "hris")
}

func main() {
	// .env supplies ${VAR} values referenced by the config file
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Println("Usage: hris-console <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the console server")
		fmt.Println("  init     Create a new config file interactively")
		fmt.Println("  health   Check console health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cfg.Logging, nil)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Console.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Upstream:  %s\n", cfg.Console.Upstream)
	if cfg.RBAC.RedisURL != "" {
		green.Print("    ▶ ")
		fmt.Printf("Decisions: ")
		cyan.Println("redis")
	}
	fmt.Println()

	logger.Info("starting hris-console",
		"config", configPath,
		"http_addr", cfg.Console.HTTPAddr,
		"upstream", cfg.Console.Upstream,
	)

	srv, err := console.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating console: %w", err)
	}

	return srv.Run(ctx)
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health/ready", cfg.Console.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("hris-console configuration setup")
	fmt.Println("================================")
	fmt.Println()

	defaultConfigPath := getConfigPath()
	defaultDataPath := getDataPath()

	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if !isYes(overwrite) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Backend ---")
	baseURL := prompt(reader, "API base URL", "http://localhost:3000")
	timeout := prompt(reader, "Request timeout", config.DefaultAPITimeout.String())

	fmt.Println("\n--- Session ---")
	backend := prompt(reader, "Session backend (memory/file/sqlite)", config.BackendSQLite)
	sessionPath := ""
	switch backend {
	case config.BackendFile:
		sessionPath = prompt(reader, "Session directory", filepath.Join(defaultDataPath, "session"))
	case config.BackendSQLite:
		sessionPath = prompt(reader, "Session database", filepath.Join(defaultDataPath, "session.db"))
	}

	fmt.Println("\n--- Permissions ---")
	cacheTTL := prompt(reader, "Decision cache TTL", config.DefaultCacheTTL.String())
	redisURL := prompt(reader, "Redis URL for shared decisions (leave empty for memory)", "")

	fmt.Println("\n--- Console ---")
	httpAddr := prompt(reader, "HTTP address", config.DefaultHTTPAddr)

	fmt.Println("\n--- Logging ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	var cfg strings.Builder
	cfg.WriteString("# hris-console configuration\n")
	cfg.WriteString("# Generated by hris-console init\n\n")

	cfg.WriteString("api:\n")
	cfg.WriteString(fmt.Sprintf("  base_url: \"%s\"\n", baseURL))
	cfg.WriteString(fmt.Sprintf("  timeout: \"%s\"\n", timeout))
	cfg.WriteString("\n")

	cfg.WriteString("session:\n")
	cfg.WriteString(fmt.Sprintf("  backend: \"%s\"\n", backend))
	if sessionPath != "" {
		cfg.WriteString(fmt.Sprintf("  path: \"%s\"\n", sessionPath))
	}
	cfg.WriteString("\n")

	cfg.WriteString("rbac:\n")
	cfg.WriteString(fmt.Sprintf("  cache_ttl: \"%s\"\n", cacheTTL))
	if redisURL != "" {
		cfg.WriteString(fmt.Sprintf("  redis_url: \"%s\"\n", redisURL))
	}
	cfg.WriteString("\n")

	cfg.WriteString("gate:\n")
	cfg.WriteString(fmt.Sprintf("  guard_timeout: \"%s\"\n", config.DefaultGuardTimeout))
	cfg.WriteString("\n")

	cfg.WriteString("console:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: \"%s\"\n", httpAddr))
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	if sessionPath != "" {
		dir := sessionPath
		if backend == config.BackendSQLite {
			dir = filepath.Dir(sessionPath)
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("creating session directory: %w", err)
		}
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the console:")
	fmt.Printf("  hris-console serve\n")

	return nil
}

func isYes(s string) bool {
	s = strings.ToLower(s)
	return s == "yes" || s == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
