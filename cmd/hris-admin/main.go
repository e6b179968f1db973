// ABOUTME: Admin CLI for the HRIS console authorization core
// ABOUTME: Signs in against the backend, inspects permissions and manages roles from the terminal

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/2389/hris-console/internal/config"
)

const banner = `
 _          _                     _           _
| |__  _ __(_)___        __ _  __| |_ __ ___ (_)_ __
| '_ \| '__| / __|_____ / _' |/ _' | '_ ' _ \| | '_ \
| | | | |  | \__ \_____| (_| | (_| | | | | | | | | | |
|_| |_|_|  |_|___/      \__,_|\__,_|_| |_| |_|_|_| |_|
`

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := os.Args[1]
	args := os.Args[2:]

	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		return
	}

	a, err := newApp(ctx)
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	switch cmd {
	case "login":
		err = cmdLogin(ctx, a, args)
	case "logout":
		err = cmdLogout(ctx, a)
	case "me":
		err = cmdMe(ctx, a)
	case "status":
		err = cmdStatus(ctx, a)
	case "can":
		err = cmdCan(ctx, a, args)
	case "menu":
		err = cmdMenu(ctx, a, args)
	case "guard":
		err = cmdGuard(ctx, a, args)
	case "get":
		err = cmdGet(ctx, a, args)
	case "roles":
		err = cmdRoles(ctx, a, args)
	case "permissions":
		err = cmdPermissions(ctx, a)
	case "users":
		err = cmdUsers(ctx, a)
	case "assign-role":
		err = cmdAssignRole(ctx, a, args)
	case "history":
		err = cmdHistory(ctx, a, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		a.Close()
		os.Exit(1)
	}
	a.drain()

	if err != nil {
		color.Red("Error: %v\n", err)
		a.Close()
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: hris-admin <command> [args]")
	fmt.Println()
	yellow.Println("Session:")
	fmt.Println("  login <email> [--next path]     Sign in (password from HRIS_PASSWORD or stdin)")
	fmt.Println("  logout                          Sign out and clear the stored session")
	fmt.Println("  me                              Validate the stored session and show the user")
	fmt.Println("  status                          Show session, token expiry and auth flags")
	fmt.Println("  history [--limit n]             Show recorded session events (sqlite backend)")
	fmt.Println()
	yellow.Println("Permissions:")
	fmt.Println("  can <resource> <action>         Check one permission")
	fmt.Println("  menu [general|settings]         Show the sidebar entries you can see")
	fmt.Println("  guard <path>                    Run the page guard for a console path")
	fmt.Println("  get <path>                      GET an API path through the query cache")
	fmt.Println()
	yellow.Println("Role management:")
	fmt.Println("  roles                           List roles")
	fmt.Println("  roles show <id>                 Show one role")
	fmt.Println("  roles create --name N [--description D] [--permissions a:b,c:d]")
	fmt.Println("  roles update <id> --name N [--description D] [--permissions a:b,c:d]")
	fmt.Println("  roles delete <id>               Delete a role")
	fmt.Println("  permissions                     List the permission catalog")
	fmt.Println("  users                           List users with their roles")
	fmt.Println("  assign-role <user-id> <role>    Assign a role to a user")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  HRIS_CONFIG      Config file (default: ~/.config/hris/console.yaml)")
	fmt.Println("  HRIS_API_URL     Backend base URL when no config file exists")
	fmt.Println("  HRIS_PASSWORD    Password for login")
	fmt.Println()
	yellow.Println("Examples:")
	fmt.Println("  export HRIS_API_URL=http://localhost:3000")
	fmt.Println("  hris-admin login hr@example.com")
	fmt.Println("  hris-admin can payroll read")
	fmt.Println("  hris-admin guard /employees")
	fmt.Println()
}

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

// loadConfig reads the config file. Without one, HRIS_API_URL selects the
// backend and the session is kept in a file under the data directory.
func loadConfig() (*config.Config, error) {
	path := getConfigPath()
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}

	baseURL := os.Getenv("HRIS_API_URL")
	if baseURL == "" || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	cfg = &config.Config{
		API:     config.APIConfig{BaseURL: baseURL},
		Session: config.SessionConfig{Backend: config.BackendFile, Path: filepath.Join(getDataPath(), "session")},
		Logging: config.LoggingConfig{Level: "warn"},
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
