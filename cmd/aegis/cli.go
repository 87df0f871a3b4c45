package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/aegiscare/aegis/pkg/api"
	"github.com/aegiscare/aegis/pkg/companion"
	"github.com/aegiscare/aegis/pkg/config"
	"github.com/aegiscare/aegis/pkg/logging"
	"github.com/aegiscare/aegis/pkg/memory"
	"github.com/aegiscare/aegis/pkg/providers"
	"github.com/aegiscare/aegis/pkg/store"
)

const appName = "aegis"

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

func formatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

func printVersion() {
	fmt.Printf("%s %s\n", appName, formatVersion())
	if buildTime != "" {
		fmt.Printf("  Build: %s\n", buildTime)
	}
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	fmt.Printf("  Go: %s\n", goVer)
}

func executeCLI() error {
	return buildRootCommand().Execute()
}

func buildRootCommand() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   appName,
		Short: "Memory companion backend with a chat gateway and durable personal context",
		Long: strings.TrimSpace(`aegis is a conversational memory companion service.

Use CLI commands to onboard, run the HTTP gateway, chat locally from the
terminal, and check runtime readiness.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")

	root.AddCommand(newOnboardCommand())
	root.AddCommand(newServeCommand())
	root.AddCommand(newChatCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func newOnboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "onboard",
		Short:   "Initialize ~/.aegis config and data directory",
		Example: "  aegis onboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return onboard()
		},
	}
}

func newServeCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP gateway",
		Long:    "Start the chat gateway, memory engine, and data endpoints.",
		Example: "  aegis serve --debug",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(debug)
		},
	}
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func newChatCommand() *cobra.Command {
	var (
		message string
		session string
		debug   bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the companion from the terminal",
		Long:  "Run an interactive local session or send a one-shot message without the HTTP gateway.",
		Example: strings.Join([]string{
			"  aegis chat",
			"  aegis chat --session evening",
			"  aegis chat --message \"Good morning!\"",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return chat(session, message, debug)
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "One-shot message to send")
	cmd.Flags().StringVarP(&session, "session", "s", memory.DefaultSessionID, "Session id for continuity")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show configuration and runtime readiness",
		Example: "  aegis status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return status()
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build/version metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			printVersion()
			return nil
		},
	}
}

func getConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".aegis", "config.json")
}

func loadConfig() (*config.Config, error) {
	return config.LoadConfig(getConfigPath())
}

func validateRuntimeConfig(cfg *config.Config) error {
	if strings.TrimSpace(cfg.GetAPIKey()) == "" {
		return fmt.Errorf("provider.api_key is required in %s or AEGIS_PROVIDER_API_KEY", getConfigPath())
	}
	return nil
}

func onboard() error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config already exists at %s\n", configPath)
		fmt.Print("Overwrite? (y/n): ")
		reader := bufio.NewReader(os.Stdin)
		response, readErr := reader.ReadString('\n')
		if readErr != nil {
			fmt.Println("Aborted.")
			return nil
		}
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "y" && response != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	if err := config.SaveConfig(configPath, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir(), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	fmt.Printf("%s is ready!\n", appName)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Add your Gemini API key to", configPath)
	fmt.Println("     Get one at: https://aistudio.google.com/apikey")
	fmt.Println("  2. Chat locally: aegis chat -m \"Hello!\"")
	fmt.Println("  3. Run the gateway: aegis serve")
	fmt.Println("  4. Check readiness: aegis status")
	return nil
}

// buildEngine wires the store, provider, and engine from config.
func buildEngine(cfg *config.Config, debug bool) (*companion.Engine, *store.SQLiteStore, *store.Uploads, error) {
	logger := logging.New(debug)

	st, err := store.NewSQLiteStore(filepath.Join(cfg.DataDir(), "aegis.db"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}
	uploads, err := store.NewUploads(filepath.Join(cfg.DataDir(), "uploads"))
	if err != nil {
		st.Close()
		return nil, nil, nil, fmt.Errorf("open uploads: %w", err)
	}
	provider, err := providers.CreateProvider(cfg)
	if err != nil {
		st.Close()
		return nil, nil, nil, err
	}

	engine := companion.NewEngine(provider, st, cfg, logging.ForComponent(logger, "companion"))
	return engine, st, uploads, nil
}

func serve(debug bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := validateRuntimeConfig(cfg); err != nil {
		return err
	}

	engine, st, uploads, err := buildEngine(cfg, debug)
	if err != nil {
		return err
	}
	defer st.Close()

	logger := logging.New(debug)
	server := api.NewServer(cfg, engine, st, uploads, logging.ForComponent(logger, "gateway"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	}

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	fmt.Println("Gateway stopped")
	return nil
}

func chat(sessionID, message string, debug bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := validateRuntimeConfig(cfg); err != nil {
		return err
	}

	engine, st, _, err := buildEngine(cfg, debug)
	if err != nil {
		return err
	}
	defer st.Close()

	if message != "" {
		res, err := engine.Chat(context.Background(), sessionID, message)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s %s\n", appName, res.Message)
		return nil
	}

	fmt.Printf("%s Interactive mode (Ctrl+C to exit)\n\n", appName)
	interactiveMode(engine, sessionID)
	return nil
}

func interactiveMode(engine *companion.Engine, sessionID string) {
	prompt := fmt.Sprintf("%s You: ", appName)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     filepath.Join(os.TempDir(), ".aegis_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		fmt.Println("Falling back to simple input mode...")
		simpleInteractiveMode(engine, sessionID)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}
		if !handleChatLine(engine, sessionID, line) {
			return
		}
	}
}

func simpleInteractiveMode(engine *companion.Engine, sessionID string) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Printf("%s You: ", appName)
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}
		if !handleChatLine(engine, sessionID, line) {
			return
		}
	}
}

func handleChatLine(engine *companion.Engine, sessionID, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}
	if input == "exit" || input == "quit" {
		fmt.Println("Goodbye!")
		return false
	}

	res, err := engine.Chat(context.Background(), sessionID, input)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return true
	}

	fmt.Printf("\n%s %s\n", appName, res.Message)
	if res.MemoryToConfirm != nil {
		fmt.Printf("  (memory suggestion: %s)\n", res.MemoryToConfirm.Title)
	}
	fmt.Println()
	return true
}

func status() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	configPath := getConfigPath()

	fmt.Printf("%s Status\n", appName)
	fmt.Printf("Version: %s\n", formatVersion())
	fmt.Println()

	if _, err := os.Stat(configPath); err == nil {
		fmt.Println("Config:", configPath, "✓")
	} else {
		fmt.Println("Config:", configPath, "✗")
	}

	dataDir := cfg.DataDir()
	if _, err := os.Stat(dataDir); err == nil {
		fmt.Println("Data dir:", dataDir, "✓")
	} else {
		fmt.Println("Data dir:", dataDir, "✗")
	}
	dbPath := filepath.Join(dataDir, "aegis.db")
	if _, err := os.Stat(dbPath); err == nil {
		fmt.Println("Store:", dbPath, "✓")
	} else {
		fmt.Println("Store:", dbPath, "not initialized")
	}

	fmt.Printf("Model: %s\n", cfg.Provider.Model)

	ready := "not set"
	if strings.TrimSpace(cfg.GetAPIKey()) != "" {
		ready = "✓"
	}
	fmt.Println("Gemini API key:", ready)
	fmt.Printf("Gateway: http://%s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	return nil
}
