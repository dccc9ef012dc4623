// Package main is the entry point for the Chat Gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/compresr/chat-gateway/internal/config"
	"github.com/compresr/chat-gateway/internal/gateway"
	"github.com/compresr/chat-gateway/internal/monitoring"
)

// Version is set at build time via ldflags
var Version = "v0.1.0"

// loadEnvFiles loads .env from standard locations
func loadEnvFiles() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		_ = godotenv.Load()
		return
	}

	// Try loading from ~/.config/chat-gateway/.env first
	configEnv := filepath.Join(homeDir, ".config", "chat-gateway", ".env")
	if _, err := os.Stat(configEnv); err == nil {
		_ = godotenv.Load(configEnv)
	}

	// Also load local .env (can override)
	_ = godotenv.Load()
}

// runningInLambda reports whether the process was started by the Lambda runtime.
func runningInLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" || os.Getenv("AWS_LAMBDA_RUNTIME_API") != ""
}

func main() {
	if runningInLambda() {
		runLambda(nil)
		return
	}

	// Handle subcommands first (before flags)
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve", "start":
			runGatewayServer(os.Args[2:])
			return
		case "lambda":
			runLambda(os.Args[2:])
			return
		case "config":
			printExampleConfig()
			return
		case "version", "-v", "--version":
			fmt.Printf("chat-gateway %s\n", Version)
			return
		case "help", "-h", "--help":
			printHelp()
			return
		}
	}

	runGatewayServer(os.Args[1:])
}

// resolveConfigPath returns the config file to load, or "" for defaults plus env.
// Checks: user flag -> CONFIG_PATH -> filesystem locations.
func resolveConfigPath(userConfig string) (string, error) {
	if userConfig != "" {
		if _, err := os.Stat(userConfig); err != nil {
			return "", fmt.Errorf("config file not found: %s", userConfig)
		}
		return userConfig, nil
	}
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p, nil
	}

	var searchPaths []string
	if homeDir, _ := os.UserHomeDir(); homeDir != "" {
		searchPaths = append(searchPaths, filepath.Join(homeDir, ".config", "chat-gateway", "config.yaml"))
	}
	searchPaths = append(searchPaths, "configs/config.yaml")

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

// loadConfig resolves and loads configuration, exiting on error.
func loadConfig(userConfig string) *config.Config {
	path, err := resolveConfigPath(userConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve configuration")
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("config", path).Msg("failed to load configuration")
	}

	source := path
	if source == "" {
		source = "(defaults + environment)"
	}
	log.Info().
		Str("version", Version).
		Str("config", source).
		Str("model", cfg.Provider.ModelID).
		Str("transport", cfg.Backend.Transport).
		Msg("configuration loaded")
	return cfg
}

// runGatewayServer starts the HTTP server
func runGatewayServer(args []string) {
	loadEnvFiles()

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args) // ExitOnError handles errors

	cfg := loadConfig(*configPath)
	logger := setupLogging(cfg.Monitoring.LoggerConfig(), *debug)

	ctx := context.Background()
	inv, err := buildInvoker(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create backend invoker")
	}

	gw, err := gateway.New(cfg, inv, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway")
	}

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := gw.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("gateway shutdown error")
		}
	}()

	if err := gw.Start(); err != nil {
		log.Fatal().Err(err).Msg("gateway error")
	}

	log.Info().Msg("Chat Gateway stopped")
}

// runLambda serves API Gateway events. Configuration is built once per
// execution environment and reused across invocations.
func runLambda(args []string) {
	fs := flag.NewFlagSet("lambda", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := setupLogging(cfg.Monitoring.LoggerConfig(), false)

	inv, err := buildInvoker(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create backend invoker")
	}

	gw, err := gateway.New(cfg, inv, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway")
	}

	handler := gateway.NewLambdaHandler(gw.Orchestrator(), logger, gw.Metrics())
	lambda.Start(handler.Handle)
}

// setupLogging configures the global zerolog logger from config.
// debug overrides the configured level.
func setupLogging(lc monitoring.LoggerConfig, debug bool) *monitoring.Logger {
	if debug {
		lc.Level = "debug"
	}
	return monitoring.Global(lc)
}

// printHelp prints usage information
func printHelp() {
	fmt.Println("Chat Gateway - prompt in, completion out, over Amazon Bedrock")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  chat-gateway [command] [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve        Start the HTTP server (default)")
	fmt.Println("  lambda       Serve API Gateway events (automatic inside AWS Lambda)")
	fmt.Println("  config       Print an example config file")
	fmt.Println("  version      Print version information")
	fmt.Println("  help         Show this help message")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config FILE    Config file (default: configs/config.yaml if present)")
	fmt.Println("  --debug          Enable debug logging (serve only)")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  MODEL_ID, PROVIDER_FAMILY, MAX_TOKENS, AWS_REGION, BACKEND_ENDPOINT,")
	fmt.Println("  BACKEND_TIMEOUT, LOG_LEVEL, PORT, CONFIG_PATH")
}
