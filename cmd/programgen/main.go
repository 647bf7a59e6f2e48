// Command programgen is the operator CLI: it runs generations synchronously, manages coach
// profiles and mints API tokens.
package main

import (
	"fmt"
	"os"

	"fitcoach/programgen/internal/config"
	"fitcoach/programgen/internal/logging"
	"fitcoach/programgen/internal/repository/mongo"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	configDir string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:           "programgen",
	Short:         "Operate the program generation service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory containing config.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "development logging")

	rootCmd.AddCommand(generateCmd, profileCmd, tokenCmd, syncCmd)
}

func main() {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// env is what every command needs: config, a logger and usually the database.
type env struct {
	cfg    config.Config
	logger *zap.Logger
	client *mongodriver.Client
	db     *mongodriver.Database
}

func setup(withDB bool) (*env, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.Log.Development = true
		cfg.Log.Level = "debug"
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, logger: logger}
	if !withDB {
		return e, nil
	}
	client, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		return nil, err
	}
	e.client = client
	e.db = client.Database(cfg.Database.Name)
	return e, nil
}

func (e *env) close() {
	if e.client != nil {
		if err := mongo.DisconnectDB(e.client); err != nil {
			e.logger.Warn("failed to disconnect MongoDB", zap.Error(err))
		}
	}
	_ = e.logger.Sync()
}
