package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/huangsam/envgap/internal/contract"
	"github.com/huangsam/envgap/internal/iocache"
	"github.com/huangsam/envgap/schema"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// storeManager is the global persistence manager instance.
var storeManager contract.StoreManager

// profilePrefix is non-empty when CPU and memory profiles were requested.
var profilePrefix string

// startProfiling starts CPU profiling when --profile is set.
func startProfiling(prefix string) error {
	if prefix == "" {
		return nil
	}
	cpuFile, err := os.Create(prefix + ".cpu.prof")
	if err != nil {
		return eris.Wrap(err, "could not create CPU profile")
	}
	if err := pprof.StartCPUProfile(cpuFile); err != nil {
		return eris.Wrap(err, "could not start CPU profiling")
	}
	profilePrefix = prefix
	_, err = fmt.Fprintf(os.Stderr, "Profiling enabled. CPU profile: %s.cpu.prof, Memory profile: %s.mem.prof\n", prefix, prefix)
	return err
}

// stopProfiling stops profiling and writes the memory profile.
func stopProfiling() error {
	if profilePrefix == "" {
		return nil
	}
	pprof.StopCPUProfile()

	memFile, err := os.Create(profilePrefix + ".mem.prof")
	if err != nil {
		return eris.Wrap(err, "could not create memory profile")
	}
	defer func() { _ = memFile.Close() }()

	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return eris.Wrap(err, "could not write memory profile")
	}
	_, err = fmt.Fprintf(os.Stderr, "Profiling complete. Use 'go tool pprof %s.cpu.prof' to analyze.\n", profilePrefix)
	return err
}

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "envgap",
	Short:              "Rank places by health burden unexplained by environmental exposure.",
	Long:               `envgap combines health outcome measures into a weighted composite, regresses it on an exposure, and classifies where the burden runs ahead of what the exposure predicts.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in .env, the config file and ENV variables if set.
func initConfig() {
	// A .env file keeps database DSNs out of YAML and shell history.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		contract.LogWarn("Cannot load .env file", err)
	}

	configureConfigFile()

	// Set environment variable prefix
	viper.SetEnvPrefix("ENVGAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("limit", contract.DefaultResultLimit)
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("id-column", contract.DefaultIDColumn)
	viper.SetDefault("name-column", contract.DefaultNameColumn)
	viper.SetDefault("metric", schema.CompositeMetric)
	viper.SetDefault("classes", schema.DefaultClassCount)
	viper.SetDefault("history-backend", schema.SQLiteBackend)
	viper.SetDefault("history-db-connect", "")
	viper.SetDefault("color", "yes")
	viper.SetDefault("log-level", contract.DefaultLogLevel)
	viper.SetDefault("log-format", contract.DefaultLogFormat)
	viper.SetDefault("listen", contract.DefaultListenAddr)
}

// configureConfigFile points viper at --config or the default search paths.
func configureConfigFile() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		return
	}
	viper.SetConfigName(".envgap") // Name of config file (without extension)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME")
}

// readConfigFile merges the config file, if any, into viper.
func readConfigFile() error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file was found but another error was produced
			return eris.Wrap(err, "error reading config file")
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// sharedSetup unmarshals config, runs validation and opens the history store.
func sharedSetup(_ context.Context, _ *cobra.Command, args []string) error {
	if err := startProfiling(viper.GetString("profile")); err != nil {
		return err
	}

	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := readConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return eris.Wrap(err, "unable to unmarshal config")
	}

	// 3. Handle positional arguments (which Viper doesn't do).
	input.InputPathStr = ""
	if len(args) == 1 {
		input.InputPathStr = args[0]
	}

	// 4. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}
	if err := contract.InitLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}

	// 5. Initialize persistence layer with validated config
	if err := iocache.InitStores(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return eris.Wrap(err, "failed to initialize run history")
	}
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// migrateSetup loads only the history backend settings. It does NOT open the
// store, so migrations can run against a fresh database.
func migrateSetup(_ *cobra.Command, _ []string) error {
	if err := readConfigFile(); err != nil {
		return err
	}
	backend := schema.DatabaseBackend(strings.ToLower(viper.GetString("history-backend")))
	if backend == "" {
		backend = schema.SQLiteBackend
	}
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return eris.Errorf("invalid history backend '%s'", backend)
	}
	connStr := viper.GetString("history-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}
	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	return contract.InitLogger(viper.GetString("log-level"), viper.GetString("log-format"))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetStoreManager sets the global store manager.
func SetStoreManager(mgr contract.StoreManager) {
	storeManager = mgr
}

// StopProfiling stops profiling if enabled.
func StopProfiling() error {
	return stopProfiling()
}
