package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mvp-joe/gams-ide/internal/config"
)

var (
	projectDir string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gams-ide",
	Short: "GAMS listing and symbol reference engine",
	Long: `gams-ide parses GAMS listing files, extracts compiler diagnostics and
indexes symbol references for editor integrations.

Run "gams-ide serve" to bridge an editor over stdio, or use the other
commands to inspect listings and reference files from the shell.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", "", "project directory holding .gams-ide/config.yml (default is the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	viper.BindPFlag("dir", rootCmd.PersistentFlags().Lookup("dir"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads flag overrides from GAMSIDE_* environment variables.
func initConfig() {
	viper.SetEnvPrefix("GAMSIDE")
	viper.AutomaticEnv()

	if viper.GetBool("verbose") {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	}
}

// resolveProjectDir returns the project directory from --dir, GAMSIDE_DIR or
// the working directory.
func resolveProjectDir() (string, error) {
	if dir := viper.GetString("dir"); dir != "" {
		return dir, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return dir, nil
}

// loadConfig loads the configuration of the project directory.
func loadConfig() (string, *config.Config, error) {
	rootDir, err := resolveProjectDir()
	if err != nil {
		return "", nil, err
	}
	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return rootDir, cfg, nil
}
