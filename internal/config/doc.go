// Package config provides configuration loading for gams-ide.
//
// Configuration Hierarchy (highest to lowest priority):
//  1. Environment variables (GAMSIDE_*)
//  2. Project config (.gams-ide/config.yml)
//  3. User config (~/.gams-ide/config.yml)
//  4. Built-in defaults
//
// Environment Variable Convention:
//   - Prefix: GAMSIDE_
//   - Nested fields: Use underscores (GAMSIDE_COMPILER_EXECUTABLE)
//   - Automatic mapping via Viper's SetEnvKeyReplacer
//
// The user config is the place for machine-wide settings such as the gams
// executable; the project config for model-specific ones.
//
// Example usage:
//
//	cfg, err := config.LoadConfigFromDir(root)
//	if err != nil {
//	    return err
//	}
//	settings := config.NewSettings(cfg)
//	if settings.ParseSymbolValues() {
//	    ...
//	}
package config
