// Package config provides configuration management for tubesync.
//
// This package handles:
//   - Loading and saving settings from JSON or YAML files
//   - Default configuration values and environment overrides
//   - Conversion to http.Options and monitor.Options for other packages
//
// # Default Settings
//
//	settings := config.DefaultSettings()
//	// Talks to http://127.0.0.1:5000
//	// Polls progress every 500ms
//	// Fetched files go to ~/Music/TubeSync
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/config.yaml")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//	settings.ApplyEnv() // TUBESYNC_SERVER, TUBESYNC_DOWNLOAD_PATH
//
// The format follows the extension: .yaml and .yml are YAML, anything else
// is JSON.
package config
