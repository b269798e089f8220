// Package config provides configuration management for the agent
// orchestrator.
//
// Configuration is loaded from environment variables using the env
// package. All configuration values have sensible defaults for
// development use, except the model backend API keys: at least one
// backend must be configured.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("HTTP server will listen on %s\n", cfg.GetHTTPAddr())
package config
