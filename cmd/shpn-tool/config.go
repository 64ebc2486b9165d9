package main

import "github.com/xyproto/env/v2"

// config holds the CLI's environment overrides.
type config struct {
	quiet bool
}

func loadConfig() config {
	return config{quiet: env.Bool("SHPN_TOOL_QUIET")}
}
