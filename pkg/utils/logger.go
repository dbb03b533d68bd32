package utils

import "go.uber.org/zap"

// NewLogger returns a zap logger tagged with the service name. Logs always go to stderr;
// stdout carries command output and the MCP stdio stream. debug selects the development
// encoder at Debug level, otherwise JSON at Info level.
func NewLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build(zap.Fields(zap.String("service", "medibot")))
}
