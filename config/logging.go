package config

// LoggingConfig defines the log verbosity.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error or disabled.
	Level string `json:"level" default:"info" validate:"oneof=trace debug info warn error disabled"`
}
