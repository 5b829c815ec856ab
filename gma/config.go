package gma

import "log/slog"

// Config configures a Decoder. The header format itself has no tunables.
type Config struct {
	// Logger for debug messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
