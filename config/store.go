package config

import "fmt"

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `json:"backend"`
	// Path is the SQLite database file, ignored for the memory backend.
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *StoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.Backend == "sqlite" && c.Path == "" {
		c.Path = "fieldops.db"
	}
}

// Validate checks mandatory fields.
func (c StoreConfig) Validate() error {
	if c.Backend != "memory" && c.Backend != "sqlite" {
		return fmt.Errorf("unknown store backend %s", c.Backend)
	}
	if c.Backend == "sqlite" && c.Path == "" {
		return fmt.Errorf("sqlite backend requires a path")
	}
	return nil
}
