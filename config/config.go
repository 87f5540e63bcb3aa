package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jbleroy/fieldops/core/dispatch"
	"github.com/jbleroy/fieldops/infra/mqtt"
)

type Config struct {
	MQTT      mqtt.Config          `json:"mqtt"`
	Directory mqtt.DirectoryConfig `json:"directory"`
	Dispatch  dispatch.Config      `json:"dispatch"`
	Store     StoreConfig          `json:"store"`
	Metrics   MetricsConfig        `json:"metrics"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("FIELDOPS_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "fieldops_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Dispatch.SetDefaults()
	cfg.Directory.SetDefaults()
	cfg.Store.SetDefaults()
	cfg.Metrics.SetDefaults()
	if err := cfg.Store.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
