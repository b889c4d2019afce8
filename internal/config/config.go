// Package config loads the service directory consumed by the supervisor.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/whaleinit/whaleinit/internal/model"
	"github.com/whaleinit/whaleinit/internal/tmpl"
)

// Load reads every *.toml file in dir in lexical order, expands each file
// body against the process environment and decodes it. Contents aggregate
// across files; the combined configuration is validated before return.
func Load(ctx context.Context, logger *slog.Logger, dir string) (model.Config, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return model.Config{}, fmt.Errorf("reading service directory: %w", err)
	}

	// prehook outputs exist only later, config sources expand against env alone
	envCtx := tmpl.NewContext(nil)

	var cfg model.Config
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		raw, err := os.ReadFile(path)
		if err != nil {
			return model.Config{}, fmt.Errorf("reading service file %s: %w", path, err)
		}
		body, err := envCtx.Render(entry.Name(), string(raw))
		if err != nil {
			return model.Config{}, fmt.Errorf("expanding service file %s: %w", path, err)
		}

		var c model.Config
		if err := toml.Unmarshal([]byte(body), &c); err != nil {
			return model.Config{}, fmt.Errorf("parsing service file %s: %w", path, err)
		}
		logger.DebugContext(ctx, "loaded service file", "path", path,
			"services", len(c.Services), "templates", len(c.Templates), "prehooks", len(c.Prehooks))

		cfg.Services = append(cfg.Services, c.Services...)
		cfg.Templates = append(cfg.Templates, c.Templates...)
		cfg.Prehooks = append(cfg.Prehooks, c.Prehooks...)
	}

	if err := cfg.Validate(); err != nil {
		return model.Config{}, fmt.Errorf("validating configuration: %w", err)
	}
	return cfg, nil
}
