package model

import (
	"fmt"
	"time"
)

// Prehook output kinds. They select how a prehook's captured stdout is
// interpreted before it is handed to the template context.
const (
	OutputJSON   = "json"
	OutputText   = "text"
	OutputIgnore = "ignore"
)

// Config is the content of one service file. Files in the service
// directory aggregate in lexical order; the zero value is a valid empty
// configuration.
type Config struct {
	Services  []ServiceConfig `toml:"services"`
	Templates []Template      `toml:"templates"`
	Prehooks  []Prehook       `toml:"prehooks"`
}

// ServiceConfig describes one supervised service. It is immutable once
// loaded; exactly one service runner consumes it.
type ServiceConfig struct {
	Title string   `toml:"title"`
	Exec  string   `toml:"exec"`
	Args  []string `toml:"args"`
	// Essential marks a service whose exit shuts down the whole
	// process namespace.
	Essential bool `toml:"essential"`
}

// Template is a file rendered against the environment and prehook outputs
// before any service starts. Dest gets the mode and ownership of Src.
type Template struct {
	Src  string `toml:"src"`
	Dest string `toml:"dest"`
}

// Prehook is a one-shot command executed before templates render. Its
// stdout is captured and exposed to templates under the prehook's title.
type Prehook struct {
	Title string   `toml:"title"`
	Exec  string   `toml:"exec"`
	Args  []string `toml:"args"`
	// Output is one of "json", "text" or "ignore". Empty means "text".
	Output  string   `toml:"output"`
	Timeout Duration `toml:"timeout"`
}

// Duration wraps time.Duration so TOML values like "15s" decode.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Validate checks the invariants the loader guarantees to the rest of the
// program: every service and prehook names an executable, prehook titles
// are unique (templates address results by title) and output kinds are
// known.
func (c Config) Validate() error {
	for _, svc := range c.Services {
		if svc.Title == "" {
			return fmt.Errorf("service without a title (exec %q)", svc.Exec)
		}
		if svc.Exec == "" {
			return fmt.Errorf("service %q: exec is empty", svc.Title)
		}
	}

	seen := make(map[string]bool, len(c.Prehooks))
	for _, h := range c.Prehooks {
		if h.Title == "" {
			return fmt.Errorf("prehook without a title (exec %q)", h.Exec)
		}
		if h.Exec == "" {
			return fmt.Errorf("prehook %q: exec is empty", h.Title)
		}
		if seen[h.Title] {
			return fmt.Errorf("prehook %q: duplicate title", h.Title)
		}
		seen[h.Title] = true
		switch h.Output {
		case "", OutputJSON, OutputText, OutputIgnore:
		default:
			return fmt.Errorf("prehook %q: unknown output kind %q", h.Title, h.Output)
		}
	}

	for _, t := range c.Templates {
		if t.Src == "" || t.Dest == "" {
			return fmt.Errorf("template needs both src and dest (src %q, dest %q)", t.Src, t.Dest)
		}
	}
	return nil
}
