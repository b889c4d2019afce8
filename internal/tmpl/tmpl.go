// Package tmpl renders configuration sources and template files against
// the process environment and captured prehook outputs. Rendering happens
// before the supervisor starts; the supervision core never touches it.
package tmpl

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"text/template"

	"github.com/whaleinit/whaleinit/internal/model"
	"github.com/whaleinit/whaleinit/internal/prehook"
)

// Context is the data templates render against:
//
//	{{.Env.HOME}}             — process environment
//	{{.Prehook.hostinfo.fqdn}} — structured prehook output, by title
type Context struct {
	data map[string]any
}

// NewContext builds the render data from the current environment and the
// given prehook results. A nil results map gives an environment-only
// context, used when expanding config sources before prehooks have run.
func NewContext(results map[string]prehook.Result) *Context {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		env[k] = v
	}

	hooks := make(map[string]any, len(results))
	for title, res := range results {
		if v := res.Value(); v != nil {
			hooks[title] = v
		}
	}

	return &Context{data: map[string]any{
		"Env":     env,
		"Prehook": hooks,
	}}
}

// Render parses and executes one template source.
func (c *Context) Render(name, src string) (string, error) {
	t, err := template.New(name).Option("missingkey=zero").Parse(src)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := t.Execute(&sb, c.data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// RenderFile renders tpl.Src into tpl.Dest. The destination gets the file
// mode and ownership of the source, so a template for a service's config
// stays readable by exactly whoever could read the template itself.
func (c *Context) RenderFile(tpl model.Template) error {
	raw, err := os.ReadFile(tpl.Src)
	if err != nil {
		return fmt.Errorf("reading template source %s: %w", tpl.Src, err)
	}

	content, err := c.Render(filepath.Base(tpl.Src), string(raw))
	if err != nil {
		return fmt.Errorf("rendering template %s: %w", tpl.Src, err)
	}

	info, err := os.Stat(tpl.Src)
	if err != nil {
		return fmt.Errorf("reading template source %s: %w", tpl.Src, err)
	}

	if err := os.WriteFile(tpl.Dest, []byte(content), info.Mode().Perm()); err != nil {
		return fmt.Errorf("writing template %s: %w", tpl.Dest, err)
	}
	// WriteFile applies the mode only on create
	if err := os.Chmod(tpl.Dest, info.Mode().Perm()); err != nil {
		return fmt.Errorf("writing template %s: %w", tpl.Dest, err)
	}

	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		if err := os.Chown(tpl.Dest, int(st.Uid), int(st.Gid)); err != nil {
			return fmt.Errorf("changing template ownership %s: %w", tpl.Dest, err)
		}
	}
	return nil
}
