package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/whaleinit/whaleinit/internal/model"
)

func TestDuration(t *testing.T) {
	t.Parallel()
	var d model.Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	require.Equal(t, 90*time.Second, d.Duration)

	require.Error(t, d.UnmarshalText([]byte("soon")))

	out, err := model.Duration{Duration: 15 * time.Second}.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "15s", string(out))
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := model.Config{
		Services: []model.ServiceConfig{
			{Title: "web", Exec: "/usr/bin/web", Args: []string{"--port", "80"}},
			{Title: "db", Exec: "/usr/bin/db", Essential: true},
		},
		Templates: []model.Template{
			{Src: "/etc/web.conf.tmpl", Dest: "/etc/web.conf"},
		},
		Prehooks: []model.Prehook{
			{Title: "hostinfo", Exec: "/usr/bin/hostinfo", Output: model.OutputJSON},
			{Title: "motd", Exec: "/usr/bin/motd"},
		},
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name string
		cfg  model.Config
		want string
	}{
		{
			name: "service without title",
			cfg:  model.Config{Services: []model.ServiceConfig{{Exec: "/bin/x"}}},
			want: "without a title",
		},
		{
			name: "service without exec",
			cfg:  model.Config{Services: []model.ServiceConfig{{Title: "web"}}},
			want: "exec is empty",
		},
		{
			name: "duplicate prehook title",
			cfg: model.Config{Prehooks: []model.Prehook{
				{Title: "h", Exec: "/bin/a"},
				{Title: "h", Exec: "/bin/b"},
			}},
			want: "duplicate title",
		},
		{
			name: "unknown prehook output",
			cfg:  model.Config{Prehooks: []model.Prehook{{Title: "h", Exec: "/bin/a", Output: "yaml"}}},
			want: "unknown output kind",
		},
		{
			name: "template without dest",
			cfg:  model.Config{Templates: []model.Template{{Src: "/etc/a.tmpl"}}},
			want: "needs both src and dest",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}
