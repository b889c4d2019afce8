package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/whaleinit/whaleinit/internal/config"
	"github.com/whaleinit/whaleinit/internal/log"
	"github.com/whaleinit/whaleinit/internal/prehook"
	"github.com/whaleinit/whaleinit/internal/sup"
	"github.com/whaleinit/whaleinit/internal/tmpl"
)

var (
	flagServiceDir string // value of --service-dir flag
	flagLogJSON    bool   // value of --log-json flag
	flagLogLevel   string // value of --log-level flag
	flagLogFile    string // value of --log-file flag
)

func main() {
	// root flags, each overridable through WHALEINIT_* since an init
	// inside a container is usually configured by environment
	rootCmd.PersistentFlags().StringVarP(&flagServiceDir, "service-dir", "s",
		envOr("WHALEINIT_SERVICE_DIR", "/etc/whaleinit/services"),
		"directory with the service *.toml files")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json",
		os.Getenv("WHALEINIT_LOG_JSON") != "",
		"emit log records as JSON")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level",
		envOr("WHALEINIT_LOG_LEVEL", "info"),
		"minimal log level: trace, debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file",
		os.Getenv("WHALEINIT_LOG_FILE"),
		"log to this rotated file instead of stderr")

	// never print messages
	rootCmd.SilenceErrors = true

	rootCmd.PersistentPreRun = initLogging

	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("whaleinit failed", "err", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "whaleinit",
	Short:        "Minimal container init: launches services, forwards signals, reaps zombies",
	SilenceUsage: true,
	RunE:         doRun,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provides the version of whaleinit",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("whaleinit: version info not available")
			return
		}

		fmt.Printf("whaleinit: %s\n", info.Main.Version)
		fmt.Printf("go:        %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("commit:    %s\n", s.Value)
			case "vcs.time":
				fmt.Printf("date:      %s\n", s.Value)
			case "vcs.modified":
				fmt.Printf("dirty:     %s\n", s.Value)
			}
		}
	},
}

func initLogging(cmd *cobra.Command, _ []string) {
	logger := log.New(log.Options{
		Level: log.ParseLevel(flagLogLevel),
		JSON:  flagLogJSON,
		File:  flagLogFile,
	})
	slog.SetDefault(logger)
}

func doRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	attrs := slog.Group("whaleinit",
		slog.String("boot_id", uuid.NewString()),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)
	logger := slog.Default()

	cfg, err := config.Load(ctx, logger, flagServiceDir)
	if err != nil {
		return err
	}
	if len(cfg.Services) == 0 {
		return fmt.Errorf("no services configured in %s", flagServiceDir)
	}

	results, err := prehook.Run(ctx, logger, cfg.Prehooks)
	if err != nil {
		return err
	}

	tc := tmpl.NewContext(results)
	for _, t := range cfg.Templates {
		if err := tc.RenderFile(t); err != nil {
			return err
		}
		logger.InfoContext(ctx, "template rendered", "src", t.Src, "dest", t.Dest)
	}

	return sup.New(logger, cfg.Services).Run(ctx)
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
