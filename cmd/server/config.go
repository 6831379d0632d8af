package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind           string
	port           int
	prefix         string
	sessionTimeout time.Duration
	redisAddr      string
	redisQueue     string
	databaseURL    string
	topics         []string
	verbose        bool
	version        bool
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.sessionTimeout < 0 {
		return errors.New("--session-timeout must not be negative")
	}
	if c.prefix != "" && !strings.HasPrefix(c.prefix, "/") {
		return fmt.Errorf("--prefix must start with '/': %q", c.prefix)
	}
	return nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("DRAWPHONE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "drawphone",
		Short:         "Game server for the drawing telephone party game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return Serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: DRAWPHONE_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: DRAWPHONE_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: DRAWPHONE_PREFIX)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle sessions are removed, 0 to keep them (env: DRAWPHONE_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.redisAddr, "redis-addr", "", "Redis address for the action log, empty to disable (env: DRAWPHONE_REDIS_ADDR)")
	fs.StringVar(&cfg.redisQueue, "redis-queue", "drawphone_actions", "Redis list the action log is pushed to (env: DRAWPHONE_REDIS_QUEUE)")
	fs.StringVar(&cfg.databaseURL, "database-url", "", "Postgres URL for archiving completed sessions, empty to disable (env: DRAWPHONE_DATABASE_URL)")
	fs.StringSliceVar(&cfg.topics, "topics", nil, "comma-separated subjects dealt to new stacks (env: DRAWPHONE_TOPICS)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: DRAWPHONE_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: DRAWPHONE_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("drawphone v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
