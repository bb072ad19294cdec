// Package cli implements the launchpad command line. Binaries embedding their
// own model makers import them for registration and call Execute.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/launchpad/internal/api"
	"github.com/ajitpratap0/launchpad/pkg/config"
	"github.com/ajitpratap0/launchpad/pkg/connector/registry"
	"github.com/ajitpratap0/launchpad/pkg/errors"
	"github.com/ajitpratap0/launchpad/pkg/launchpad"
	"github.com/ajitpratap0/launchpad/pkg/logger"
	"github.com/ajitpratap0/launchpad/pkg/model"
	"github.com/ajitpratap0/launchpad/pkg/modelstore"
	"github.com/ajitpratap0/launchpad/pkg/observability"
)

const shutdownTimeout = 10 * time.Second

type runFlags struct {
	train   bool
	retest  bool
	predict bool
	api     bool
	verbose bool
	addr    string
}

// Execute runs the root command and exits non-zero on failure
func Execute(version string) {
	if err := NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCommand returns the launchpad command tree
func NewRootCommand(version string) *cobra.Command {
	v := config.NewViper()
	flags := &runFlags{}

	root := &cobra.Command{
		Use:   "launchpad",
		Short: "Launchpad - train, test and serve models against configured datasources",
		Long: `Launchpad runs the lifecycle of a model: training, testing and prediction.
Datasources and datasinks are declared in a YAML configuration file and handed
to the model code for the phases they are tagged with.

Examples:
  launchpad -c iris.yml -t
  launchpad -c iris.yml -p sepal_length=5.1 petal_length=1.4
  launchpad -c iris.yml -a --addr :8080`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, flags, version, args)
		},
	}

	pf := root.PersistentFlags()
	pf.StringP("config", "c", "", "Configuration file (default $LAUNCHPAD_CFG or ./LAUNCHPAD_CFG.yml)")
	pf.StringP("log-config", "l", "", "Logging configuration file (default $LAUNCHPAD_LOG)")
	pf.BoolVar(&flags.verbose, "verbose", false, "Log at debug level")
	_ = v.BindPFlag(config.KeyConfig, pf.Lookup("config"))
	_ = v.BindPFlag(config.KeyLog, pf.Lookup("log-config"))

	f := root.Flags()
	f.BoolVarP(&flags.train, "train", "t", false, "Train the model, test it and store it")
	f.BoolVarP(&flags.retest, "retest", "r", false, "Test the stored model and update its metrics")
	f.BoolVarP(&flags.predict, "predict", "p", false, "Predict with the stored model, arguments as key=value")
	f.BoolVarP(&flags.api, "api", "a", false, "Serve predictions over HTTP")
	f.StringVar(&flags.addr, "addr", ":5000", "Address the API listens on")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Launchpad v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})
	root.AddCommand(listCommand())
	root.AddCommand(modelsCommand(v, flags))
	root.AddCommand(configCommand(v, flags))

	return root
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List connector types, plugins and model modules",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := launchpad.NewRegistry(registry.Plugins, nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			section(out, "Datasource types", reg.SourceTypes())
			section(out, "Datasink types", reg.SinkTypes())
			section(out, "Plugins", registry.Plugins.Names())
			section(out, "Model modules", model.Makers.Names())
			return nil
		},
	}
}

func modelsCommand(v *viper.Viper, flags *runFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models in the configured model store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initLogging(v, flags.verbose); err != nil {
				return err
			}
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			store, err := launchpad.OpenStore(cfg)
			if err != nil {
				return err
			}
			models, err := store.List()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summarize(models))
		},
	}
}

func configCommand(v *viper.Viper, flags *runFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the configuration with includes and environment variables resolved",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initLogging(v, flags.verbose); err != nil {
				return err
			}
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if output != "" {
				return config.Save(output, cfg)
			}
			data, err := config.Encode(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}

func section(w io.Writer, title string, names []string) {
	fmt.Fprintf(w, "%s:\n", title)
	if len(names) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, name := range names {
		fmt.Fprintf(w, "  - %s\n", name)
	}
	fmt.Fprintln(w)
}

type modelSummary struct {
	Latest   string        `json:"latest"`
	Versions []string      `json:"versions"`
	Metrics  model.Metrics `json:"metrics,omitempty"`
	Backups  int           `json:"backups"`
}

func summarize(models map[string]*modelstore.Versions) map[string]modelSummary {
	out := make(map[string]modelSummary, len(models))
	for name, vs := range models {
		s := modelSummary{Backups: len(vs.Backups)}
		for version := range vs.ByVersion {
			s.Versions = append(s.Versions, version)
		}
		if vs.Latest != nil {
			s.Latest = vs.Latest.Version
			s.Metrics = vs.Latest.Metrics
		}
		out[name] = s
	}
	return out
}

func run(cmd *cobra.Command, v *viper.Viper, flags *runFlags, version string, args []string) error {
	if !flags.train && !flags.retest && !flags.predict && !flags.api {
		return cmd.Help()
	}
	if err := initLogging(v, flags.verbose); err != nil {
		return err
	}
	if err := observability.Initialize(observability.DefaultConfig(version)); err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	}
	defer func() {
		if err := observability.Shutdown(context.Background()); err != nil {
			logger.Warn("failed to flush traces", zap.Error(err))
		}
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	build := func(ctx context.Context) (*launchpad.Runner, error) {
		cfg, err := loadConfig(v)
		if err != nil {
			return nil, err
		}
		return launchpad.New(ctx, cfg)
	}
	runner, err := build(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if flags.train {
		result, err := runner.Train(ctx)
		if err != nil {
			return errors.Join(err, runner.Close(ctx))
		}
		if err := printJSON(out, map[string]interface{}{"metrics": result.Metrics}); err != nil {
			return errors.Join(err, runner.Close(ctx))
		}
	}
	if flags.retest {
		metrics, err := runner.Retest(ctx)
		if err != nil {
			return errors.Join(err, runner.Close(ctx))
		}
		if err := printJSON(out, map[string]interface{}{"metrics": metrics}); err != nil {
			return errors.Join(err, runner.Close(ctx))
		}
	}
	if flags.predict {
		modelArgs, err := parseArgs(args)
		if err != nil {
			return errors.Join(err, runner.Close(ctx))
		}
		output, err := runner.Predict(ctx, modelArgs)
		if err != nil {
			return errors.Join(err, runner.Close(ctx))
		}
		if err := printJSON(out, output); err != nil {
			return errors.Join(err, runner.Close(ctx))
		}
	}
	if !flags.api {
		return runner.Close(ctx)
	}
	return serve(ctx, runner, build, v, flags.addr)
}

func serve(ctx context.Context, runner *launchpad.Runner, build api.Builder, v *viper.Viper, addr string) error {
	server, err := api.New(ctx, runner, api.WithBuilder(build))
	if err != nil {
		return errors.Join(err, runner.Close(ctx))
	}
	cfgPath, _, _ := config.Paths(v)
	if err := server.Watch(ctx, cfgPath); err != nil {
		logger.Warn("config reload disabled", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(addr)
	}()

	select {
	case err := <-errCh:
		return errors.Join(err, server.Runner().Close(context.Background()))
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func initLogging(v *viper.Viper, verbose bool) error {
	_, logPath, _ := config.Paths(v)
	cfg := logger.DefaultConfig()
	if logPath != "" {
		loaded, err := logger.LoadConfig(logPath)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "invalid logging configuration").WithDetail("path", logPath)
		}
		cfg = loaded
	}
	if verbose {
		cfg.Level = "debug"
	}
	return logger.Init(cfg)
}

func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfgPath, _, isDefault := config.Paths(v)
	if isDefault {
		logger.Warn("no configuration given, falling back to the default path",
			zap.String("path", cfgPath),
			zap.String("env", config.EnvConfig))
	}
	return config.Load(cfgPath)
}

// parseArgs turns key=value arguments into model arguments
func parseArgs(args []string) (model.Args, error) {
	out := model.Args{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, errors.Newf(errors.ErrorTypeValidation, "invalid argument %q, expected key=value", arg)
		}
		out[key] = value
	}
	return out, nil
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to encode output")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
