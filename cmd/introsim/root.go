package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joeycumines/go-introslide/internal/scenario"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	logFormatJSON    = `json`
	logFormatConsole = `console`
)

var logLevels = map[string]logiface.Level{
	`disabled`: logiface.LevelDisabled,
	`emerg`:    logiface.LevelEmergency,
	`alert`:    logiface.LevelAlert,
	`crit`:     logiface.LevelCritical,
	`err`:      logiface.LevelError,
	`error`:    logiface.LevelError,
	`warning`:  logiface.LevelWarning,
	`warn`:     logiface.LevelWarning,
	`notice`:   logiface.LevelNotice,
	`info`:     logiface.LevelInformational,
	`debug`:    logiface.LevelDebug,
	`trace`:    logiface.LevelTrace,
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           `introsim`,
		Short:         `Replay the opening sequence and scroll effects of a page`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String(`log-format`, logFormatConsole, `Log format: console|json`)
	root.PersistentFlags().String(`log-level`, `info`, `Log level: trace|debug|info|warning|err`)
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var opts replayOptions
	cmd := &cobra.Command{
		Use:     `run`,
		Short:   `Replay a page, printing the timeline of document mutations`,
		Example: "  introsim run --page index.html\n  introsim run --page index.html --scenario slow-network.toml\n  introsim run --virtual --page index.html --expect index.timeline",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString(`log-format`)
			level, _ := cmd.Flags().GetString(`log-level`)
			logger, err := newLogger(cmd.ErrOrStderr(), format, level)
			if err != nil {
				return err
			}

			markup, err := os.ReadFile(opts.page)
			if err != nil {
				return fmt.Errorf(`introsim: read page: %w`, err)
			}

			s := new(scenario.Scenario)
			if opts.scenario != `` {
				if s, err = scenario.Load(opts.scenario); err != nil {
					return err
				}
			}
			if opts.timeout > 0 {
				s.Timeout = scenario.Duration(opts.timeout)
			}

			return replay(cmd.Context(), &replayConfig{
				Markup:   string(markup),
				Scenario: s,
				Logger:   logger,
				Out:      cmd.OutOrStdout(),
				Virtual:  opts.virtual,
				Expect:   opts.expect,
			})
		},
	}
	cmd.Flags().StringVar(&opts.page, `page`, ``, `HTML file to replay (required)`)
	cmd.Flags().StringVar(&opts.scenario, `scenario`, ``, `Scenario file (.toml, .yaml, .json)`)
	cmd.Flags().DurationVar(&opts.timeout, `timeout`, 0, `Overrides the scenario timeout`)
	cmd.Flags().BoolVar(&opts.virtual, `virtual`, false, `Replay on a virtual clock, for a deterministic timeline`)
	cmd.Flags().StringVar(&opts.expect, `expect`, ``, `Fail if the timeline differs from this file, printing a diff`)
	_ = cmd.MarkFlagRequired(`page`)
	return cmd
}

// newLogger writes JSON via stumpy, optionally rendered for humans by
// zerolog's ConsoleWriter.
func newLogger(w io.Writer, format, level string) (*logiface.Logger[logiface.Event], error) {
	lvl, ok := logLevels[strings.ToLower(level)]
	if !ok {
		return nil, fmt.Errorf(`introsim: unknown log level %q`, level)
	}
	switch format {
	case logFormatJSON:
	case logFormatConsole:
		noColor := true
		if f, ok := w.(*os.File); ok {
			noColor = !isatty.IsTerminal(f.Fd())
		}
		w = zerolog.ConsoleWriter{
			Out:           w,
			NoColor:       noColor,
			PartsOrder:    []string{zerolog.TimestampFieldName, zerolog.LevelFieldName, `msg`},
			FieldsExclude: []string{`msg`},
			// stumpy levels are syslog keywords, which zerolog can't parse
			FormatLevel: func(i any) string {
				return fmt.Sprintf(`%-7s`, strings.ToUpper(fmt.Sprint(i)))
			},
		}
	default:
		return nil, fmt.Errorf(`introsim: unknown log format %q`, format)
	}
	return stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(w),
			stumpy.WithLevelField(zerolog.LevelFieldName),
			stumpy.WithTimeField(zerolog.TimestampFieldName),
		),
		stumpy.L.WithLevel(lvl),
		stumpy.L.WithCategoryRateLimits(map[time.Duration]int{
			time.Second: 20,
			time.Minute: 200,
		}),
	).Logger(), nil
}
