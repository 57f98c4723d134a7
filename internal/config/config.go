// Package config loads the CLI's resolved runtime configuration: a small
// stdlib flag surface for what a human actually types, backed by a
// viper.Viper instance that layers environment variables and an optional
// YAML file beneath explicit defaults. This mirrors the teacher binary's
// own config.go/loadConfig split, extended to the full knob surface this
// tool exposes instead of a single ingestion service's.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/control-theory/logoscope/internal/analyzer"
	"github.com/control-theory/logoscope/internal/anomaly"
	"github.com/control-theory/logoscope/internal/correlation"
	"github.com/control-theory/logoscope/internal/drain"
	"github.com/control-theory/logoscope/internal/model"
	"github.com/control-theory/logoscope/internal/summary"
	"github.com/control-theory/logoscope/internal/temporal"
)

// AppConfig is the fully resolved configuration for one invocation: every
// flag, environment variable and YAML key, merged and typed.
type AppConfig struct {
	ConfigPath string `mapstructure:"-"`

	View    string `mapstructure:"view"`
	Start   string `mapstructure:"start"`
	End     string `mapstructure:"end"`
	Pattern string `mapstructure:"pattern"`
	Match   string `mapstructure:"match"`
	Exclude string `mapstructure:"exclude"`
	Level   string `mapstructure:"level"`
	Service string `mapstructure:"service"`
	Host    string `mapstructure:"host"`

	Top            int     `mapstructure:"top"`
	MinCount       int     `mapstructure:"min-count"`
	MinFrequency   float64 `mapstructure:"min-frequency"`
	Examples       int     `mapstructure:"examples"`
	MaxPatterns    int     `mapstructure:"max-patterns"`
	Before         int     `mapstructure:"before"`
	After          int     `mapstructure:"after"`
	Format         string  `mapstructure:"format"`
	GroupBy        string  `mapstructure:"group-by"`
	Sort           string  `mapstructure:"sort"`

	Follow   bool          `mapstructure:"follow"`
	Interval time.Duration `mapstructure:"interval"`
	Window   time.Duration `mapstructure:"window"`
	MaxLines int           `mapstructure:"max-lines"`
	FailFast bool          `mapstructure:"fail-fast"`

	TimeKeys []string `mapstructure:"time-key"`

	MaxDepth    int     `mapstructure:"max-depth"`
	MaxChildren int     `mapstructure:"max-children"`
	SimMin      float64 `mapstructure:"sim-min"`
	MaxClusters int     `mapstructure:"max-clusters"`

	BurstMultiplier float64       `mapstructure:"burst-multiplier"`
	GapMultiplier   float64       `mapstructure:"gap-multiplier"`
	SpikeZ          float64       `mapstructure:"spike-z"`
	BucketWidth     time.Duration `mapstructure:"bucket-width"`

	RareThreshold          float64       `mapstructure:"rare-threshold"`
	CorrelationWindow      time.Duration `mapstructure:"correlation-window"`
	CorrelationTopK        int           `mapstructure:"correlation-top-k"`
	CorrelationMinStrength float64       `mapstructure:"correlation-min-strength"`

	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`

	AnomalyExitThreshold int `mapstructure:"anomaly-exit-threshold"`
}

// Load parses command-line flags, then layers environment variables
// (prefixed LOGOSCOPE_) and an optional YAML file beneath the defaults
// named throughout the specification. A missing config file is tolerated;
// a malformed one is not. Remaining non-flag arguments (input file paths)
// are returned separately.
func Load(args []string) (AppConfig, []string, error) {
	fs := flag.NewFlagSet("logoscope", flag.ContinueOnError)

	configPath := fs.String("config", "", "path to an optional YAML config file")
	view := fs.String("view", string(summary.ViewFull), "summary view: full|triage|verbose|deep|patterns|logs")
	follow := fs.Bool("follow", false, "run in streaming mode, tailing input as it arrives")
	failFast := fs.Bool("fail-fast", false, "abort on the first line-level error")
	showVersion := fs.Bool("version", false, "print version information")

	if err := fs.Parse(args); err != nil {
		return AppConfig{}, nil, err
	}
	if *showVersion {
		return AppConfig{}, nil, errShowVersion
	}

	v := viper.New()
	v.SetEnvPrefix("LOGOSCOPE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	setDefaults(v)
	v.Set("view", *view)
	v.Set("follow", *follow)
	v.Set("fail-fast", *failFast)

	if *configPath != "" {
		v.SetConfigFile(*configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return AppConfig{}, nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AppConfig{}, nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.ConfigPath = *configPath
	return cfg, fs.Args(), nil
}

// errShowVersion signals Load's caller to print version info and exit
// rather than proceed to analysis.
var errShowVersion = errors.New("version requested")

// IsVersionRequest reports whether err is the sentinel Load returns when
// -version was passed.
func IsVersionRequest(err error) bool {
	return errors.Is(err, errShowVersion)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("top", 20)
	v.SetDefault("min-count", 0)
	v.SetDefault("min-frequency", 0.0)
	v.SetDefault("examples", 5)
	v.SetDefault("max-patterns", 0)
	v.SetDefault("format", "json")
	v.SetDefault("group-by", "none")
	v.SetDefault("sort", "count")

	v.SetDefault("interval", model.DefaultUpdateInterval)
	v.SetDefault("window", model.DefaultUpdateInterval*time.Duration(model.DefaultSummaryInterval))
	v.SetDefault("max-lines", 0)

	v.SetDefault("max-depth", model.DefaultMaxDepth)
	v.SetDefault("max-children", model.DefaultMaxChildren)
	v.SetDefault("sim-min", model.DefaultSimMin)
	v.SetDefault("max-clusters", model.DefaultMaxClusters)

	v.SetDefault("burst-multiplier", model.DefaultBurstMultiplier)
	v.SetDefault("gap-multiplier", model.DefaultGapMultiplier)
	v.SetDefault("spike-z", model.DefaultSpikeZ)
	v.SetDefault("bucket-width", model.DefaultBucketWidth)

	v.SetDefault("rare-threshold", model.DefaultRareThreshold)
	v.SetDefault("correlation-window", model.DefaultCorrelationWindow)
	v.SetDefault("correlation-top-k", model.DefaultCorrelationTopK)
	v.SetDefault("correlation-min-strength", model.DefaultCorrelationMinStrength)

	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "text")
	v.SetDefault("anomaly-exit-threshold", 0)
}

// AnalyzerConfig translates the resolved AppConfig into the pipeline's own
// immutable Config bundle.
func (c AppConfig) AnalyzerConfig() analyzer.Config {
	cfg := analyzer.DefaultConfig()
	cfg.TimeKeys = c.TimeKeys
	cfg.Streaming = c.Follow
	cfg.Window = c.Window
	cfg.FailFast = c.FailFast
	cfg.SummaryView = c.ParsedView()
	cfg.SummaryMinCount = uint64(c.MinCount)
	cfg.SummaryMaxExamples = c.ExamplesForView()

	cfg.Drain = drain.Config{
		MaxDepth:    c.MaxDepth,
		MaxChildren: c.MaxChildren,
		SimMin:      c.SimMin,
		MaxClusters: c.MaxClusters,
	}
	cfg.Temporal = temporal.Config{
		BucketWidth:     c.BucketWidth,
		BurstMultiplier: c.BurstMultiplier,
		GapMultiplier:   c.GapMultiplier,
		GapMinDuration:  model.DefaultGapMinDuration,
		SpikeZ:          c.SpikeZ,
	}
	cfg.Anomaly = anomaly.Config{
		NumericOutlierZ:        model.DefaultNumericOutlierZ,
		NumericOutlierMinCount: model.DefaultNumericOutlierMinCount,
		CardinalityRatio:       model.DefaultCardinalityRatio,
		CardinalityMinTotal:    model.DefaultCardinalityMinTotal,
		NewPatternWarmupShare:  model.DefaultNewPatternWarmupShare,
		RareThreshold:          c.RareThreshold,
	}
	cfg.Correlation = correlation.Config{
		Window:      c.CorrelationWindow,
		TopK:        c.CorrelationTopK,
		MinStrength: c.CorrelationMinStrength,
	}
	return cfg
}

// ParsedView resolves the configured view string to a summary.View,
// falling back to full for an unrecognized value.
func (c AppConfig) ParsedView() summary.View {
	switch summary.View(c.View) {
	case summary.ViewFull, summary.ViewTriage, summary.ViewVerbose, summary.ViewDeep, summary.ViewPatterns, summary.ViewLogs:
		return summary.View(c.View)
	default:
		return summary.ViewFull
	}
}

// ExamplesForView resolves the per-pattern example cap for the resolved
// view: deep always raises it to 10 regardless of the configured default,
// per its "fuller detail" view contract.
func (c AppConfig) ExamplesForView() int {
	if c.ParsedView() == summary.ViewDeep {
		return 10
	}
	return c.Examples
}
