// Package config loads expctl configuration from defaults, an optional YAML
// file and EXP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/freeeve/chessgraph/experience/internal/convert"
	"github.com/freeeve/chessgraph/experience/internal/graph"
)

type Config struct {
	Experience ExperienceConfig `yaml:"experience" mapstructure:"experience"`
	Convert    ConvertConfig    `yaml:"convert" mapstructure:"convert"`
	Engine     EngineConfig     `yaml:"engine" mapstructure:"engine"`
	ECO        ECOConfig        `yaml:"eco" mapstructure:"eco"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

type ExperienceConfig struct {
	Enabled        bool   `yaml:"enabled" mapstructure:"enabled"`
	Readonly       bool   `yaml:"readonly" mapstructure:"readonly"`
	File           string `yaml:"file" mapstructure:"file"`
	EvalImportance int    `yaml:"eval_importance" mapstructure:"eval_importance"`
	WriteBuffer    int    `yaml:"write_buffer" mapstructure:"write_buffer"` // 0 picks the build default
	MinDepth       int    `yaml:"min_depth" mapstructure:"min_depth"`
}

type ConvertConfig struct {
	MaxPly      int     `yaml:"max_ply" mapstructure:"max_ply"`
	MaxAbsScore int     `yaml:"max_abs_score" mapstructure:"max_abs_score"`
	MinDepth    int     `yaml:"min_depth" mapstructure:"min_depth"`
	MaxDepth    int     `yaml:"max_depth" mapstructure:"max_depth"`
	MinGamePly  int     `yaml:"min_game_ply" mapstructure:"min_game_ply"`
	NearMate    int     `yaml:"near_mate" mapstructure:"near_mate"`
	LargeScore  int     `yaml:"large_score" mapstructure:"large_score"`
	MediumScore int     `yaml:"medium_score" mapstructure:"medium_score"`
	DrawScore   int     `yaml:"draw_score" mapstructure:"draw_score"`
	WeightDecay float64 `yaml:"weight_decay" mapstructure:"weight_decay"`
	MinWeight   float64 `yaml:"min_weight" mapstructure:"min_weight"`
	FlushEvery  int     `yaml:"flush_every" mapstructure:"flush_every"`
}

type EngineConfig struct {
	Path    string `yaml:"path" mapstructure:"path"`
	Depth   int    `yaml:"depth" mapstructure:"depth"`
	MultiPV int    `yaml:"multipv" mapstructure:"multipv"`
	Threads int    `yaml:"threads" mapstructure:"threads"`
	HashMB  int    `yaml:"hash_mb" mapstructure:"hash_mb"`
}

type ECOConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

func DefaultConfig() *Config {
	opts := convert.DefaultOptions()
	return &Config{
		Experience: ExperienceConfig{
			Enabled:        true,
			File:           "chessgraph.exp",
			EvalImportance: 5,
			MinDepth:       4,
		},
		Convert: ConvertConfig{
			MaxPly:      opts.MaxPly,
			MaxAbsScore: int(opts.MaxAbsScore),
			MinDepth:    int(opts.MinDepth),
			MaxDepth:    int(opts.MaxDepth),
			MinGamePly:  opts.MinGamePly,
			NearMate:    int(opts.NearMate),
			LargeScore:  int(opts.LargeScore),
			MediumScore: int(opts.MediumScore),
			DrawScore:   int(opts.DrawScore),
			WeightDecay: opts.WeightDecay,
			MinWeight:   opts.MinWeight,
			FlushEvery:  opts.FlushEvery,
		},
		Engine: EngineConfig{
			Depth:   20,
			MultiPV: 4,
			Threads: 1,
			HashMB:  64,
		},
		Log: LogConfig{Level: "info"},
	}
}

// setDefaults registers every key so environment variables can override
// keys missing from the file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("experience.enabled", cfg.Experience.Enabled)
	v.SetDefault("experience.readonly", cfg.Experience.Readonly)
	v.SetDefault("experience.file", cfg.Experience.File)
	v.SetDefault("experience.eval_importance", cfg.Experience.EvalImportance)
	v.SetDefault("experience.write_buffer", cfg.Experience.WriteBuffer)
	v.SetDefault("experience.min_depth", cfg.Experience.MinDepth)

	v.SetDefault("convert.max_ply", cfg.Convert.MaxPly)
	v.SetDefault("convert.max_abs_score", cfg.Convert.MaxAbsScore)
	v.SetDefault("convert.min_depth", cfg.Convert.MinDepth)
	v.SetDefault("convert.max_depth", cfg.Convert.MaxDepth)
	v.SetDefault("convert.min_game_ply", cfg.Convert.MinGamePly)
	v.SetDefault("convert.near_mate", cfg.Convert.NearMate)
	v.SetDefault("convert.large_score", cfg.Convert.LargeScore)
	v.SetDefault("convert.medium_score", cfg.Convert.MediumScore)
	v.SetDefault("convert.draw_score", cfg.Convert.DrawScore)
	v.SetDefault("convert.weight_decay", cfg.Convert.WeightDecay)
	v.SetDefault("convert.min_weight", cfg.Convert.MinWeight)
	v.SetDefault("convert.flush_every", cfg.Convert.FlushEvery)

	v.SetDefault("engine.path", cfg.Engine.Path)
	v.SetDefault("engine.depth", cfg.Engine.Depth)
	v.SetDefault("engine.multipv", cfg.Engine.MultiPV)
	v.SetDefault("engine.threads", cfg.Engine.Threads)
	v.SetDefault("engine.hash_mb", cfg.Engine.HashMB)

	v.SetDefault("eco.dir", cfg.ECO.Dir)
	v.SetDefault("log.level", cfg.Log.Level)
}

// Load reads configuration. With file empty, expctl.yaml is looked up in
// the working directory and its absence is not an error.
func Load(file string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()
	setDefaults(v, cfg)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("expctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("EXP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Experience.File == "" {
		return fmt.Errorf("config: experience.file is required")
	}
	if c.Experience.EvalImportance < 0 || c.Experience.EvalImportance > 10 {
		return fmt.Errorf("config: experience.eval_importance %d out of range 0..10", c.Experience.EvalImportance)
	}
	if c.Experience.WriteBuffer < 0 {
		return fmt.Errorf("config: experience.write_buffer must not be negative")
	}
	if c.Convert.MinDepth > c.Convert.MaxDepth {
		return fmt.Errorf("config: convert.min_depth %d above convert.max_depth %d", c.Convert.MinDepth, c.Convert.MaxDepth)
	}
	if c.Convert.MaxDepth > graph.MaxPly {
		return fmt.Errorf("config: convert.max_depth %d above %d", c.Convert.MaxDepth, graph.MaxPly)
	}
	if c.Convert.WeightDecay <= 0 || c.Convert.WeightDecay > 1 {
		return fmt.Errorf("config: convert.weight_decay %g out of range (0,1]", c.Convert.WeightDecay)
	}
	if c.Engine.MultiPV < 1 {
		c.Engine.MultiPV = 1
	}
	if c.Engine.Depth < 1 {
		c.Engine.Depth = 20
	}
	if c.Convert.FlushEvery < 1 {
		c.Convert.FlushEvery = convert.DefaultOptions().FlushEvery
	}
	return nil
}

// ConvertOptions returns the conversion settings.
func (c *Config) ConvertOptions() convert.Options {
	return convert.Options{
		MaxPly:      c.Convert.MaxPly,
		MaxAbsScore: graph.Value(c.Convert.MaxAbsScore),
		MinDepth:    graph.Depth(c.Convert.MinDepth),
		MaxDepth:    graph.Depth(c.Convert.MaxDepth),
		MinGamePly:  c.Convert.MinGamePly,
		NearMate:    graph.Value(c.Convert.NearMate),
		LargeScore:  graph.Value(c.Convert.LargeScore),
		MediumScore: graph.Value(c.Convert.MediumScore),
		DrawScore:   graph.Value(c.Convert.DrawScore),
		WeightDecay: c.Convert.WeightDecay,
		MinWeight:   c.Convert.MinWeight,
		FlushEvery:  c.Convert.FlushEvery,
	}
}

// MapPath places a bare file name next to the executable. Paths with a
// directory component are returned unchanged.
func MapPath(p string) string {
	exe, err := os.Executable()
	if err != nil {
		return p
	}
	return mapPath(p, filepath.Dir(exe))
}

func mapPath(p, dir string) string {
	p = Unquote(p)
	if p == "" || strings.ContainsAny(p, `/\`) {
		return p
	}
	return filepath.Join(dir, p)
}

// Unquote strips one pair of surrounding double quotes.
func Unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
