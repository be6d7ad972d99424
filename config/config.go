package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tilecraft/slide/arbiter"
	"github.com/tilecraft/slide/bot"
	"github.com/tilecraft/slide/game"
	"github.com/tilecraft/slide/heuristic"
	"github.com/tilecraft/slide/search"
)

const (
	ConfigDebug            = "debug"
	ConfigConfigFile       = "config"
	ConfigIdentity         = "identity"
	ConfigDBPath           = "db-path"
	ConfigNatsURL          = "nats-url"
	ConfigBotSubject       = "bot-subject"
	ConfigBotTimeout       = "bot-timeout"
	ConfigBotAttempts      = "bot-attempts"
	ConfigRemoteSearch     = "remote-search"
	ConfigListenAddr       = "listen-addr"
	ConfigSearchDepth      = "search-depth"
	ConfigSearchAlgorithm  = "search-algorithm"
	ConfigSearchThreads    = "search-threads"
	ConfigSampleCells      = "sample-cells"
	ConfigWeightsEmpty     = "weights.empty"
	ConfigWeightsSmooth    = "weights.smooth"
	ConfigWeightsMono      = "weights.mono"
	ConfigWeightsMax       = "weights.max"
	ConfigAutoplayInterval = "autoplay-interval"
	ConfigSettleDelay      = "settle-delay"
	ConfigFastThreshold    = "fast-threshold"
	ConfigSeed             = "seed"
	ConfigCPUProfile       = "cpu-profile"
)

const envPrefix = "SLIDE"

type Config struct {
	viper.Viper
	args []string
}

func DefaultConfig() *Config {
	c := &Config{Viper: *viper.New()}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	w := heuristic.DefaultWeights
	c.SetDefault(ConfigDebug, false)
	c.SetDefault(ConfigIdentity, "")
	c.SetDefault(ConfigDBPath, "./slide.db")
	c.SetDefault(ConfigNatsURL, "nats://localhost:4222")
	c.SetDefault(ConfigBotSubject, bot.DefaultSubject)
	c.SetDefault(ConfigBotTimeout, bot.DefaultTimeout)
	c.SetDefault(ConfigBotAttempts, bot.DefaultAttempts)
	c.SetDefault(ConfigRemoteSearch, false)
	c.SetDefault(ConfigListenAddr, ":8088")
	c.SetDefault(ConfigSearchDepth, search.DefaultDepth)
	c.SetDefault(ConfigSearchAlgorithm, string(search.Expectimax))
	c.SetDefault(ConfigSearchThreads, 1)
	c.SetDefault(ConfigSampleCells, search.DefaultSampleCells)
	c.SetDefault(ConfigWeightsEmpty, w.Empty)
	c.SetDefault(ConfigWeightsSmooth, w.Smooth)
	c.SetDefault(ConfigWeightsMono, w.Mono)
	c.SetDefault(ConfigWeightsMax, w.Max)
	c.SetDefault(ConfigAutoplayInterval, game.DefaultInterval)
	c.SetDefault(ConfigSettleDelay, arbiter.DefaultSettle)
	c.SetDefault(ConfigFastThreshold, arbiter.DefaultFastThreshold)
	c.SetDefault(ConfigSeed, int64(0))
	c.SetDefault(ConfigCPUProfile, "")
}

// Load reads, in increasing precedence: defaults, an optional config file
// (--config), SLIDE_* environment variables, and command-line flags.
func (c *Config) Load(args []string) error {
	c.Viper = *viper.New()
	c.setDefaults()

	fs := pflag.NewFlagSet("slide", pflag.ContinueOnError)
	fs.String(ConfigConfigFile, "", "path to a yaml config file")
	fs.Bool(ConfigDebug, false, "debug logging on")
	fs.String(ConfigIdentity, "", "player identity used to record results; empty plays anonymously")
	fs.String(ConfigDBPath, c.GetString(ConfigDBPath), "sqlite database for results")
	fs.String(ConfigNatsURL, c.GetString(ConfigNatsURL), "the NATS server URL")
	fs.String(ConfigBotSubject, c.GetString(ConfigBotSubject), "NATS subject the bot answers on")
	fs.Duration(ConfigBotTimeout, c.GetDuration(ConfigBotTimeout), "timeout for a single bot request")
	fs.Int(ConfigBotAttempts, c.GetInt(ConfigBotAttempts), "attempts per bot request")
	fs.Bool(ConfigRemoteSearch, false, "ask the bot over NATS instead of searching in-process")
	fs.String(ConfigListenAddr, c.GetString(ConfigListenAddr), "address the server listens on")
	fs.Int(ConfigSearchDepth, c.GetInt(ConfigSearchDepth), "search depth")
	fs.String(ConfigSearchAlgorithm, c.GetString(ConfigSearchAlgorithm), "search algorithm")
	fs.Int(ConfigSearchThreads, c.GetInt(ConfigSearchThreads), "goroutines used at the search root")
	fs.Int(ConfigSampleCells, c.GetInt(ConfigSampleCells), "spawn cells sampled per chance node")
	fs.Duration(ConfigAutoplayInterval, c.GetDuration(ConfigAutoplayInterval), "wait between autonomous turns")
	fs.Duration(ConfigSettleDelay, c.GetDuration(ConfigSettleDelay), "pause after every resolved move")
	fs.Duration(ConfigFastThreshold, c.GetDuration(ConfigFastThreshold), "autoplay intervals below this skip the settle pause")
	fs.Int64(ConfigSeed, 0, "random seed; 0 seeds from entropy")
	fs.String(ConfigCPUProfile, "", "write a CPU profile to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.BindPFlags(fs); err != nil {
		return err
	}
	c.args = fs.Args()

	c.SetEnvPrefix(envPrefix)
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	c.AutomaticEnv()

	if path := c.GetString(ConfigConfigFile); path != "" {
		c.SetConfigFile(path)
		if err := c.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	return nil
}

// Args are the positional arguments left after flag parsing.
func (c *Config) Args() []string {
	return c.args
}

// Weights are the evaluator weights from the weights.* keys.
func (c *Config) Weights() heuristic.Weights {
	return heuristic.Weights{
		Empty:  c.GetFloat64(ConfigWeightsEmpty),
		Smooth: c.GetFloat64(ConfigWeightsSmooth),
		Mono:   c.GetFloat64(ConfigWeightsMono),
		Max:    c.GetFloat64(ConfigWeightsMax),
	}
}

func (c *Config) SearchOptions() search.Options {
	return search.Options{
		Depth:       c.GetInt(ConfigSearchDepth),
		Algorithm:   search.ParseAlgorithm(c.GetString(ConfigSearchAlgorithm)),
		Weights:     c.Weights(),
		SampleCells: c.GetInt(ConfigSampleCells),
		Threads:     c.GetInt(ConfigSearchThreads),
		Seed:        c.GetInt64(ConfigSeed),
	}
}

func (c *Config) GameSettings() game.Settings {
	return game.Settings{
		Identity:  c.GetString(ConfigIdentity),
		Depth:     c.GetInt(ConfigSearchDepth),
		Algorithm: search.ParseAlgorithm(c.GetString(ConfigSearchAlgorithm)),
		Weights:   c.Weights(),
		Interval:  c.GetDuration(ConfigAutoplayInterval),
		Pacing: arbiter.Pacing{
			Settle:        c.GetDuration(ConfigSettleDelay),
			FastThreshold: c.GetDuration(ConfigFastThreshold),
		},
	}
}

// SanitizedSettings is every setting, safe to log. Credentials embedded in
// the NATS URL are masked.
func (c *Config) SanitizedSettings() map[string]any {
	out := c.AllSettings()
	if u := c.GetString(ConfigNatsURL); strings.Contains(u, "@") {
		out[ConfigNatsURL] = "nats://*****@" + u[strings.LastIndex(u, "@")+1:]
	}
	return out
}
