package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"codeberg.org/mutker/daviscap/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	AppName         = "daviscap"
	EnvPrefix       = "DAVISCAP"
	ConfigEnv       = EnvPrefix + "_CONFIG"
	DefaultLogLevel = string(LogLevelInfo)

	defaultConfigDir  = "/etc"
	defaultDriver     = "replay"
	defaultPacketSize = 4096
	defaultStatsDB    = "/var/lib/daviscap/stats.db"
)

type Config struct {
	// Positional arguments
	EventsPath string `mapstructure:"-"`
	FramesPath string `mapstructure:"-"`

	LogLevel string       `mapstructure:"log_level"`
	Progress bool         `mapstructure:"progress"`
	PIDFile  string       `mapstructure:"pid_file"`
	Device   DeviceConfig `mapstructure:"device"`
	Stats    StatsConfig  `mapstructure:"stats"`
}

type DeviceConfig struct {
	Driver       string `mapstructure:"driver"`
	ReplayEvents string `mapstructure:"replay_events"`
	ReplayFrames string `mapstructure:"replay_frames"`
	PacketSize   int    `mapstructure:"packet_size"`
}

type StatsConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	DBPath          string `mapstructure:"db_path"`
	BatchSize       int    `mapstructure:"batch_size"`
	BatchTimeout    int    `mapstructure:"batch_timeout"`
	BackupOnMigrate bool   `mapstructure:"backup_on_migrate"`
}

// HasFrames reports whether a frame output file was requested.
func (c *Config) HasFrames() bool {
	return c.FramesPath != ""
}

// flag name -> config key
var flagKeys = map[string]string{
	"log-level":     "log_level",
	"progress":      "progress",
	"pid-file":      "pid_file",
	"driver":        "device.driver",
	"replay-events": "device.replay_events",
	"replay-frames": "device.replay_frames",
	"packet-size":   "device.packet_size",
	"stats":         "stats.enabled",
	"stats-db":      "stats.db_path",
}

func newFlagSet() (*pflag.FlagSet, *string) {
	fs := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false

	configFile := fs.String("config", "", "Path to a TOML config file (default "+defaultConfigDir+"/"+AppName+".toml)")
	fs.String("log-level", DefaultLogLevel, "Log level: debug, info, warning or error")
	fs.Bool("progress", true, "Show the latest device timestamp on the terminal")
	fs.String("pid-file", "", "PID file guarding against concurrent captures")
	fs.String("driver", defaultDriver, "Device driver")
	fs.String("replay-events", "", "Events file replayed by the replay driver")
	fs.String("replay-frames", "", "Frames file replayed by the replay driver")
	fs.Int("packet-size", defaultPacketSize, "Polarity events per packet for the replay driver")
	fs.Bool("stats", false, "Record closed rate windows in the stats database")
	fs.String("stats-db", defaultStatsDB, "Path to the stats database")

	return fs, configFile
}

// Usage writes the command line help to w.
func Usage(w io.Writer) {
	fs, _ := newFlagSet()
	fmt.Fprintf(w, "Usage: %s [flags] <events-file> [frames-file]\n\nFlags:\n", AppName)
	fmt.Fprint(w, fs.FlagUsages())
}

// Load parses args (without the program name), then merges flags, the
// environment, the config file and defaults, in that order of precedence.
func Load(args []string) (*Config, error) {
	errFactory := errors.New()

	fs, configFile := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrUsage, err)
	}

	positional := fs.Args()
	if len(positional) != 1 && len(positional) != 2 {
		return nil, errFactory.WithData(errors.ErrUsage, fmt.Sprintf("got %d", len(positional)))
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := *configFile
	if path == "" {
		path = os.Getenv(ConfigEnv)
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("toml")
		v.AddConfigPath(defaultConfigDir)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	cfg.EventsPath = positional[0]
	if len(positional) == 2 {
		cfg.FramesPath = positional[1]
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("progress", true)
	v.SetDefault("pid_file", "")
	v.SetDefault("device.driver", defaultDriver)
	v.SetDefault("device.replay_events", "")
	v.SetDefault("device.replay_frames", "")
	v.SetDefault("device.packet_size", defaultPacketSize)
	v.SetDefault("stats.enabled", false)
	v.SetDefault("stats.db_path", defaultStatsDB)
	v.SetDefault("stats.batch_size", 10)
	v.SetDefault("stats.batch_timeout", 5)
	v.SetDefault("stats.backup_on_migrate", true)
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "warn" {
		c.LogLevel = string(LogLevelWarning)
	}
	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if c.EventsPath == "" {
		return errFactory.WithMessage(errors.ErrUsage, "events file name is empty")
	}
	if c.FramesPath != "" && c.FramesPath == c.EventsPath {
		return errFactory.WithMessage(errors.ErrInvalidArgument, "events and frames must go to different files")
	}
	if c.Device.PacketSize <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			Field string
			Value int
		}{
			Field: "device.packet_size",
			Value: c.Device.PacketSize,
		})
	}

	return nil
}
