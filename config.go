package orbital

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/spf13/viper"
)

const (
	// ConfigEnv is the environment variable holding the configuration directory.
	ConfigEnv = "ORBITAL_CONFIG"
	// ConfigName is the name of the configuration file, without extension.
	ConfigName = "orbital"
)

// Config is the session configuration.
type Config struct {
	Body            string
	Debug           bool          // Enables the planner invariant checks.
	TickStep        time.Duration // Simulated time between two ticks.
	StartMargin     time.Duration // Minimum lead time of the first maneuver when starting a trajectory.
	NearingWindow   time.Duration // How early before the last maneuver the player is "nearing" it.
	PhasingAltitude float64       // Default phasing altitude in km.
	LogFormat       string        // logfmt or json
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.body", "earth")
	v.SetDefault("general.debug", false)
	v.SetDefault("general.log_format", "logfmt")
	v.SetDefault("simulation.tick", 100*time.Millisecond)
	v.SetDefault("simulation.start_margin", time.Second)
	v.SetDefault("simulation.nearing_window", 30*time.Second)
	v.SetDefault("planner.phasing_altitude", 500.0)
}

// LoadConfig reads orbital.toml from the provided directory, or from the
// directory in ORBITAL_CONFIG if empty. A missing file yields the defaults.
func LoadConfig(dir string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	if dir == "" {
		dir = os.Getenv(ConfigEnv)
	}
	if dir != "" {
		v.SetConfigName(ConfigName)
		v.SetConfigType("toml")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("%s/%s.toml: %w", dir, ConfigName, err)
			}
		}
	}
	return ConfigFromViper(v)
}

// ConfigFromViper reads the configuration from an already loaded viper instance.
func ConfigFromViper(v *viper.Viper) (Config, error) {
	setDefaults(v)
	conf := Config{
		Body:            v.GetString("general.body"),
		Debug:           v.GetBool("general.debug"),
		LogFormat:       v.GetString("general.log_format"),
		TickStep:        v.GetDuration("simulation.tick"),
		StartMargin:     v.GetDuration("simulation.start_margin"),
		NearingWindow:   v.GetDuration("simulation.nearing_window"),
		PhasingAltitude: v.GetFloat64("planner.phasing_altitude"),
	}
	if conf.TickStep <= 0 {
		return Config{}, fmt.Errorf("invalid tick step %s", conf.TickStep)
	}
	if conf.StartMargin <= 0 || conf.NearingWindow < 0 {
		return Config{}, fmt.Errorf("invalid margins %s, %s", conf.StartMargin, conf.NearingWindow)
	}
	if conf.PhasingAltitude <= 0 {
		return Config{}, fmt.Errorf("invalid phasing altitude %f km", conf.PhasingAltitude)
	}
	if _, err := conf.CelestialBody(); err != nil {
		return Config{}, err
	}
	return conf, nil
}

// CelestialBody returns the configured body.
func (c Config) CelestialBody() (CelestialBody, error) {
	return CelestialBodyFromString(c.Body)
}

// NewLogger returns a logger writing to w in the provided format.
func NewLogger(w io.Writer, format string) kitlog.Logger {
	var logger kitlog.Logger
	switch format {
	case "json":
		logger = kitlog.NewJSONLogger(kitlog.NewSyncWriter(w))
	default:
		logger = kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
	}
	return kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)
}
