package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/dnldd/chartwindow/shared"
	"github.com/dnldd/chartwindow/viewport"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	// defaultPeriod is the sampling period charted when none is configured.
	defaultPeriod = "1D"
	// defaultPollInterval is the default poll interval in seconds.
	defaultPollInterval = 60
	// defaultLogLevel is the default log level.
	defaultLogLevel = "info"
)

// Config is the configuration struct for the service.
type Config struct {
	// Symbol is the charted symbol.
	Symbol string
	// Period is the sampling period, one of 1m, 5m, 15m, 30m, 1H, 1D, 1W, 1M.
	Period string
	// DataEndpoint is the base url of the chart data api.
	DataEndpoint string
	// APIKey is the chart data api key.
	APIKey string
	// DataFilepath is the filepath to a chart data payload replayed instead of the api.
	DataFilepath string
	// PollInterval is the delay between polls for new data, in seconds.
	PollInterval int
	// IntradayDayLimit is the maximum number of trading days an intraday chart may span.
	IntradayDayLimit int
	// AllowOverscroll permits panning past the loaded data.
	AllowOverscroll bool
	// LogFile is the optional filepath of the rotating log file.
	LogFile string
	// LogLevel is the minimum level logged.
	LogLevel string
	// MetricsAddress is the optional listen address of the metrics endpoint.
	MetricsAddress string

	registeredFlags map[string]bool
}

// applyDefaults fills unset optional fields.
func (cfg *Config) applyDefaults() {
	if cfg.Period == "" {
		cfg.Period = defaultPeriod
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.IntradayDayLimit == 0 {
		cfg.IntradayDayLimit = viewport.DefaultIntradayDayLimit
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.Symbol == "" {
		errs = errors.Join(errs, fmt.Errorf("symbol cannot be an empty string"))
	}

	_, err := shared.ParsePeriod(cfg.Period)
	if err != nil {
		errs = errors.Join(errs, fmt.Errorf("invalid period: %w", err))
	}

	switch {
	case cfg.DataEndpoint == "" && cfg.DataFilepath == "":
		errs = errors.Join(errs, fmt.Errorf("either a data endpoint or a data filepath is required"))
	case cfg.DataEndpoint != "" && cfg.DataFilepath != "":
		errs = errors.Join(errs, fmt.Errorf("data endpoint and data filepath are mutually exclusive"))
	}

	if cfg.PollInterval <= 0 {
		errs = errors.Join(errs, fmt.Errorf("poll interval must be positive"))
	}
	if cfg.IntradayDayLimit <= 0 {
		errs = errors.Join(errs, fmt.Errorf("intraday day limit must be positive"))
	}

	_, err = zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		errs = errors.Join(errs, fmt.Errorf("invalid log level: %w", err))
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			var def []string
			if defValue != "" {
				def = strings.Split(defValue, ",")
			}
			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = strings.Split(s, ",")
				return nil
			})
			// Set default if not provided via flag
			if len(def) > 0 {
				*value.(*[]string) = def
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	flags := []struct {
		name  string
		value interface{}
		usage string
	}{
		{"symbol", &cfg.Symbol, "the charted symbol"},
		{"period", &cfg.Period, "the sampling period"},
		{"dataendpoint", &cfg.DataEndpoint, "the chart data api base url"},
		{"apikey", &cfg.APIKey, "the chart data api key"},
		{"datafilepath", &cfg.DataFilepath, "the chart data payload filepath"},
		{"pollinterval", &cfg.PollInterval, "the poll interval in seconds"},
		{"intradaydaylimit", &cfg.IntradayDayLimit, "the maximum trading days of an intraday chart"},
		{"allowoverscroll", &cfg.AllowOverscroll, "the overscroll flag"},
		{"logfile", &cfg.LogFile, "the rotating log filepath"},
		{"loglevel", &cfg.LogLevel, "the minimum log level"},
		{"metricsaddress", &cfg.MetricsAddress, "the metrics endpoint listen address"},
	}
	for _, f := range flags {
		err = cfg.registerFlag(f.name, f.value, f.usage)
		if err != nil {
			return err
		}
	}

	// Parse command-line flags.
	flag.Parse()

	cfg.applyDefaults()

	return cfg.Validate()
}
