package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/dnldd/chartwindow/service"
	"github.com/dnldd/chartwindow/shared"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// logMaxSize is the size in megabytes a log file grows to before rotation.
	logMaxSize = 10
	// logMaxBackups is the number of rotated log files retained.
	logMaxBackups = 30
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

// setupLogger creates the application logger, writing to the console and, when a log file
// is configured, a rotating log file.
func setupLogger(cfg *Config) (*zerolog.Logger, func() error, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}}

	closer := func() error { return nil }
	if cfg.LogFile != "" {
		err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755)
		if err != nil {
			return nil, nil, err
		}

		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    logMaxSize,
			MaxBackups: logMaxBackups,
			Compress:   true,
		}
		writers = append(writers, rotator)
		closer = rotator.Close
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(level).
		With().Timestamp().Logger()

	return &logger, closer, nil
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Printf("loading config:%v", err)
		return
	}

	logger, logCloser, err := setupLogger(&cfg)
	if err != nil {
		log.Printf("setting up logger: %v", err)
		return
	}
	defer logCloser()

	// The period was validated when loading the config.
	period, _ := shared.ParsePeriod(cfg.Period)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chartCfg := service.ChartConfig{
		Symbol:           cfg.Symbol,
		Period:           period,
		DataEndpoint:     cfg.DataEndpoint,
		APIKey:           cfg.APIKey,
		DataFilepath:     cfg.DataFilepath,
		PollInterval:     time.Duration(cfg.PollInterval) * time.Second,
		IntradayDayLimit: cfg.IntradayDayLimit,
		AllowOverscroll:  cfg.AllowOverscroll,
		MetricsAddress:   cfg.MetricsAddress,
		Logger:           logger,
	}
	chart, err := service.NewChart(&chartCfg)
	if err != nil {
		logger.Error().Msgf("creating chart service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	chart.Run(ctx)
}
