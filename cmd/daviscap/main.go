package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"codeberg.org/mutker/daviscap/internal/capture"
	"codeberg.org/mutker/daviscap/internal/config"
	"codeberg.org/mutker/daviscap/internal/device"
	"codeberg.org/mutker/daviscap/internal/errors"
	"codeberg.org/mutker/daviscap/internal/logger"
	"codeberg.org/mutker/daviscap/internal/pid"
	"codeberg.org/mutker/daviscap/internal/ratewindow"
	"codeberg.org/mutker/daviscap/internal/shutdown"
	"codeberg.org/mutker/daviscap/internal/sink"
	"codeberg.org/mutker/daviscap/internal/stats"
	"github.com/spf13/pflag"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	cfg, err := config.Load(args)
	if err != nil {
		return configFailure(err, stderr)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitUsage
	}
	logger.InitWriter(stderr, level, logger.IsService())
	logger.Debug().Str("events", cfg.EventsPath).Str("frames", cfg.FramesPath).Msg("Config loaded")

	pidPath := cfg.PIDFile
	if pidPath == "" {
		pidPath = pid.DefaultPath()
	}
	if err := pid.Write(pidPath); err != nil {
		logError(err, "failed to write PID file")
		return exitError
	}
	defer func() {
		if err := pid.Remove(pidPath); err != nil {
			logger.Warn().Err(err).Msg("failed to remove PID file")
		}
	}()

	sig := shutdown.New()
	stopSignals := shutdown.Notify(sig)
	defer stopSignals()

	events, frames, err := openSinks(cfg)
	if err != nil {
		logError(err, "failed to open output file")
		return exitError
	}

	recorder, err := stats.NewService(statsConfig(cfg), logger.Default())
	if err != nil {
		closeSinks(events, frames)
		logError(err, "failed to initialize stats store")
		return exitError
	}
	defer func() {
		if err := recorder.Close(); err != nil {
			logError(err, "failed to close stats store")
		}
	}()

	dev, err := device.Open(deviceConfig(cfg), sig.Trigger)
	if err != nil {
		closeSinks(events, frames)
		logError(err, "failed to open device")
		return exitError
	}

	progress := logger.NewProgress(cfg.Progress)
	loop := capture.New(dev, sig, events, frames,
		capture.WithProgress(progress),
		capture.WithSummary(func(s ratewindow.Summary, ts int32) {
			if err := recorder.Record(stats.FromSummary(s, ts, time.Now())); err != nil {
				logger.Warn().Err(err).Msg("failed to record rate window")
			}
		}),
	)

	logger.Info().Msg("Capturing, press Ctrl+C to stop")
	totals, err := loop.Run()
	progress.Break()
	logTotals(totals)

	if err != nil {
		logError(err, "capture stopped on error")
		return exitError
	}

	logger.Info().Msg("Shutdown successful.")
	return exitOK
}

func configFailure(err error, stderr io.Writer) int {
	if errors.Is(err, pflag.ErrHelp) {
		config.Usage(stderr)
		return exitOK
	}

	fmt.Fprintf(stderr, "%v\n", err)
	switch errors.CodeOf(err) {
	case errors.ErrUsage, errors.ErrInvalidArgument, errors.ErrInvalidLogLevel:
		config.Usage(stderr)
		return exitUsage
	default:
		return exitError
	}
}

func openSinks(cfg *config.Config) (*sink.EventSink, *sink.FrameSink, error) {
	events, err := sink.CreateEventSink(cfg.EventsPath)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.HasFrames() {
		return events, nil, nil
	}

	frames, err := sink.CreateFrameSink(cfg.FramesPath)
	if err != nil {
		closeSinks(events, nil)
		return nil, nil, err
	}
	return events, frames, nil
}

func closeSinks(events *sink.EventSink, frames *sink.FrameSink) {
	if err := events.Close(); err != nil {
		logger.Warn().Err(err).Msg("failed to close events file")
	}
	if frames != nil {
		if err := frames.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close frames file")
		}
	}
}

func deviceConfig(cfg *config.Config) device.Config {
	return device.Config{
		Driver:       cfg.Device.Driver,
		ReplayEvents: cfg.Device.ReplayEvents,
		ReplayFrames: cfg.Device.ReplayFrames,
		PacketSize:   cfg.Device.PacketSize,
	}
}

func statsConfig(cfg *config.Config) stats.Config {
	return stats.Config{
		Enabled:         cfg.Stats.Enabled,
		DBPath:          cfg.Stats.DBPath,
		BatchSize:       cfg.Stats.BatchSize,
		BatchTimeout:    cfg.Stats.BatchTimeout,
		BackupOnMigrate: cfg.Stats.BackupOnMigrate,
	}
}

func logError(err error, msg string) {
	var appErr errors.Error
	if errors.As(err, &appErr) {
		logger.ErrorWithCode(appErr).Msg(msg)
		return
	}
	logger.Error().Err(err).Msg(msg)
}

func logTotals(t capture.Totals) {
	logger.Info().
		Uint64("containers", t.Containers).
		Uint64("empty_fetches", t.EmptyFetch).
		Uint64("polarity_packets", t.PolarityPackets).
		Uint64("polarity_events", t.PolarityEvents).
		Uint64("frame_events", t.FrameEvents).
		Uint64("frames_written", t.FramesWritten).
		Uint64("skipped_packets", t.Skipped).
		Int64("events_bytes", t.EventBytes).
		Int64("frames_bytes", t.FrameBytes).
		Msg("Capture finished")
}
