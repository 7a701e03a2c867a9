package main

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lazerdave/shipping-forecast-recorder/internal/capture"
	"github.com/lazerdave/shipping-forecast-recorder/internal/config"
	"github.com/lazerdave/shipping-forecast-recorder/internal/cutpoint"
	"github.com/lazerdave/shipping-forecast-recorder/internal/logging"
	"github.com/lazerdave/shipping-forecast-recorder/internal/notifications"
	"github.com/lazerdave/shipping-forecast-recorder/internal/publish"
	"github.com/lazerdave/shipping-forecast-recorder/internal/receiver"
	"github.com/lazerdave/shipping-forecast-recorder/internal/run"
	"github.com/lazerdave/shipping-forecast-recorder/internal/scan"
	"github.com/lazerdave/shipping-forecast-recorder/internal/trim"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.loggerOnce.Do(func() {
		logger, logErr := logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		})
		if logErr != nil {
			c.configErr = logErr
			return
		}
		c.logger = logger
	})
	if c.logger == nil {
		return nil, c.configErr
	}
	return c.logger, nil
}

// buildOrchestrator wires the full pipeline against the loaded config. The
// returned cleanup closes the run store.
func (c *commandContext) buildOrchestrator() (*run.Orchestrator, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}

	store, err := run.Open(cfg)
	if err != nil {
		return nil, nil, err
	}

	client := receiver.NewExecClient(
		cfg.Receiver.RecorderBinary,
		cfg.Receiver.FrequencyKHz,
		cfg.Receiver.Mode,
		time.Duration(cfg.Receiver.ConnectTimeout)*time.Second,
	)
	directory := receiver.NewDirectory(
		cfg.Receiver.SeedHosts,
		cfg.Receiver.DiscoveryFeeds,
		cfg.Receiver.LocationKeywords,
		cfg.Receiver.HostHints,
		cfg.Receiver.AllowedPorts,
		logger,
	)
	notifier := notifications.NewService(cfg.Notifications)

	sinks := []publish.Sink{&publish.NotificationSink{Service: notifier}}
	if cfg.Publish.ArchiveDir != "" {
		sinks = append(sinks, &publish.ArchiveSink{Root: cfg.Publish.ArchiveDir})
	}
	if cfg.Publish.WriteSidecar {
		sinks = append(sinks, publish.SidecarSink{})
	}
	dispatcher := publish.NewDispatcher(logger,
		time.Duration(cfg.Publish.TimeoutSeconds)*time.Second,
		cfg.Publish.MaxRetries,
		sinks...,
	)

	orch := run.NewOrchestrator(cfg, run.Deps{
		Store:      store,
		Directory:  directory,
		Scanner:    scan.NewScanner(client, cfg.Scan, cfg.Receiver.FrequencyKHz, logger),
		Scans:      scan.NewStore(cfg.Paths.ScanDir),
		Session:    capture.NewSession(client, cfg.Recording, cfg.Receiver, cfg.Scan.QualityFloorDB, cfg.Paths.StagingDir, logger),
		Detector:   cutpoint.NewDetector(cfg.Detection, logger),
		Trimmer:    trim.NewTrimmer(cfg.Trim, logger),
		Dispatcher: dispatcher,
		Notifier:   notifier,
		Logger:     logger,
	})
	// Drain in-flight sink deliveries before the process exits.
	cleanup := func() {
		dispatcher.Wait()
		_ = store.Close()
	}
	return orch, cleanup, nil
}

func (c *commandContext) notifier() (notifications.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return notifications.NewService(cfg.Notifications), nil
}
