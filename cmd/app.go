package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Tiliavir/punchsync/internal/classify"
	"github.com/Tiliavir/punchsync/internal/config"
	"github.com/Tiliavir/punchsync/internal/device"
	"github.com/Tiliavir/punchsync/internal/logger"
	"github.com/Tiliavir/punchsync/internal/sender"
	"github.com/Tiliavir/punchsync/internal/syncer"
)

// app holds everything a command needs for one invocation.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	loc     *time.Location
	syncer  *syncer.Syncer
	closers []func() error
}

// newApp loads configuration and wires the pipeline. With send false the
// syncer has no sender and only ClassifyDate/ClassifyRange may be used.
func newApp(cmd *cobra.Command, send bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, loc: loc}
	a.closers = append(a.closers, func() error {
		// Sync on a console fd fails on some platforms; nothing to do about it.
		_ = log.Sync()
		return nil
	})

	log.Debug("configuration loaded",
		zap.String("device", fmt.Sprintf("%s:%d", cfg.Device.Address, cfg.Device.Port)),
		zap.Duration("device_timeout", cfg.Device.Timeout.Duration),
		zap.String("attlog", cfg.Device.AttlogPath),
		zap.String("timezone", loc.String()),
		zap.String("api", cfg.API.BaseURL),
	)

	connector := &device.AttlogConnector{Path: cfg.Device.AttlogPath, DeviceID: cfg.DeviceID()}
	fetcher := device.NewFetcher(connector, loc, log.Named("device"))
	fetcher.Timeout = cfg.Device.Timeout.Duration
	out := cmd.OutOrStdout()

	var snd sender.Sender
	switch {
	case !send:
	case syncDryRun:
		snd = &sender.Printer{Out: out}
	default:
		opts := sender.HTTPOptions{
			BaseURL:      cfg.API.BaseURL,
			Endpoint:     cfg.API.Endpoint,
			Timeout:      cfg.API.Timeout.Duration,
			Token:        cfg.API.Token,
			ClientID:     cfg.API.ClientID,
			ClientSecret: cfg.API.ClientSecret,
			TokenURL:     cfg.API.TokenURL,
		}
		if opts.Token == "" && opts.ClientID == "" {
			log.Warn("no API credential configured; requests will be sent unauthenticated")
		}
		snd = sender.NewHTTPSender(opts.URL(), sender.NewHTTPClient(cmd.Context(), opts), log.Named("api"))
	}

	a.syncer = syncer.New(fetcher, classify.New(loc), snd, out, log)

	if send && !syncDryRun && cfg.Kafka.Enabled() {
		pub := sender.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		a.syncer.Mirror = pub
		a.closers = append(a.closers, pub.Close)
	}
	return a, nil
}

// Close releases what newApp opened, newest first.
func (a *app) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Warn("shutdown", zap.Error(err))
	}
}
