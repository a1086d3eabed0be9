package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sweeney/autoclave-monitor/internal/assistant"
	"github.com/sweeney/autoclave-monitor/internal/config"
	"github.com/sweeney/autoclave-monitor/internal/export"
	"github.com/sweeney/autoclave-monitor/internal/gpio"
	"github.com/sweeney/autoclave-monitor/internal/ingest"
	"github.com/sweeney/autoclave-monitor/internal/logic"
	"github.com/sweeney/autoclave-monitor/internal/metrics"
	"github.com/sweeney/autoclave-monitor/internal/monitor"
	"github.com/sweeney/autoclave-monitor/internal/mqtt"
	"github.com/sweeney/autoclave-monitor/internal/source"
	"github.com/sweeney/autoclave-monitor/internal/status"
	"github.com/sweeney/autoclave-monitor/internal/web"
)

func run(cfg config.Config, log *logrus.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collectors := metrics.New()
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))

	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout == 0 {
		fetchTimeout = cfg.TickPeriod
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	live := source.NewHTTPSource(cfg.FeedURL, fetchTimeout)
	sim := source.NewSimSource(logic.NewSimulator(cfg.Simulator, rand.New(rand.NewSource(seed))))

	asst := assistant.New(newModel(ctx, cfg, log), log)

	notifiers := []monitor.Notifier{monitor.LogNotifier{Log: log}}
	var sinks []monitor.CycleSink
	var observers []monitor.TickObserver

	// Initialize MQTT
	var publisher mqtt.Publisher
	var connStatus mqtt.ConnectionStatus
	if cfg.MQTT.Broker != "" {
		pub, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:     cfg.MQTT.Broker,
			ClientID:   cfg.MQTT.ClientID,
			BufferSize: cfg.MQTT.BufferSize,
			Logger:     log,
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer pub.Close()
		publisher, connStatus = pub, pub
		sinks = append(sinks, pub)
		observers = append(observers, connectionObserver{conn: pub, tracker: tracker})
		if cfg.MQTT.Telemetry {
			observers = append(observers, mqtt.TelemetryObserver{
				Publisher: pub,
				OnError: func(err error) {
					collectors.PublishError("mqtt-telemetry")
					log.WithError(err).Debug("telemetry publish failed")
				},
			})
		}
	}

	if len(cfg.Kafka.Brokers) > 0 {
		exp, err := export.NewKafkaExporter(export.Options{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		if err != nil {
			return fmt.Errorf("init kafka: %w", err)
		}
		defer exp.Close()
		sinks = append(sinks, exp)
	}

	if cfg.Indicator.Line >= 0 {
		ind, err := gpio.NewRealIndicator(cfg.Indicator.Chip, cfg.Indicator.Line)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer ind.Close()
		notifiers = append(notifiers, monitor.PulseNotifier{Indicator: ind, Duration: cfg.Indicator.Pulse, Log: log})
	}

	session, err := monitor.New(monitor.Config{
		TickPeriod:    cfg.TickPeriod,
		Target:        cfg.TargetKillPoints,
		HistoryLength: cfg.HistoryLength,
		MaxCycles:     cfg.MaxCycles,
		InitialSource: cfg.Kind(),
		StartRunning:  cfg.StartRunning,
		FetchTimeout:  fetchTimeout,
	}, monitor.Deps{
		Live:      live,
		Sim:       sim,
		Status:    tracker,
		Insighter: asst,
		Notifiers: notifiers,
		Sinks:     sinks,
		Observers: observers,
		Metrics:   collectors,
		Logger:    log,
		NewID:     uuid.NewString,
	})
	if err != nil {
		return fmt.Errorf("init monitor: %w", err)
	}

	// Publish startup event with full status snapshot
	publishSystem(publisher, connStatus, tracker, time.Now(), mqtt.EventStartup, "", log)

	serverErr := make(chan error, 1)
	if cfg.HTTPAddr != "" {
		var accessLog io.Writer
		if cfg.AccessLog {
			w := log.WriterLevel(logrus.InfoLevel)
			defer w.Close()
			accessLog = w
		}
		srv := web.New(cfg.HTTPAddr, web.Options{
			Tracker:   tracker,
			Control:   session,
			Assistant: asst,
			FeedURL:   cfg.FeedURL,
			Metrics:   collectors,
			Logger:    log,
			AccessLog: accessLog,
		})
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- fmt.Errorf("http server: %w", err)
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			srv.Shutdown(shutdownCtx)
		}()
		log.WithField("addr", cfg.HTTPAddr).Info("dashboard listening")
	}

	sessionDone := make(chan struct{})
	go func() {
		defer close(sessionDone)
		session.Run(ctx)
	}()
	defer func() {
		cancel()
		<-sessionDone
	}()

	log.WithFields(logrus.Fields{
		"tick":      cfg.TickPeriod,
		"source":    cfg.Source,
		"feed":      cfg.FeedURL,
		"broker":    cfg.MQTT.Broker,
		"heartbeat": cfg.MQTT.Heartbeat,
		"kafka":     cfg.Kafka.Brokers,
	}).Info("started")

	var heartbeat <-chan time.Time
	if cfg.MQTT.Heartbeat > 0 && publisher != nil {
		t := time.NewTicker(cfg.MQTT.Heartbeat)
		defer t.Stop()
		heartbeat = t.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return runLoop(publisher, connStatus, tracker, time.Now, heartbeat, sigCh, serverErr, log)
}

// runLoop publishes lifecycle events until a signal arrives or the server fails.
func runLoop(publisher mqtt.Publisher, conn mqtt.ConnectionStatus, tracker *status.Tracker, now func() time.Time, heartbeat <-chan time.Time, sig <-chan os.Signal, failed <-chan error, log logrus.FieldLogger) error {
	for {
		select {
		case s := <-sig:
			log.WithField("signal", s).Info("shutting down")
			publishSystem(publisher, conn, tracker, now(), mqtt.EventShutdown, signalName(s), log)
			return nil

		case err := <-failed:
			publishSystem(publisher, conn, tracker, now(), mqtt.EventShutdown, "ERROR", log)
			return err

		case <-heartbeat:
			snap := tracker.Snapshot()
			log.WithFields(logrus.Fields{
				"uptime":       snap.Uptime().Truncate(time.Second),
				"ticks":        snap.Ticks,
				"fetch_errors": snap.FetchErrors,
				"cycles":       len(snap.Cycles),
			}).Info("heartbeat")
			publishSystem(publisher, conn, tracker, now(), mqtt.EventHeartbeat, "", log)
		}
	}
}

// publishSystem sends a retained status snapshot for a lifecycle event.
// Heartbeats are not retained.
func publishSystem(publisher mqtt.Publisher, conn mqtt.ConnectionStatus, tracker *status.Tracker, t time.Time, event, reason string, log logrus.FieldLogger) {
	if publisher == nil {
		return
	}
	if conn != nil {
		tracker.SetMQTTConnected(conn.IsConnected())
	}
	err := publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  t,
		Event:      event,
		Reason:     reason,
		Retained:   event != mqtt.EventHeartbeat,
		RawPayload: status.FormatStatusEvent(tracker.Snapshot(), event, reason),
	})
	entry := log.WithField("event", event)
	if err != nil {
		entry.WithError(err).Warn("failed to publish system event")
		return
	}
	entry.Debug("published system event")
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// newModel returns the Gemini model, or nil when no key is configured or
// the client cannot be created.
func newModel(ctx context.Context, cfg config.Config, log logrus.FieldLogger) assistant.Model {
	gm, err := assistant.NewGeminiModel(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	switch {
	case errors.Is(err, assistant.ErrNotConfigured):
		log.Info("no Gemini API key, using heuristic insights")
		return nil
	case err != nil:
		log.WithError(err).Warn("gemini unavailable, using heuristic insights")
		return nil
	}
	log.WithField("model", gm.Name()).Info("gemini assistant enabled")
	return gm
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		TickMs:           cfg.TickPeriod.Milliseconds(),
		TargetKillPoints: cfg.TargetKillPoints,
		HistoryLength:    cfg.HistoryLength,
		MaxCycles:        cfg.MaxCycles,
		HeartbeatMs:      cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:           cfg.MQTT.Broker,
		HTTPAddr:         cfg.HTTPAddr,
		FeedURL:          cfg.FeedURL,
	}
}

// connectionObserver mirrors the broker connection state into the tracker
// after every tick.
type connectionObserver struct {
	conn    mqtt.ConnectionStatus
	tracker *status.Tracker
}

func (o connectionObserver) ObserveTick(status.Update) {
	o.tracker.SetMQTTConnected(o.conn.IsConnected())
}

func runIngest(cfg config.Config, log *logrus.Logger) error {
	var accessLog io.Writer
	if cfg.AccessLog {
		w := log.WriterLevel(logrus.InfoLevel)
		defer w.Close()
		accessLog = w
	}
	srv := ingest.New(cfg.IngestAddr, ingest.NewStore(time.Now), log, accessLog)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.WithField("addr", cfg.IngestAddr).Info("ingestion server listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return fmt.Errorf("ingest server: %w", err)
	case s := <-sigCh:
		log.WithField("signal", s).Info("shutting down")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
