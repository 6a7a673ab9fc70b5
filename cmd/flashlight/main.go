// Command flashlight drives a two-line GPIO torch and exposes it over MQTT and HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"github.com/sweeney/flashlight/internal/config"
	"github.com/sweeney/flashlight/internal/driver"
	"github.com/sweeney/flashlight/internal/gpio"
	"github.com/sweeney/flashlight/internal/hwdesc"
	"github.com/sweeney/flashlight/internal/led"
	"github.com/sweeney/flashlight/internal/logging"
	"github.com/sweeney/flashlight/internal/metrics"
	"github.com/sweeney/flashlight/internal/mqtt"
	"github.com/sweeney/flashlight/internal/status"
	"github.com/sweeney/flashlight/internal/web"
)

const defaultConfigPath = "/etc/flashlight/flashlight.toml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath string
		flagged config.Config
	)

	root := &cobra.Command{
		Use:           "flashlight",
		Short:         "Drive a two-line GPIO torch and expose it over MQTT and HTTP",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd, cfgPath, &flagged)
			if err != nil {
				return err
			}
			source, err := newSource(cfg)
			if err != nil {
				return err
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			return run(cfg, logger, source, openChip, newMQTTClient, sigCh)
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultConfigPath, "TOML configuration file")
	config.BindFlags(root.PersistentFlags(), &flagged)

	root.AddCommand(&cobra.Command{
		Use:   "discover",
		Short: "Print the hardware description node and torch lines, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd, cfgPath, &flagged)
			if err != nil {
				return err
			}
			source, err := newSource(cfg)
			if err != nil {
				return err
			}
			return discover(cmd.OutOrStdout(), cfg, source)
		},
	})
	return root
}

func setup(cmd *cobra.Command, cfgPath string, flagged *config.Config) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgPath, cmd.Flags(), flagged)
	if err != nil {
		return cfg, nil, err
	}
	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Logging)
	if err != nil {
		return cfg, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newSource(cfg config.Config) (hwdesc.Source, error) {
	if cfg.HWDesc.File != "" {
		f, err := hwdesc.LoadFile(cfg.HWDesc.File)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	return hwdesc.NewDeviceTree(cfg.HWDesc.DeviceTree), nil
}

func openChip(name string) (gpio.Chip, error) {
	c, err := gpio.OpenChip(name)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newMQTTClient(opts mqtt.Options) (mqtt.Client, error) {
	return mqtt.NewRealClient(opts)
}

// clientFactory creates the MQTT client; tests substitute a fake.
type clientFactory func(opts mqtt.Options) (mqtt.Client, error)

func discover(w io.Writer, cfg config.Config, source hwdesc.Source) error {
	node, err := source.FindCompatible(cfg.HWDesc.Compatible)
	if err != nil {
		return fmt.Errorf("discover %s: %w", cfg.HWDesc.Compatible, err)
	}
	chip := node.Chip
	if chip == "" {
		chip = cfg.GPIO.Chip + " (default)"
	}
	fmt.Fprintf(w, "node:       %s\n", node.Path)
	fmt.Fprintf(w, "compatible: %v\n", node.Compatible)
	fmt.Fprintf(w, "chip:       %s\n", chip)

	lines := node.Lines(cfg.HWDesc.Property)
	if len(lines) < 2 {
		return fmt.Errorf("%s: %w: %s lists %d lines, need 2", node.Path, gpio.ErrInvalidConfiguration, cfg.HWDesc.Property, len(lines))
	}
	fmt.Fprintf(w, "low:        %d\n", lines[0])
	fmt.Fprintf(w, "high:       %d\n", lines[1])
	return nil
}

func run(cfg config.Config, logger *slog.Logger, source hwdesc.Source, open driver.ChipOpener, newClient clientFactory, sig <-chan os.Signal) error {
	tracker := status.NewTracker(time.Now(), status.Config{
		Compatible: cfg.HWDesc.Compatible,
		Chip:       cfg.GPIO.Chip,
		Broker:     cfg.MQTT.Broker,
		HTTPAddr:   cfg.HTTP.Addr,
	})

	registry := led.NewRegistry(logger)
	registry.Observe(tracker.Observe)
	m := metrics.New()
	registry.Observe(m.Observe)

	// MQTT is optional: an empty broker disables it.
	var bridge *mqtt.Bridge
	var client mqtt.Client
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bridgeDone := make(chan struct{})
	close(bridgeDone)

	if cfg.MQTT.Broker != "" {
		topics := mqtt.NewTopics(cfg.MQTT.TopicPrefix)
		opts := mqtt.Options{
			Broker:             cfg.MQTT.Broker,
			ClientID:           cfg.MQTT.ClientID,
			Logger:             logger,
			OnConnectionChange: tracker.SetMQTTConnected,
		}
		will, err := mqtt.FormatSystemPayload(mqtt.SystemEvent{Timestamp: time.Now(), Event: "OFFLINE"})
		if err != nil {
			logger.Warn("mqtt last will disabled", "error", err)
		} else {
			opts.WillTopic, opts.WillPayload = topics.System, will
		}
		c, err := newClient(opts)
		if err != nil {
			logger.Error("mqtt disabled", "broker", cfg.MQTT.Broker, "error", err)
		} else {
			client = c
			defer client.Close()
			bridge = mqtt.NewBridge(client, topics, registry, led.TorchName, logger)
			registry.Observe(bridge.Observe)
			if err := bridge.Start(); err != nil {
				logger.Error("mqtt bridge start failed", "error", err)
			}
			bridgeDone = make(chan struct{})
			go func() {
				defer close(bridgeDone)
				bridge.Run(ctx)
			}()
		}
	}
	syncMQTTStatus(tracker, client)

	module := driver.New(cfg.Driver(), source, open, registry, logger)
	if err := module.Load(); err != nil {
		if driver.IsFatal(err) {
			cancel()
			<-bridgeDone
			return fmt.Errorf("load torch (errno %d): %w", driver.Code(err), err)
		}
		logger.Warn("torch not activated", "error", err)
		tracker.SetLoadError(err.Error())
	} else {
		tracker.SetHardware(hardwareOf(module))
	}
	defer module.Unload()

	if bridge != nil {
		snap := tracker.Snapshot()
		startup := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := bridge.PublishSystem(startup); err != nil {
			logger.Warn("failed to publish startup event", "error", err)
		} else {
			logger.Info("published startup event")
		}
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, registry, m.Handler(), logger)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			srv.Shutdown(shutdownCtx)
		}()
		logger.Info("http status server listening", "addr", cfg.HTTP.Addr)
	}

	notifySystemd(logger, daemon.SdNotifyReady)
	logger.Info("started", "loaded", module.Loaded(), "broker", cfg.MQTT.Broker, "http", cfg.HTTP.Addr)

	reason := waitForSignal(sig, logger)
	notifySystemd(logger, daemon.SdNotifyStopping)

	// Stop the background publisher so the final state goes out in order.
	cancel()
	<-bridgeDone
	module.Unload()

	if bridge != nil {
		bridge.Flush()
		syncMQTTStatus(tracker, client)
		snap := tracker.Snapshot()
		event := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "SHUTDOWN",
			Reason:     reason,
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", reason),
		}
		if err := bridge.PublishSystem(event); err != nil {
			logger.Warn("failed to publish shutdown event", "error", err)
		} else {
			logger.Info("published shutdown event")
		}
	}
	return nil
}

// notifySystemd sends state to the service manager. Outside systemd it does
// nothing.
func notifySystemd(logger *slog.Logger, state string) {
	ok, err := daemon.SdNotify(false, state)
	if err != nil {
		logger.Warn("sd_notify failed", "state", state, "error", err)
		return
	}
	if ok {
		logger.Debug("notified systemd", "state", state)
	}
}

func waitForSignal(sig <-chan os.Signal, logger *slog.Logger) string {
	s := <-sig
	logger.Info("shutting down", "signal", s)
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func syncMQTTStatus(tracker *status.Tracker, client mqtt.Client) {
	if cs, ok := client.(mqtt.ConnectionStatus); ok {
		tracker.SetMQTTConnected(cs.IsConnected())
	}
}

func hardwareOf(m *driver.Module) *status.Hardware {
	hw := &status.Hardware{Node: m.Node().Path, Chip: m.ChipName()}
	if id, ok := m.Lines().Low().ID(); ok {
		hw.Low = id
	}
	if id, ok := m.Lines().High().ID(); ok {
		hw.High = id
	}
	return hw
}
