package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"romiserial/internal/config"
	"romiserial/internal/logging"
	"romiserial/internal/observability"
	"romiserial/peripherals"
	"romiserial/protocol"
)

var pollInterval time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a simulated device on the serial port",
	Long: `Run the device side of the protocol on the serial port: motors, stepper
axes, display, battery monitor and IMU, with the I2C peripherals simulated
in memory. Prometheus metrics are served on metrics.listen.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		tr, err := openSerial()
		if err != nil {
			return err
		}
		defer tr.Close()

		reg, err := simulatedDevice(cfg.Peripherals)
		if err != nil {
			return err
		}
		defer reg.Close()

		table := reg.Table()
		if err := table.Validate(); err != nil {
			return err
		}
		for _, line := range table.Describe() {
			log.Info("handler", zap.String("signature", line))
		}

		if cfg.Metrics.Listen != "" {
			srv := startMetrics(cfg.Metrics.Listen)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		engine := protocol.NewEngine(tr, table, engineOptions(cfg.Engine)...)
		log.Info("serving", zap.String("device", cfg.Serial.Device))
		return runEngine(ctx, engine, pollInterval)
	},
}

func init() {
	serveCmd.Flags().DurationVar(&pollInterval, "poll", time.Millisecond, "engine poll interval")
	rootCmd.AddCommand(serveCmd)
}

// peripheralConfig maps the file configuration onto the device one.
func peripheralConfig(p config.PeripheralsConfig) peripherals.Config {
	return peripherals.Config{
		IMU:           p.IMU.Enabled,
		IMUAddr:       p.IMU.Address,
		Battery:       p.Battery.Enabled,
		BatteryAddr:   p.Battery.Address,
		Display:       p.Display.Enabled,
		DisplayAddr:   p.Display.Address,
		DisplayWidth:  p.Display.Width,
		DisplayHeight: p.Display.Height,
		MaxSpeed:      p.Motors.MaxSpeed,
		Limits:        p.Stepper.Limits,
		MaxFeed:       p.Stepper.MaxFeed,
	}
}

// simulatedDevice registers the peripherals on an in-memory I2C bus loaded
// with resting sensor values.
func simulatedDevice(p config.PeripheralsConfig) (*peripherals.Registry, error) {
	pc := peripheralConfig(p)
	bus := peripherals.NewMemoryBus()
	peripherals.Simulate(bus, pc, peripherals.RestingReading)
	return peripherals.New(pc, bus, &peripherals.MemoryMotors{}, &peripherals.MemoryAxes{})
}

func engineOptions(ec config.EngineConfig) []protocol.EngineOption {
	opts := []protocol.EngineOption{
		protocol.WithObserver(observability.NewRecorder(logging.Named("engine"))),
	}
	if ec.LegacyIDSentinel {
		opts = append(opts, protocol.WithLegacyIDSentinel())
	}
	return opts
}

func startMetrics(addr string) *http.Server {
	observability.RegisterMetrics()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	log.Info("metrics listening", zap.String("addr", addr))
	return srv
}

// runEngine polls the engine until ctx is done or the transport fails.
func runEngine(ctx context.Context, engine *protocol.Engine, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := engine.Poll(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
