package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"romiserial/host/client"
	"romiserial/host/serial"
	"romiserial/internal/config"
	"romiserial/internal/logging"
)

var (
	// Global flags
	cfgFile  string
	device   string
	baud     int
	backend  string
	logLevel string

	// Set during PersistentPreRun
	cfg *config.Config
	log *zap.Logger

	// dial opens the device connection; tests replace it
	dial = dialSerial
)

var rootCmd = &cobra.Command{
	Use:   "romiserial",
	Short: "Talk to romiserial devices",
	Long: `romiserial sends requests to a device speaking the romiserial protocol,
monitors its traffic, and can serve a simulated device on a serial port.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
		} else {
			cfg = config.Default()
		}

		// Flags override the file
		flags := cmd.Flags()
		if flags.Changed("device") {
			cfg.Serial.Device = device
		}
		if flags.Changed("baud") {
			cfg.Serial.Baud = baud
		}
		if flags.Changed("backend") {
			cfg.Serial.Backend = backend
		}
		if flags.Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if err := logging.Initialize(cfg.Log.Level); err != nil {
			return err
		}
		log = logging.Named("cli")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&device, "device", "d", "", "serial device path")
	rootCmd.PersistentFlags().IntVarP(&baud, "baud", "b", 0, "baud rate (ignored for USB CDC)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "serial backend: tarm or bugst")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error, off")
}

// openSerial opens the configured device as a protocol transport.
func openSerial() (*serial.Transport, error) {
	port, err := serial.Open(&serial.Config{
		Device:      cfg.Serial.Device,
		Baud:        cfg.Serial.Baud,
		ReadTimeout: cfg.Serial.ReadTimeoutMS,
		Backend:     serial.Backend(cfg.Serial.Backend),
	})
	if err != nil {
		return nil, err
	}
	log.Debug("serial port open", zap.String("device", cfg.Serial.Device), zap.Int("baud", cfg.Serial.Baud))
	return serial.NewTransport(port), nil
}

func dialSerial() (*client.Client, error) {
	tr, err := openSerial()
	if err != nil {
		return nil, err
	}
	return client.New(tr, clientConfig()), nil
}

func clientConfig() client.Config {
	cc := client.DefaultConfig()
	cc.Timeout = cfg.Client.Timeout()
	cc.Retries = cfg.Client.Retries
	cc.LogHandler = func(message string) {
		log.Info("device log", zap.String("message", message))
	}
	return cc
}
