package cli

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/viperML/bms-lock/config"
	"github.com/viperML/bms-lock/serial"
	"github.com/viperML/bms-lock/utils"
)

var (
	heartbeatDevice   string
	heartbeatBaud     int
	heartbeatInterval time.Duration
	heartbeatLabel    string
)

var heartbeatCmd = &cobra.Command{
	Use:   "heartbeat",
	Short: "Print a periodic heartbeat on the serial port",
	Long:  "Print a startup banner followed by a \"Hello World!\" line with the uptime in milliseconds on every interval.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(func(cfg *config.Config) {
			if cmd.Flags().Changed("device") {
				cfg.Serial.Device = heartbeatDevice
			}
			if cmd.Flags().Changed("baud") {
				cfg.Serial.BaudRate = heartbeatBaud
			}
			if cmd.Flags().Changed("interval") {
				cfg.Heartbeat.Interval = heartbeatInterval
			}
			if cmd.Flags().Changed("label") {
				cfg.Heartbeat.Label = heartbeatLabel
			}
		})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		broadcaster := utils.NewBroadcaster(a.hub)
		hb := serial.NewHeartbeat(a.out, serial.HeartbeatOptions{
			DeviceLabel:  a.cfg.Heartbeat.Label,
			Interval:     a.cfg.Heartbeat.Interval,
			StartupDelay: a.cfg.Heartbeat.StartupDelay,
			OnBeat: func(count uint64, millis int64) {
				a.metrics.Heartbeats.Inc()
				broadcaster.Heartbeat(count, millis)
			},
		})

		serverErr := a.startServer(ctx, nil)

		a.log.Info("Starting heartbeat",
			zap.String("device", a.cfg.Serial.Device),
			zap.Duration("interval", a.cfg.Heartbeat.Interval))
		if err := hb.Run(ctx); err != nil {
			return err
		}
		cancel()
		return <-serverErr
	},
}

func init() {
	rootCmd.AddCommand(heartbeatCmd)

	heartbeatCmd.Flags().StringVar(&heartbeatDevice, "device", "", "Serial device (default stdout)")
	heartbeatCmd.Flags().IntVar(&heartbeatBaud, "baud", serial.DefaultBaudRate, "Serial baud rate")
	heartbeatCmd.Flags().DurationVar(&heartbeatInterval, "interval", serial.DefaultHeartbeatInterval, "Heartbeat interval")
	heartbeatCmd.Flags().StringVar(&heartbeatLabel, "label", serial.DefaultDeviceLabel, "Device label printed in the banner")
}
