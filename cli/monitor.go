package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/viperML/bms-lock/bluetooth"
	"github.com/viperML/bms-lock/config"
	"github.com/viperML/bms-lock/display"
	"github.com/viperML/bms-lock/serial"
	"github.com/viperML/bms-lock/utils"
)

type monitorFlags struct {
	target  string
	adapter string
	channel uint8
	display string
	device  string
}

func newMonitorCmd(transport, use, short string, aliases ...string) *cobra.Command {
	var flags monitorFlags

	cmd := &cobra.Command{
		Use:     use,
		Aliases: aliases,
		Short:   short,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(func(cfg *config.Config) {
				cfg.Transport = transport
				if cmd.Flags().Changed("target") {
					cfg.Target = flags.target
				}
				if cmd.Flags().Changed("adapter") {
					cfg.Bluetooth.Adapter = flags.adapter
				}
				if cmd.Flags().Changed("channel") {
					cfg.Bluetooth.SPPChannel = flags.channel
				}
				if cmd.Flags().Changed("display") {
					cfg.Display.Backend = flags.display
				}
				if cmd.Flags().Changed("device") {
					cfg.Serial.Device = flags.device
				}
			})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			err = runMonitor(ctx, cancel, a)
			if errors.Is(err, bluetooth.ErrAdapterUnavailable) {
				a.log.Error("Bluetooth initialisation failed", zap.Error(err))
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&flags.target, "target", "t", "", "Peer MAC address (AA:BB:CC:DD:EE:FF)")
	cmd.Flags().StringVar(&flags.adapter, "adapter", bluetooth.DefaultAdapter, "Bluetooth adapter")
	cmd.Flags().StringVar(&flags.display, "display", display.BackendNone, "Status display backend (none/fb/png/tui)")
	cmd.Flags().StringVar(&flags.device, "device", "", "Serial device for the status log (default stdout)")
	if transport == bluetooth.TransportSPP {
		cmd.Flags().Uint8Var(&flags.channel, "channel", bluetooth.DefaultSPPChannel, "RFCOMM channel")
	}
	return cmd
}

func runMonitor(ctx context.Context, cancel context.CancelFunc, a *app) error {
	cfg := a.cfg

	mac, err := cfg.TargetMAC()
	if err != nil {
		return err
	}

	bluez, err := bluetooth.NewBlueZ(cfg.Bluetooth.Adapter, a.log)
	if err != nil {
		return err
	}
	defer bluez.Close()

	if err := bluez.CheckAdapter(ctx); err != nil {
		return err
	}

	link, err := newLink(cfg, mac, bluez, a.log)
	if err != nil {
		return err
	}

	mon := bluetooth.NewMonitor(link, bluetooth.MonitorOptions{
		Cooldown:       cfg.Retry.Cooldown,
		PollInterval:   cfg.Retry.PollInterval,
		ConnectTimeout: cfg.Bluetooth.ConnectTimeout,
		Logger:         a.log,
		ResolveName:    bluez.DeviceName,
	},
		serial.NewStatusLog(a.out),
		a.metrics.Observer(),
		utils.NewBroadcaster(a.hub),
	)

	closeDisplay, err := attachDisplay(cancel, cfg, mon, a.log)
	if err != nil {
		return err
	}

	serverErr := a.startServer(ctx, mon)

	a.log.Info("Monitoring peer",
		zap.String("transport", cfg.Transport),
		zap.String("target", mac.String()),
		zap.Duration("cooldown", mon.Cooldown()),
		zap.String("display", cfg.Display.Backend),
		zap.Bool("server", cfg.Server.Enabled))

	runErr := mon.Run(ctx)
	cancel()
	closeDisplay()

	if err := <-serverErr; err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func newLink(cfg *config.Config, mac bluetooth.MAC, bluez *bluetooth.BlueZ, log *zap.Logger) (bluetooth.Link, error) {
	switch cfg.Transport {
	case bluetooth.TransportSPP:
		return bluetooth.NewSPPLink(mac, cfg.Bluetooth.SPPChannel, bluez, log)
	case bluetooth.TransportBLE:
		link, err := bluetooth.NewBLELink(mac, bluez.Adapter(), bluez, log)
		if err != nil {
			return nil, err
		}
		if err := link.Enable(); err != nil {
			return nil, err
		}
		return link, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// attachDisplay registers the configured status screen as a monitor observer and returns its
// cleanup. Quitting the terminal UI cancels the monitor.
func attachDisplay(cancel context.CancelFunc, cfg *config.Config, mon *bluetooth.Monitor, log *zap.Logger) (func(), error) {
	if cfg.Display.Backend == display.BackendTUI {
		tui := display.NewTUI(cfg.Display.Title, mon.Status())
		done := make(chan struct{})
		go func() {
			defer close(done)
			defer cancel()
			if err := tui.Run(); err != nil {
				log.Warn("Terminal UI failed", zap.Error(err))
			}
		}()
		mon.AddObserver(tui)
		return func() {
			tui.Quit()
			<-done
		}, nil
	}

	d, err := display.New(cfg.Display.Backend, display.Options{
		Device: cfg.Display.FBDevice,
		Path:   cfg.Display.PNGPath,
		Width:  cfg.Display.Width,
		Height: cfg.Display.Height,
	})
	if err != nil {
		return nil, err
	}
	if d == nil {
		return func() {}, nil
	}

	mon.AddObserver(display.NewRenderer(d, cfg.Display.Title, log))
	return func() {
		if err := d.Close(); err != nil {
			log.Warn("Failed to close display", zap.Error(err))
		}
	}, nil
}

func init() {
	rootCmd.AddCommand(newMonitorCmd(bluetooth.TransportSPP, "spp",
		"Keep a Bluetooth Classic SPP connection to the BMS"))
	rootCmd.AddCommand(newMonitorCmd(bluetooth.TransportBLE, "ble",
		"Hold a BLE connection to the BMS so no other device can connect", "lock"))
}
