package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/amitbet/irbridge/bridge"
	"github.com/amitbet/irbridge/config"
	"github.com/amitbet/irbridge/devices/broadlinkrm"
	"github.com/amitbet/irbridge/ircode"
	"github.com/amitbet/irbridge/ircontrol"
	"github.com/amitbet/irbridge/util"
	"github.com/kardianos/service"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	exitOK = iota
	exitDeviceFailure
	exitUsage
)

// usageError marks bad arguments so they map to exitUsage.
type usageError struct {
	error
}

func (u usageError) Cause() error { return u.error }

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case ircode.IsInvalid(err):
		return exitUsage
	}
	if _, ok := err.(usageError); ok {
		return exitUsage
	}
	return exitDeviceFailure
}

type cli struct {
	configFile string
	v          *viper.Viper
	logger     service.Logger
}

func (c *cli) loadConfig() (*config.Config, error) {
	file := c.configFile
	if file == "" {
		// services start in another working directory
		exePath, err := os.Executable()
		if err == nil {
			exeDir, _ := util.PathSplit(exePath)
			if candidate := filepath.Join(exeDir, "config.json"); util.FileExists(candidate) {
				file = candidate
			}
		}
	}
	cfg, err := config.Load(c.v, file)
	if err != nil {
		return nil, err
	}
	if file != "" {
		c.logger.Infof("read config: %s", file)
	}
	return cfg, nil
}

// bindFlags maps flag names onto config keys so flags override file and env values.
func (c *cli) bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := c.v.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func newRootCommand() *cobra.Command {
	c := &cli{v: config.New(), logger: service.ConsoleLogger}

	root := &cobra.Command{
		Use:           "irbridge",
		Short:         "Learn and replay Broadlink IR codes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "path to config file (json or yaml)")
	root.PersistentFlags().Int("port", config.DefaultPort, "device UDP port")
	root.PersistentFlags().String("mac", config.DefaultMACAddress, "device MAC address")
	root.PersistentFlags().Uint16("type", config.DefaultDeviceType, "device type id")
	root.PersistentFlags().Duration("timeout", config.DefaultTimeout, "device communication timeout")
	c.bindFlags(root.PersistentFlags(), map[string]string{
		"port":    "device.port",
		"mac":     "device.macAddress",
		"type":    "device.type",
		"timeout": "device.timeout",
	})

	root.AddCommand(
		newLearnCommand(c),
		newSendCommand(c),
		newServeCommand(c),
		newServiceCommand(c),
	)
	return root
}

func newLearnCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn [host]",
		Short: "Capture codes from a remote and print them as hex",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return usageError{err}
			}
			host := cfg.Device.Host
			if len(args) == 1 {
				host = args[0]
			}
			if host == "" {
				return usageError{errors.New("device host is required (argument or device.host)")}
			}

			dev, err := broadlinkrm.Dial(cfg.Device, host)
			if err != nil {
				return err
			}
			return ircontrol.Learn(dev, os.Stdin, os.Stdout, os.Stderr, ircontrol.LearnOptions{Window: cfg.LearnWindow})
		},
	}
	cmd.Flags().Duration("window", ircontrol.DefaultLearnWindow, "time to press the remote button")
	c.bindFlags(cmd.Flags(), map[string]string{"window": "learnWindow"})
	return cmd
}

func newSendCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "send <host> <command_hex>",
		Short: "Send a hex encoded code once",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(2)(cmd, args); err != nil {
				return usageError{err}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return usageError{err}
			}
			return ircontrol.Send(broadlinkrm.Dialer(cfg.Device), args[0], args[1])
		},
	}
}

func (c *cli) newServer() (*bridge.HomeControlServer, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, usageError{err}
	}
	if cfg.Device.Host == "" {
		return nil, usageError{errors.New("device.host is required to serve")}
	}
	dev := broadlinkrm.NewBroadlinkDevice(cfg.Device)
	return bridge.NewHomeControlServer(cfg, dev, c.logger), nil
}

func (c *cli) serviceConfig() *service.Config {
	args := []string{"serve"}
	if c.configFile != "" {
		args = append(args, "--config", c.configFile)
	}
	return &service.Config{
		Name:        "irbridge",
		DisplayName: "IR Bridge",
		Description: "REST bridge for a Broadlink IR learning device",
		Arguments:   args,
	}
}

func newServeCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST bridge (foreground or under the service manager)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := c.newServer()
			if err != nil {
				return err
			}
			if !service.Interactive() {
				svc, err := service.New(srv, c.serviceConfig())
				if err != nil {
					return err
				}
				return svc.Run()
			}

			sigTerm := make(chan os.Signal, 1)
			signal.Notify(sigTerm, syscall.SIGTERM, syscall.SIGINT)
			go func() {
				sig := <-sigTerm
				c.logger.Infof("caught sig: %+v", sig)
				srv.Shutdown()
			}()
			return srv.InitServer()
		},
	}
	cmd.Flags().String("listen", config.DefaultListeningAddress, "REST listening address")
	c.bindFlags(cmd.Flags(), map[string]string{"listen": "listeningAddress"})
	return cmd
}

func newServiceCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:       "service <install|uninstall|start|stop|restart>",
		Short:     "Control the bridge as an OS service",
		ValidArgs: service.ControlAction[:],
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				return usageError{err}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := c.newServer()
			if err != nil {
				return err
			}
			svc, err := service.New(srv, c.serviceConfig())
			if err != nil {
				return err
			}
			if err := service.Control(svc, args[0]); err != nil {
				return usageError{errors.Wrapf(err, "valid actions: %q", service.ControlAction)}
			}
			c.logger.Infof("service %s: done", args[0])
			return nil
		},
	}
}

func main() {
	err := newRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}
