package config

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/amitbet/irbridge/ircode"
	"github.com/amitbet/irbridge/ircontrol"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	DefaultPort             = 80
	DefaultDeviceType       = 0x2737 // RM mini
	DefaultMACAddress       = "00:00:00:00:00:00"
	DefaultTimeout          = 10 * time.Second
	DefaultListeningAddress = ":7777"
)

type Config struct {
	Device           DeviceConfig    `mapstructure:"device"`
	LearnWindow      time.Duration   `mapstructure:"learnWindow"`
	RepeatGap        time.Duration   `mapstructure:"repeatGap"`
	ListeningAddress string          `mapstructure:"listeningAddress"`
	Advertise        AdvertiseConfig `mapstructure:"advertise"`
	Commands         []Command       `mapstructure:"commands"`
	Switches         []Switch        `mapstructure:"switches"`
}

// DeviceConfig addresses a single Broadlink device.
type DeviceConfig struct {
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	MACAddress string        `mapstructure:"macAddress"`
	Type       uint16        `mapstructure:"type"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// UDPAddress returns host:port, keeping a port already present in Host.
func (d DeviceConfig) UDPAddress() string {
	if _, _, err := net.SplitHostPort(d.Host); err == nil {
		return d.Host
	}
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

type AdvertiseConfig struct {
	SSDP     bool `mapstructure:"ssdp"`
	Zeroconf bool `mapstructure:"zeroconf"`
}

type DeviceCommand interface {
	GetBytesToSend() ([]byte, error)
}

type Command struct {
	Name       string `mapstructure:"name" json:"name"`             // the command name (also id)
	Category   string `mapstructure:"category" json:"category"`     // the remote it belongs to
	CommandHex string `mapstructure:"commandHex" json:"commandHex"` // the command bytes in hex
}

func (cmd *Command) GetBytesToSend() ([]byte, error) {
	return ircode.Decode(cmd.CommandHex)
}

// SwitchStep is one code of a switch sequence, in hex.
type SwitchStep struct {
	Data   string `mapstructure:"data"`
	Repeat int    `mapstructure:"repeat"`
}

// Switch is a named on/off accessory backed by IR code sequences.
type Switch struct {
	Name string       `mapstructure:"name"`
	On   []SwitchStep `mapstructure:"on"`
	Off  []SwitchStep `mapstructure:"off"`
}

// Steps decodes the on or off sequence.
func (s *Switch) Steps(on bool) ([]ircontrol.Step, error) {
	src := s.Off
	if on {
		src = s.On
	}
	out := make([]ircontrol.Step, 0, len(src))
	for i, st := range src {
		code, err := ircode.Decode(st.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "switch %s step %d", s.Name, i)
		}
		out = append(out, ircontrol.Step{Data: code, Repeat: st.Repeat})
	}
	return out, nil
}

// GetCommandByNameAndCategory returns the first command to match the name & category, category or name can also be empty but not both
func (c *Config) GetCommandByNameAndCategory(cmdName, cmdCategory string) *Command {
	if cmdName == "" && cmdCategory == "" {
		return nil
	}

	for i := range c.Commands {
		cmd := &c.Commands[i]
		if (cmd.Name == cmdName || cmdName == "") &&
			(cmd.Category == cmdCategory || cmdCategory == "") {
			return cmd
		}
	}
	return nil
}

func (c *Config) FindSwitch(name string) *Switch {
	for i := range c.Switches {
		if c.Switches[i].Name == name {
			return &c.Switches[i]
		}
	}
	return nil
}

// Validate checks every configured code so bad entries fail at startup.
func (c *Config) Validate() error {
	for i := range c.Commands {
		if _, err := c.Commands[i].GetBytesToSend(); err != nil {
			return errors.Wrapf(err, "command %s/%s", c.Commands[i].Category, c.Commands[i].Name)
		}
	}
	for i := range c.Switches {
		for _, on := range []bool{true, false} {
			if _, err := c.Switches[i].Steps(on); err != nil {
				return err
			}
		}
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Port:       DefaultPort,
			MACAddress: DefaultMACAddress,
			Type:       DefaultDeviceType,
			Timeout:    DefaultTimeout,
		},
		LearnWindow:      ircontrol.DefaultLearnWindow,
		RepeatGap:        ircontrol.DefaultRepeatGap,
		ListeningAddress: DefaultListeningAddress,
		Advertise:        AdvertiseConfig{SSDP: true},
	}
}

// New returns a viper instance reading IRBRIDGE_* environment variables.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("IRBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := DefaultConfig()
	v.SetDefault("device.host", "")
	v.SetDefault("device.port", def.Device.Port)
	v.SetDefault("device.macAddress", def.Device.MACAddress)
	v.SetDefault("device.type", def.Device.Type)
	v.SetDefault("device.timeout", def.Device.Timeout)
	v.SetDefault("learnWindow", def.LearnWindow)
	v.SetDefault("repeatGap", def.RepeatGap)
	v.SetDefault("listeningAddress", def.ListeningAddress)
	v.SetDefault("advertise.ssdp", def.Advertise.SSDP)
	v.SetDefault("advertise.zeroconf", def.Advertise.Zeroconf)
	return v
}

// Load reads configFile (if given) on top of the defaults.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to load config from file: %s", configFile)
		}
	}

	conf := DefaultConfig()
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}
