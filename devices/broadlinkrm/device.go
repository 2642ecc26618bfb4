package broadlinkrm

import (
	"net"
	"os"
	"sync"
	"time"

	"github.com/amitbet/irbridge/config"
	"github.com/amitbet/irbridge/ircontrol"
	"github.com/mixcode/broadlink"
	"github.com/pkg/errors"
)

// rmDevice is the part of broadlink.Device used here.
type rmDevice interface {
	Auth(id []byte, name string) error
	StartCaptureRemoteControlCode() error
	ReadCaptured() ([]byte, error)
	SendIRRemoteCode(code []byte, repeat int) error
}

type libDevice struct {
	*broadlink.Device
}

// ReadCaptured drops the remote type; only IR codes are learned here.
func (l libDevice) ReadCaptured() ([]byte, error) {
	_, code, err := l.ReadCapturedRemoteControlCode()
	if err == broadlink.ErrNotCaptured {
		return nil, nil
	}
	return code, err
}

// BroadlinkDevice holds the information to access a Broadlink device on the network.
type BroadlinkDevice struct {
	Name       string        `json:"name"`
	UDPAddress string        `json:"udpAddress"`
	MACAddress string        `json:"macAddress"`
	Type       uint16        `json:"type"`
	Timeout    time.Duration `json:"timeout"`

	mu     sync.Mutex
	authed bool
	device rmDevice
}

// NewBroadlinkDevice prepares an unauthenticated device from its configuration.
func NewBroadlinkDevice(cfg config.DeviceConfig) *BroadlinkDevice {
	return &BroadlinkDevice{
		Name:       cfg.Host,
		UDPAddress: cfg.UDPAddress(),
		MACAddress: cfg.MACAddress,
		Type:       cfg.Type,
		Timeout:    cfg.Timeout,
	}
}

// createDevice prepares a new, uninitialised broadlink.Device from the device information
func (d *BroadlinkDevice) createDevice() error {
	mac, err := net.ParseMAC(d.MACAddress)
	if err != nil {
		return errors.Wrap(err, "failed to parse MAC address")
	}
	udpAddr, err := net.ResolveUDPAddr("udp", d.UDPAddress)
	if err != nil {
		return errors.Wrap(err, "failed to parse UDP address")
	}
	d.device = libDevice{&broadlink.Device{
		Type:    d.Type,
		MACAddr: mac,
		UDPAddr: *udpAddr,
		Timeout: d.Timeout,
	}}
	return nil
}

// Initialize creates the broadlink.Device and authenticates with it.
// Calling it again after a successful authentication does nothing.
func (d *BroadlinkDevice) Initialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		if err := d.createDevice(); err != nil {
			return err
		}
	}
	if d.authed {
		return nil
	}

	hostname, _ := os.Hostname() // Your local machine's name.
	fakeID := make([]byte, 15)   // Must be 15 bytes long.

	if err := d.device.Auth(fakeID, hostname); err != nil {
		return errors.Wrapf(err, "failed to authenticate with device %s, addr %s", d.Name, d.UDPAddress)
	}
	d.authed = true
	return nil
}

func (d *BroadlinkDevice) ready() error {
	if d.device == nil || !d.authed {
		return errors.Errorf("device %s is not initialized", d.Name)
	}
	return nil
}

// EnterLearning puts the device into IR capture mode.
func (d *BroadlinkDevice) EnterLearning() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(); err != nil {
		return err
	}
	return d.device.StartCaptureRemoteControlCode()
}

// CheckData polls once for a captured code; nil, nil means nothing was captured.
func (d *BroadlinkDevice) CheckData() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(); err != nil {
		return nil, err
	}
	code, err := d.device.ReadCaptured()
	if err != nil {
		return nil, err
	}
	if len(code) == 0 {
		return nil, nil
	}
	return code, nil
}

// SendData transmits a raw code once.
func (d *BroadlinkDevice) SendData(code []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(); err != nil {
		return err
	}
	if err := d.device.SendIRRemoteCode(code, 1); err != nil {
		return errors.Wrap(err, "IR code send failure")
	}
	return nil
}

// RunCommand sends a configured command.
func (d *BroadlinkDevice) RunCommand(cmd config.DeviceCommand) error {
	if cmd == nil {
		return errors.New("no such command")
	}
	cmdBytes, err := cmd.GetBytesToSend()
	if err != nil {
		return err
	}
	return d.SendData(cmdBytes)
}

// Dialer returns an ircontrol.DialFunc that connects with cfg, replacing its host.
func Dialer(cfg config.DeviceConfig) ircontrol.DialFunc {
	return func(host string) (ircontrol.Sender, error) {
		dev, err := Dial(cfg, host)
		if err != nil {
			return nil, err
		}
		return dev, nil
	}
}

// Dial connects and authenticates to the device at host.
func Dial(cfg config.DeviceConfig, host string) (*BroadlinkDevice, error) {
	cfg.Host = host
	dev := NewBroadlinkDevice(cfg)
	if err := dev.Initialize(); err != nil {
		return nil, err
	}
	return dev, nil
}
