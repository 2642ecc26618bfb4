package broadlinkrm

import (
	"testing"
	"time"

	"github.com/amitbet/irbridge/config"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRM struct {
	authErr  error
	auths    int
	captures int
	code     []byte
	readErr  error
	sent     [][]byte
	repeats  []int
}

func (f *fakeRM) Auth(id []byte, name string) error {
	f.auths++
	if len(id) != 15 {
		return errors.New("id must be 15 bytes")
	}
	return f.authErr
}

func (f *fakeRM) StartCaptureRemoteControlCode() error {
	f.captures++
	return nil
}

func (f *fakeRM) ReadCaptured() ([]byte, error) {
	return f.code, f.readErr
}

func (f *fakeRM) SendIRRemoteCode(code []byte, repeat int) error {
	f.sent = append(f.sent, code)
	f.repeats = append(f.repeats, repeat)
	return nil
}

func newTestDevice(rm *fakeRM) *BroadlinkDevice {
	d := NewBroadlinkDevice(config.DeviceConfig{
		Host:       "192.168.0.6",
		Port:       80,
		MACAddress: config.DefaultMACAddress,
		Type:       config.DefaultDeviceType,
		Timeout:    time.Second,
	})
	d.device = rm
	return d
}

func TestNewBroadlinkDevice(t *testing.T) {
	d := NewBroadlinkDevice(config.DeviceConfig{Host: "10.0.0.2", Port: 80, MACAddress: "34:ea:34:00:00:01", Type: 0x2737})
	assert.Equal(t, "10.0.0.2:80", d.UDPAddress)
	assert.Equal(t, uint16(0x2737), d.Type)
	require.NoError(t, d.createDevice())
	assert.NotNil(t, d.device)
}

func TestCreateDeviceBadMAC(t *testing.T) {
	d := NewBroadlinkDevice(config.DeviceConfig{Host: "10.0.0.2", Port: 80, MACAddress: "nope"})
	assert.Error(t, d.Initialize())
}

func TestInitializeAuthOnce(t *testing.T) {
	rm := &fakeRM{}
	d := newTestDevice(rm)
	require.NoError(t, d.Initialize())
	require.NoError(t, d.Initialize())
	assert.Equal(t, 1, rm.auths)
}

func TestInitializeAuthFailure(t *testing.T) {
	rm := &fakeRM{authErr: errors.New("timeout")}
	d := newTestDevice(rm)
	err := d.Initialize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "192.168.0.6:80")
	assert.Error(t, d.EnterLearning())
}

func TestNotInitialized(t *testing.T) {
	d := newTestDevice(&fakeRM{})
	assert.Error(t, d.EnterLearning())
	_, err := d.CheckData()
	assert.Error(t, err)
	assert.Error(t, d.SendData([]byte{0x01}))
}

func TestLearnAndSend(t *testing.T) {
	rm := &fakeRM{code: []byte{0x26, 0x00}}
	d := newTestDevice(rm)
	require.NoError(t, d.Initialize())

	require.NoError(t, d.EnterLearning())
	assert.Equal(t, 1, rm.captures)
	code, err := d.CheckData()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x26, 0x00}, code)

	rm.code = []byte{}
	code, err = d.CheckData()
	require.NoError(t, err)
	assert.Nil(t, code)

	rm.readErr = errors.New("checksum")
	_, err = d.CheckData()
	assert.Error(t, err)

	require.NoError(t, d.SendData([]byte{0xa1}))
	assert.Equal(t, [][]byte{{0xa1}}, rm.sent)
	assert.Equal(t, []int{1}, rm.repeats)
}

func TestRunCommand(t *testing.T) {
	rm := &fakeRM{}
	d := newTestDevice(rm)
	require.NoError(t, d.Initialize())

	require.NoError(t, d.RunCommand(&config.Command{Name: "power", CommandHex: "a1b2"}))
	assert.Equal(t, [][]byte{{0xa1, 0xb2}}, rm.sent)

	assert.Error(t, d.RunCommand(&config.Command{Name: "bad", CommandHex: "a1b"}))
	assert.Error(t, d.RunCommand(nil))
}
