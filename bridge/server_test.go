package bridge

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amitbet/irbridge/config"
	"github.com/kardianos/service"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDevice struct {
	initErr  error
	sendErr  error
	inits    int
	entered  int
	payloads [][]byte
	sent     [][]byte
}

func (d *stubDevice) Initialize() error {
	d.inits++
	return d.initErr
}

func (d *stubDevice) EnterLearning() error {
	d.entered++
	return nil
}

func (d *stubDevice) CheckData() ([]byte, error) {
	if len(d.payloads) == 0 {
		return nil, nil
	}
	p := d.payloads[0]
	d.payloads = d.payloads[1:]
	return p, nil
}

func (d *stubDevice) SendData(code []byte) error {
	d.sent = append(d.sent, code)
	return d.sendErr
}

func newTestServer(dev *stubDevice) (*HomeControlServer, *[]time.Duration) {
	cfg := config.DefaultConfig()
	cfg.Commands = []config.Command{
		{Name: "power", Category: "tv", CommandHex: "a1b2c3"},
		{Name: "mute", Category: "tv", CommandHex: "0102"},
	}
	cfg.Switches = []config.Switch{
		{
			Name: "fan",
			On:   []config.SwitchStep{{Data: "01", Repeat: 2}, {Data: "02"}},
			Off:  []config.SwitchStep{{Data: "03"}},
		},
	}
	s := NewHomeControlServer(cfg, dev, service.ConsoleLogger)
	slept := &[]time.Duration{}
	s.Sleep = func(d time.Duration) { *slept = append(*slept, d) }
	return s, slept
}

func do(t *testing.T, s *HomeControlServer, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	out := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestDeviceCommand(t *testing.T) {
	dev := &stubDevice{}
	s, _ := newTestServer(dev)

	rec, _ := do(t, s, "POST", "/commands/tv/power", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [][]byte{{0xa1, 0xb2, 0xc3}}, dev.sent)

	rec, body := do(t, s, "POST", "/commands/tv/volume", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, body["error"], "volume")
	assert.Len(t, dev.sent, 1)
}

func TestDeviceCommandFailure(t *testing.T) {
	dev := &stubDevice{initErr: errors.New("auth timeout")}
	s, _ := newTestServer(dev)

	rec, body := do(t, s, "POST", "/commands/tv/power", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "auth timeout", body["error"])
	assert.Empty(t, dev.sent)
}

func TestSendRaw(t *testing.T) {
	dev := &stubDevice{}
	s, _ := newTestServer(dev)

	rec, body := do(t, s, "POST", "/send", `{"code":"A1B2C3"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), body["sent"])
	assert.Equal(t, [][]byte{{0xa1, 0xb2, 0xc3}}, dev.sent)

	for _, bad := range []string{`{"code":"a1b"}`, `{"code":""}`, `{}`, `nope`} {
		rec, _ = do(t, s, "POST", "/send", bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
	assert.Len(t, dev.sent, 1)
}

func TestLearn(t *testing.T) {
	dev := &stubDevice{payloads: [][]byte{{0x26, 0x00}}}
	s, slept := newTestServer(dev)

	rec, body := do(t, s, "POST", "/learn", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["learned"])
	assert.Equal(t, "2600", body["code"])
	assert.Equal(t, []time.Duration{5 * time.Second}, *slept)

	rec, body = do(t, s, "POST", "/learn", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["learned"])
	assert.Equal(t, 2, dev.entered)
}

func TestSwitches(t *testing.T) {
	dev := &stubDevice{}
	s, slept := newTestServer(dev)

	_, body := do(t, s, "GET", "/switches/fan", "")
	assert.Equal(t, false, body["on"])

	rec, body := do(t, s, "PUT", "/switches/fan/on", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["on"])
	assert.Equal(t, [][]byte{{0x01}, {0x01}, {0x02}}, dev.sent)
	assert.Len(t, *slept, 3)

	_, body = do(t, s, "GET", "/switches/fan", "")
	assert.Equal(t, true, body["on"])

	rec, _ = do(t, s, "PUT", "/switches/fan/off", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	_, body = do(t, s, "GET", "/switches/fan", "")
	assert.Equal(t, false, body["on"])

	rec, _ = do(t, s, "PUT", "/switches/lamp/on", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = do(t, s, "GET", "/switches/lamp", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSwitchStateUnchangedOnFailure(t *testing.T) {
	dev := &stubDevice{sendErr: errors.New("no route")}
	s, _ := newTestServer(dev)

	rec, _ := do(t, s, "PUT", "/switches/fan/on", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	_, body := do(t, s, "GET", "/switches/fan", "")
	assert.Equal(t, false, body["on"])
}

func TestConfiguration(t *testing.T) {
	s, _ := newTestServer(&stubDevice{})

	rec, body := do(t, s, "GET", "/configuration", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	remotes := body["remotes"].([]interface{})
	require.Len(t, remotes, 1)
	tv := remotes[0].(map[string]interface{})
	assert.Equal(t, "tv", tv["name"])
	assert.Equal(t, []interface{}{"mute", "power"}, tv["commands"])
	assert.Equal(t, []interface{}{"fan"}, body["switches"])
}

func TestListenPort(t *testing.T) {
	assert.Equal(t, 7777, listenPort(":7777"))
	assert.Equal(t, 8080, listenPort("127.0.0.1:8080"))
	assert.Equal(t, 0, listenPort("bogus"))
}

func TestShutdownIdempotent(t *testing.T) {
	s, _ := newTestServer(&stubDevice{})
	s.Shutdown()
	s.Shutdown()
	_, open := <-s.QuitChan
	assert.False(t, open)
}
