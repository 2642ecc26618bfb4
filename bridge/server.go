// Package bridge exposes a learning device over a small REST API so home
// automation hubs can replay learned codes.
package bridge

import (
	"net/http"
	"sync"
	"time"

	"github.com/amitbet/irbridge/config"
	"github.com/amitbet/irbridge/ircode"
	"github.com/amitbet/irbridge/ircontrol"
	"github.com/amitbet/irbridge/util"
	gmux "github.com/gorilla/mux"
	"github.com/kardianos/service"
	"github.com/pkg/errors"
)

// Device is a learning device that must be authenticated before use.
type Device interface {
	ircontrol.Learner
	ircontrol.Sender
	Initialize() error
}

// HomeControlServer is the listener for the REST Api and the device controller
type HomeControlServer struct {
	IsService     bool
	QuitChan      chan bool
	Logger        service.Logger
	Configuration *config.Config
	Device        Device

	// Sleep blocks during learn windows and repeat gaps; time.Sleep when nil.
	Sleep func(time.Duration)

	devMu    sync.Mutex
	stateMu  sync.Mutex
	switches map[string]bool
	quitOnce sync.Once
	httpSrv  *http.Server
}

func NewHomeControlServer(cfg *config.Config, dev Device, logger service.Logger) *HomeControlServer {
	return &HomeControlServer{
		Logger:        logger,
		Configuration: cfg,
		Device:        dev,
		QuitChan:      make(chan bool),
		switches:      map[string]bool{},
	}
}

func (s *HomeControlServer) sleep(d time.Duration) {
	if s.Sleep != nil {
		s.Sleep(d)
		return
	}
	time.Sleep(d)
}

// httpRespond is a helper function for returning http responses to REST calls
func (s *HomeControlServer) httpRespond(wr http.ResponseWriter, status int, message interface{}) {
	wr.Header().Set("Content-Type", "application/json")
	wr.WriteHeader(status)
	if err := util.Save(message, wr); err != nil {
		s.Logger.Errorf("httpRespond failed: %v", err)
	}
}

func (s *HomeControlServer) httpError(wr http.ResponseWriter, status int, err error) {
	s.httpRespond(wr, status, map[string]interface{}{"error": err.Error()})
}

// withDevice runs fn while holding the device, one operation at a time.
func (s *HomeControlServer) withDevice(fn func(dev Device) error) error {
	s.devMu.Lock()
	defer s.devMu.Unlock()
	if err := s.Device.Initialize(); err != nil {
		return err
	}
	return fn(s.Device)
}

// handleDeviceCommand sends a configured command of a remote
func (s *HomeControlServer) handleDeviceCommand(wr http.ResponseWriter, req *http.Request) {
	vars := gmux.Vars(req)
	remoteName := vars["remote"]
	commandName := vars["command"]

	cmd := s.Configuration.GetCommandByNameAndCategory(commandName, remoteName)
	if cmd == nil {
		s.httpError(wr, http.StatusNotFound, errors.Errorf("remote %q has no command %q", remoteName, commandName))
		return
	}
	code, err := cmd.GetBytesToSend()
	if err != nil {
		s.httpError(wr, http.StatusInternalServerError, err)
		return
	}

	err = s.withDevice(func(dev Device) error { return dev.SendData(code) })
	if err != nil {
		s.Logger.Error("handleDeviceCommand, Error: ", err)
		s.httpError(wr, http.StatusBadGateway, err)
		return
	}
	s.httpRespond(wr, http.StatusOK, map[string]interface{}{"remote": remoteName, "command": commandName})
}

type codeMessage struct {
	Code ircode.IRCommand `json:"code"`
}

// handleSend sends a raw hex code from the request body
func (s *HomeControlServer) handleSend(wr http.ResponseWriter, req *http.Request) {
	var msg codeMessage
	if err := util.Load(&msg, req.Body); err != nil {
		s.httpError(wr, http.StatusBadRequest, err)
		return
	}
	if len(msg.Code) == 0 {
		s.httpError(wr, http.StatusBadRequest, ircode.ErrInvalidCode)
		return
	}

	err := s.withDevice(func(dev Device) error { return dev.SendData(msg.Code) })
	if err != nil {
		s.Logger.Error("handleSend, Error: ", err)
		s.httpError(wr, http.StatusBadGateway, err)
		return
	}
	s.httpRespond(wr, http.StatusOK, map[string]interface{}{"sent": len(msg.Code)})
}

// handleLearn runs a single learning attempt; the request blocks for the learn window
func (s *HomeControlServer) handleLearn(wr http.ResponseWriter, req *http.Request) {
	var code []byte
	err := s.withDevice(func(dev Device) error {
		var err error
		code, err = ircontrol.LearnOnce(dev, s.Configuration.LearnWindow, s.sleep)
		return err
	})
	if err != nil {
		s.Logger.Error("handleLearn, Error: ", err)
		s.httpError(wr, http.StatusBadGateway, err)
		return
	}
	if len(code) == 0 {
		s.Logger.Info(ircontrol.NoSignalMessage)
		s.httpRespond(wr, http.StatusOK, map[string]interface{}{"learned": false})
		return
	}
	s.Logger.Infof("learned code of %d bytes", len(code))
	s.httpRespond(wr, http.StatusOK, map[string]interface{}{"learned": true, "code": ircode.Encode(code)})
}

// handleSetSwitch replays the on or off sequence of a switch
func (s *HomeControlServer) handleSetSwitch(wr http.ResponseWriter, req *http.Request) {
	vars := gmux.Vars(req)
	name := vars["name"]
	sw := s.Configuration.FindSwitch(name)
	if sw == nil {
		s.httpError(wr, http.StatusNotFound, errors.Errorf("no switch %q", name))
		return
	}
	on := vars["state"] == "on"

	steps, err := sw.Steps(on)
	if err != nil {
		s.httpError(wr, http.StatusInternalServerError, err)
		return
	}
	err = s.withDevice(func(dev Device) error {
		return ircontrol.RunSequence(dev, steps, s.Configuration.RepeatGap, s.sleep)
	})
	if err != nil {
		s.Logger.Error("handleSetSwitch, Error: ", err)
		s.httpError(wr, http.StatusBadGateway, err)
		return
	}

	s.stateMu.Lock()
	s.switches[name] = on
	s.stateMu.Unlock()
	s.Logger.Infof("switch %s -> %v", name, on)
	s.httpRespond(wr, http.StatusOK, map[string]interface{}{"name": name, "on": on})
}

func (s *HomeControlServer) handleGetSwitch(wr http.ResponseWriter, req *http.Request) {
	name := gmux.Vars(req)["name"]
	if s.Configuration.FindSwitch(name) == nil {
		s.httpError(wr, http.StatusNotFound, errors.Errorf("no switch %q", name))
		return
	}
	s.stateMu.Lock()
	on := s.switches[name]
	s.stateMu.Unlock()
	s.httpRespond(wr, http.StatusOK, map[string]interface{}{"name": name, "on": on})
}

// sendConfig sends the remotes and switches this bridge knows about
func (s *HomeControlServer) sendConfig(wr http.ResponseWriter, req *http.Request) {
	remotes := []map[string]interface{}{}
	for _, r := range s.Configuration.Remotes() {
		remotes = append(remotes, map[string]interface{}{
			"name":     r.Name,
			"commands": r.CommandNames(),
		})
	}
	switches := []string{}
	for _, sw := range s.Configuration.Switches {
		switches = append(switches, sw.Name)
	}
	s.httpRespond(wr, http.StatusOK, map[string]interface{}{
		"remotes":  remotes,
		"switches": switches,
	})
}

// Router builds the REST routes.
func (s *HomeControlServer) Router() *gmux.Router {
	mux := gmux.NewRouter()
	mux.HandleFunc("/commands/{remote}/{command}", s.handleDeviceCommand).Methods("POST")
	mux.HandleFunc("/send", s.handleSend).Methods("POST")
	mux.HandleFunc("/learn", s.handleLearn).Methods("POST")
	mux.HandleFunc("/switches/{name}/{state:on|off}", s.handleSetSwitch).Methods("PUT", "POST")
	mux.HandleFunc("/switches/{name}", s.handleGetSwitch).Methods("GET")
	mux.HandleFunc("/configuration", s.sendConfig).Methods("GET")
	return mux
}

// initDevices authenticates with the device ahead of the first request
func (s *HomeControlServer) initDevices() error {
	s.devMu.Lock()
	defer s.devMu.Unlock()
	err := s.Device.Initialize()
	if err != nil {
		s.Logger.Error("Error while Initializing Devices: ", err)
	}
	return err
}

// InitServer initializes the device and runs the REST server until QuitChan fires
func (s *HomeControlServer) InitServer() error {
	go s.initDevices()

	quit := make(chan bool)
	if s.Configuration.Advertise.SSDP {
		go s.ssdpAdvertise(quit)
	}
	if s.Configuration.Advertise.Zeroconf {
		go s.zconfRegister(quit)
	}

	s.httpSrv = &http.Server{Addr: s.Configuration.ListeningAddress, Handler: s.Router()}
	go func() {
		<-s.QuitChan
		close(quit)
		s.httpSrv.Close()
	}()

	s.Logger.Info("Listening on address: ", s.Configuration.ListeningAddress)
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return errors.Wrap(err, "listening error")
}
