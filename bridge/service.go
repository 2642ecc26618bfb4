package bridge

import (
	"github.com/kardianos/service"
	"github.com/pkg/errors"
)

// Start runs the bridge in the background, as required by service.Interface.
func (s *HomeControlServer) Start(svc service.Service) error {
	if !service.Interactive() {
		slogger, err := svc.Logger(nil)
		if err != nil {
			return errors.Wrap(err, "problem while creating logger")
		}
		s.Logger = slogger
		s.IsService = true
	}
	s.Logger.Info("Starting IR bridge!")
	go func() {
		if err := s.InitServer(); err != nil {
			s.Logger.Error(err)
		}
	}()
	return nil
}

// Stop halts the service operation
func (s *HomeControlServer) Stop(_ service.Service) error {
	s.Shutdown()
	return nil
}

// Shutdown stops advertising and closes the listener. Safe to call more than once.
func (s *HomeControlServer) Shutdown() {
	s.quitOnce.Do(func() {
		close(s.QuitChan)
	})
}
