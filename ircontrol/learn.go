// Package ircontrol holds the learn and send flows that drive a single
// IR learning device one operation at a time.
package ircontrol

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/amitbet/irbridge/ircode"
	"github.com/pkg/errors"
)

const (
	// DefaultLearnWindow is how long the operator has to press the remote button.
	DefaultLearnWindow = 5 * time.Second

	NoSignalMessage = "No signal learned"
	GateMessage     = "Press enter to learn a new command (or Ctrl+C to exit)..."
	PressMessage    = "Press the button on the remote now..."
)

// Learner is a device that can capture a remote control code.
type Learner interface {
	EnterLearning() error
	// CheckData returns nil, nil when nothing was captured.
	CheckData() ([]byte, error)
}

type LearnOptions struct {
	Window time.Duration
	Sleep  func(time.Duration)
}

func (o LearnOptions) withDefaults() LearnOptions {
	if o.Window <= 0 {
		o.Window = DefaultLearnWindow
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
	return o
}

// LearnOnce enters learning mode, blocks for the window and polls once.
func LearnOnce(dev Learner, window time.Duration, sleep func(time.Duration)) ([]byte, error) {
	opts := LearnOptions{Window: window, Sleep: sleep}.withDefaults()
	if err := dev.EnterLearning(); err != nil {
		return nil, errors.Wrap(err, "enter learning mode")
	}
	opts.Sleep(opts.Window)
	code, err := dev.CheckData()
	if err != nil {
		return nil, errors.Wrap(err, "check learned data")
	}
	return code, nil
}

// Learn runs one learning attempt per line read from in until in is exhausted.
// Learned codes (or NoSignalMessage) are written to out, one per line;
// operator instructions go to prompt.
func Learn(dev Learner, in io.Reader, out, prompt io.Writer, opts LearnOptions) error {
	opts = opts.withDefaults()
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintln(prompt, GateMessage)
		if !scanner.Scan() {
			return scanner.Err()
		}

		if err := dev.EnterLearning(); err != nil {
			return errors.Wrap(err, "enter learning mode")
		}
		fmt.Fprintln(prompt, PressMessage)
		opts.Sleep(opts.Window)

		code, err := dev.CheckData()
		if err != nil {
			return errors.Wrap(err, "check learned data")
		}
		if len(code) == 0 {
			fmt.Fprintln(out, NoSignalMessage)
			continue
		}
		fmt.Fprintln(out, ircode.Encode(code))
	}
}
