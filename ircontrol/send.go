package ircontrol

import (
	"time"

	"github.com/amitbet/irbridge/ircode"
	"github.com/pkg/errors"
)

// DefaultRepeatGap separates repeated transmissions of one step.
const DefaultRepeatGap = 500 * time.Millisecond

// Sender transmits a raw code once.
type Sender interface {
	SendData(code []byte) error
}

// DialFunc connects and authenticates to the device at host.
type DialFunc func(host string) (Sender, error)

// Send decodes commandHex and transmits it once to host.
// The code is validated before any connection is made.
func Send(dial DialFunc, host, commandHex string) error {
	code, err := ircode.Decode(commandHex)
	if err != nil {
		return err
	}
	dev, err := dial(host)
	if err != nil {
		return errors.Wrapf(err, "connect to %s", host)
	}
	if err := dev.SendData(code); err != nil {
		return errors.Wrapf(err, "send to %s", host)
	}
	return nil
}

// Step is one code of a switch sequence and how often to send it.
type Step struct {
	Data   ircode.IRCommand `json:"data"`
	Repeat int              `json:"repeat"`
}

// RunSequence sends every step Repeat times (at least once), waiting gap after each transmission.
func RunSequence(dev Sender, steps []Step, gap time.Duration, sleep func(time.Duration)) error {
	if sleep == nil {
		sleep = time.Sleep
	}
	if gap <= 0 {
		gap = DefaultRepeatGap
	}
	for i, st := range steps {
		n := st.Repeat
		if n < 1 {
			n = 1
		}
		for r := 0; r < n; r++ {
			if err := dev.SendData(st.Data); err != nil {
				return errors.Wrapf(err, "step %d", i)
			}
			sleep(gap)
		}
	}
	return nil
}
