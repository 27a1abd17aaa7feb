package carble

import (
	"context"
	"math"
	"time"
)

// MaxDuty is the full-on duty value expected by PWM implementations.
const MaxDuty = 1000

// PWM drives a duty-cycle output, typically an LED. Implementations
// accept duties from 0 (off) to MaxDuty (full on).
type PWM interface {
	SetDuty(duty uint16)
}

// Indicator reflects connection state and activity on a PWM output:
// full on while connected, off while disconnected, and a sinusoidal
// pulse on each received write.
//
// Pulses are not played on the caller's goroutine. Pulse enqueues
// into a bounded queue drained by Run, keeping the blocking ramp off
// the radio's event-delivery path; when the queue is full the pulse
// is dropped, which for a visual acknowledgment is fine.
type Indicator struct {
	pwm       PWM
	steps     int
	stepDelay time.Duration
	queue     chan struct{}
	sleep     func(time.Duration)
}

// An IndicatorOption configures an Indicator.
type IndicatorOption func(*Indicator)

// PulseShape sets the number of ramp steps and the delay between
// them. The defaults are 20 steps of 50ms.
func PulseShape(steps int, stepDelay time.Duration) IndicatorOption {
	return func(in *Indicator) {
		in.steps = steps
		in.stepDelay = stepDelay
	}
}

// withSleep substitutes the pacing function, for tests.
func withSleep(f func(time.Duration)) IndicatorOption {
	return func(in *Indicator) { in.sleep = f }
}

// NewIndicator builds an indicator around the given PWM output and
// turns it off.
func NewIndicator(pwm PWM, opts ...IndicatorOption) *Indicator {
	in := &Indicator{
		pwm:       pwm,
		steps:     20,
		stepDelay: 50 * time.Millisecond,
		queue:     make(chan struct{}, 8),
		sleep:     time.Sleep,
	}
	for _, opt := range opts {
		opt(in)
	}
	in.pwm.SetDuty(0)
	return in
}

// Connected switches the output full on.
func (in *Indicator) Connected() { in.pwm.SetDuty(MaxDuty) }

// Disconnected switches the output off.
func (in *Indicator) Disconnected() { in.pwm.SetDuty(0) }

// Pulse schedules one activity pulse. It never blocks; if the queue
// is full the pulse is dropped.
func (in *Indicator) Pulse() {
	select {
	case in.queue <- struct{}{}:
	default:
	}
}

// Run drains the pulse queue until ctx is cancelled. It is meant to
// run on the application's main goroutine, away from the radio's
// event-delivery path.
func (in *Indicator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-in.queue:
			in.pulse()
		}
	}
}

// pulse plays one full sine cycle on the output, blocking for
// steps * stepDelay.
func (in *Indicator) pulse() {
	for i := 0; i < in.steps; i++ {
		phase := 2 * math.Pi * float64(i) / float64(in.steps)
		in.pwm.SetDuty(uint16(math.Sin(phase)*MaxDuty/2 + MaxDuty/2))
		in.sleep(in.stepDelay)
	}
}
