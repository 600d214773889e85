package debounce

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/metroapp/fare-services/internal/comm"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseVerifying
	PhaseCooldown
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseVerifying:
		return "verifying"
	default:
		return "cooldown"
	}
}

const (
	DefaultCooldown      = 3 * time.Second
	DefaultVerifyTimeout = 10 * time.Second
)

type Verifier interface {
	Verify(ctx context.Context, tag string) (comm.VerifyResponse, error)
}

type Signaler interface {
	Signal(frame comm.GateFrame)
}

// Machine serializes tap handling at the reader. Only one tap is in flight
// at a time: while a verification runs, and for a cooldown window after its
// outcome is signaled, every further read of the antenna is suppressed. This
// is what keeps a card held against the reader from being charged twice.
type Machine struct {
	verifier Verifier
	signaler Signaler
	cooldown time.Duration
	timeout  time.Duration

	mu    sync.Mutex
	phase Phase

	// onOutcome, when set, receives every verification outcome for the
	// operator display. Called after the gate frame is signaled.
	onOutcome func(tag string, out comm.VerifyResponse)
}

func NewMachine(v Verifier, s Signaler) *Machine {
	return &Machine{
		verifier: v,
		signaler: s,
		cooldown: DefaultCooldown,
		timeout:  DefaultVerifyTimeout,
	}
}

// SetCooldown overrides the post-verification quiet window.
func (m *Machine) SetCooldown(d time.Duration) {
	m.cooldown = d
}

func (m *Machine) SetVerifyTimeout(d time.Duration) {
	m.timeout = d
}

func (m *Machine) SetOnOutcome(fn func(tag string, out comm.VerifyResponse)) {
	m.onOutcome = fn
}

func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// HandleTag accepts one tap and kicks off its verification. It reports
// whether the tap was accepted; taps arriving while the machine is busy or
// cooling down are suppressed.
func (m *Machine) HandleTag(tag string) bool {
	m.mu.Lock()
	if m.phase != PhaseIdle {
		phase := m.phase
		m.mu.Unlock()
		log.Debugf("tap %s suppressed while %s", tag, phase)
		return false
	}
	m.phase = PhaseVerifying
	m.mu.Unlock()

	go m.verify(tag)
	return true
}

func (m *Machine) verify(tag string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	out, err := m.verifier.Verify(ctx, tag)
	if err != nil {
		log.Errorf("verification unreachable for tag %s: %v", tag, err)
		out = comm.VerifyResponse{
			Status:     comm.DecisionDenied,
			Message:    "connection error",
			NewBalance: decimal.Zero,
		}
	}

	if out.Status == comm.DecisionOK {
		log.Infof("tap %s approved, balance %s", tag, out.NewBalance.String())
	} else {
		log.Warnf("tap %s denied (%s), balance %s", tag, out.Message, out.NewBalance.String())
	}

	m.signaler.Signal(comm.GateFrame{Decision: out.Status, Balance: out.NewBalance})

	if m.onOutcome != nil {
		m.onOutcome(tag, out)
	}

	m.mu.Lock()
	m.phase = PhaseCooldown
	m.mu.Unlock()

	time.AfterFunc(m.cooldown, func() {
		m.mu.Lock()
		m.phase = PhaseIdle
		m.mu.Unlock()
	})
}
