package debounce

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/metroapp/fare-services/internal/comm"
)

type fakeVerifier struct {
	calls int32
	out   comm.VerifyResponse
	err   error
	delay time.Duration
}

func (f *fakeVerifier) Verify(ctx context.Context, tag string) (comm.VerifyResponse, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.out, f.err
}

type fakeSignaler struct {
	frames chan comm.GateFrame
}

func newFakeSignaler() *fakeSignaler {
	return &fakeSignaler{frames: make(chan comm.GateFrame, 10)}
}

func (f *fakeSignaler) Signal(frame comm.GateFrame) {
	f.frames <- frame
}

func (f *fakeSignaler) waitFrame(t *testing.T) comm.GateFrame {
	t.Helper()
	select {
	case frame := <-f.frames:
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("no gate frame signaled")
		return comm.GateFrame{}
	}
}

func TestRapidTapsSingleVerification(t *testing.T) {
	v := &fakeVerifier{
		out:   comm.VerifyResponse{Status: comm.DecisionOK, NewBalance: decimal.NewFromInt(30)},
		delay: 50 * time.Millisecond,
	}
	s := newFakeSignaler()
	m := NewMachine(v, s)
	m.SetCooldown(time.Hour)

	if !m.HandleTag("04A1B2C3") {
		t.Fatal("first tap should be accepted")
	}
	// a card held on the antenna reads repeatedly
	for i := 0; i < 5; i++ {
		if m.HandleTag("04A1B2C3") {
			t.Fatal("tap during verification should be suppressed")
		}
	}

	frame := s.waitFrame(t)
	if frame.Decision != comm.DecisionOK || !frame.Balance.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("unexpected frame %+v", frame)
	}
	if got := atomic.LoadInt32(&v.calls); got != 1 {
		t.Fatalf("expected 1 verification, got %d", got)
	}

	// cooldown is still running; taps stay suppressed
	if m.HandleTag("04A1B2C3") {
		t.Fatal("tap during cooldown should be suppressed")
	}
}

func TestTransportFailureDeniesWithZeroBalance(t *testing.T) {
	v := &fakeVerifier{err: errors.New("connection refused")}
	s := newFakeSignaler()
	m := NewMachine(v, s)
	m.SetCooldown(time.Hour)

	if !m.HandleTag("04FFEE11") {
		t.Fatal("tap should be accepted")
	}

	frame := s.waitFrame(t)
	if frame.Decision != comm.DecisionDenied {
		t.Fatalf("expected denied frame, got %+v", frame)
	}
	if !frame.Balance.IsZero() {
		t.Fatalf("transport failure must claim zero balance, got %s", frame.Balance)
	}
}

func TestCooldownExpiryAcceptsNextTap(t *testing.T) {
	v := &fakeVerifier{out: comm.VerifyResponse{Status: comm.DecisionOK, NewBalance: decimal.NewFromInt(10)}}
	s := newFakeSignaler()
	m := NewMachine(v, s)
	m.SetCooldown(30 * time.Millisecond)

	if !m.HandleTag("04A1B2C3") {
		t.Fatal("first tap should be accepted")
	}
	s.waitFrame(t)

	deadline := time.Now().Add(2 * time.Second)
	for m.Phase() != PhaseIdle {
		if time.Now().After(deadline) {
			t.Fatal("machine never returned to idle")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if !m.HandleTag("04A1B2C3") {
		t.Fatal("tap after cooldown should be accepted")
	}
	s.waitFrame(t)

	if got := atomic.LoadInt32(&v.calls); got != 2 {
		t.Fatalf("expected 2 verifications, got %d", got)
	}
}
