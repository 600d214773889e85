package comm

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	DecisionOK     = "ok"
	DecisionDenied = "denied"
)

// GateFrame is the single text line pushed to a gate controller after a
// verification attempt completes: STATUS:<ok|denied>;SALDO:<balance>.
// The controller never acknowledges it.
type GateFrame struct {
	Decision string
	Balance  decimal.Decimal
}

func (f GateFrame) Encode() string {
	return fmt.Sprintf("STATUS:%s;SALDO:%s", f.Decision, f.Balance.String())
}

func ParseGateFrame(line string) (GateFrame, error) {
	parts := strings.Split(strings.TrimSpace(line), ";")
	if len(parts) != 2 {
		return GateFrame{}, fmt.Errorf("malformed gate frame: %q", line)
	}

	decision, ok := strings.CutPrefix(parts[0], "STATUS:")
	if !ok {
		return GateFrame{}, fmt.Errorf("gate frame missing STATUS field: %q", line)
	}
	if decision != DecisionOK && decision != DecisionDenied {
		return GateFrame{}, fmt.Errorf("unknown gate decision %q", decision)
	}

	rawBalance, ok := strings.CutPrefix(parts[1], "SALDO:")
	if !ok {
		return GateFrame{}, fmt.Errorf("gate frame missing SALDO field: %q", line)
	}
	balance, err := decimal.NewFromString(rawBalance)
	if err != nil {
		return GateFrame{}, fmt.Errorf("invalid gate balance %q: %w", rawBalance, err)
	}

	return GateFrame{Decision: decision, Balance: balance}, nil
}
