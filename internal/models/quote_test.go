package models

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func fptr(v float64) *float64 { return &v }

func TestDerivePressure(t *testing.T) {
	tests := []struct {
		name string
		vol  *float64
		pct  *float64
		want PressureSignal
	}{
		{"strong buy", fptr(25), fptr(3), PressureStrongBuy},
		{"buy at threshold edge", fptr(20), fptr(3), PressureBuy},
		{"buy", fptr(5), fptr(0.5), PressureBuy},
		{"strong sell", fptr(30), fptr(-4), PressureStrongSell},
		{"sell", fptr(10), fptr(-1), PressureSell},
		{"volume up price flat", fptr(25), fptr(0), PressureNeutral},
		{"low activity", fptr(-30), fptr(1), PressureLowActivity},
		{"low activity threshold edge", fptr(-20), fptr(0), PressureNeutral},
		{"all flat", fptr(0), fptr(0), PressureNeutral},
		{"missing volume", nil, fptr(5), PressureNeutral},
		{"missing percent", fptr(25), nil, PressureNeutral},
		{"both missing", nil, nil, PressureNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DerivePressure(tt.vol, tt.pct); got != tt.want {
				t.Errorf("DerivePressure(%v, %v) = %s, want %s", tt.vol, tt.pct, got, tt.want)
			}
		})
	}
}

// Property: Pressure derivation is total and sign-consistent
//
// Any finite input pair maps to one of the six known signals, and a buy-side
// signal never appears with a non-positive price change (nor sell-side with
// a non-negative one).
func TestProperty_DerivePressureSignConsistency(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	known := map[PressureSignal]bool{
		PressureStrongBuy:   true,
		PressureBuy:         true,
		PressureStrongSell:  true,
		PressureSell:        true,
		PressureLowActivity: true,
		PressureNeutral:     true,
	}

	properties.Property("signal is known and sign-consistent", prop.ForAll(
		func(vol, pct float64) bool {
			sig := DerivePressure(&vol, &pct)
			if !known[sig] {
				t.Logf("unknown signal %q for vol=%f pct=%f", sig, vol, pct)
				return false
			}
			switch sig {
			case PressureStrongBuy, PressureBuy:
				return pct > 0
			case PressureStrongSell, PressureSell:
				return pct < 0
			}
			return true
		},
		gen.Float64Range(-100, 100),
		gen.Float64Range(-50, 50),
	))

	properties.TestingRun(t)
}

func TestQuoteOutcomeFailed(t *testing.T) {
	ok := QuoteOutcome{Quote: &QuoteRecord{Symbol: "BTC"}}
	if ok.Failed() {
		t.Error("outcome with a record should not be failed")
	}
	bad := QuoteOutcome{Err: "Токен XYZ не найден на CoinMarketCap"}
	if !bad.Failed() {
		t.Error("outcome with only an error should be failed")
	}
}
