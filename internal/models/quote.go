package models

// PressureSignal is a coarse categorical inference of buy/sell pressure
// derived from 24h volume change and 24h price change. It is a heuristic,
// not a guarantee, and user-facing output labels it as such.
type PressureSignal string

const (
	PressureStrongBuy   PressureSignal = "strong_buy"
	PressureBuy         PressureSignal = "buy"
	PressureStrongSell  PressureSignal = "strong_sell"
	PressureSell        PressureSignal = "sell"
	PressureLowActivity PressureSignal = "low_activity"
	PressureNeutral     PressureSignal = "neutral"
)

// DerivePressure maps (volumeChange24h, percentChange24h) to a PressureSignal
// using fixed thresholds. Either input missing yields neutral.
func DerivePressure(volumeChange24h, percentChange24h *float64) PressureSignal {
	if volumeChange24h == nil || percentChange24h == nil {
		return PressureNeutral
	}
	vol, pct := *volumeChange24h, *percentChange24h
	switch {
	case vol > 20 && pct > 2:
		return PressureStrongBuy
	case vol > 0 && pct > 0:
		return PressureBuy
	case vol > 20 && pct < -2:
		return PressureStrongSell
	case vol > 0 && pct < 0:
		return PressureSell
	case vol < -20:
		return PressureLowActivity
	default:
		return PressureNeutral
	}
}

// QuoteRecord is a per-coin market snapshot for a single pipeline run.
// Pointer fields are nil when the provider omitted the value.
type QuoteRecord struct {
	Name               string         `json:"name"`
	Symbol             string         `json:"symbol"`
	ProviderID         int64          `json:"cmc_id,omitempty"`
	Price              *float64       `json:"price"`
	Volume24h          *float64       `json:"volume_24h"`
	VolumeChange24h    *float64       `json:"volume_change_24h"`
	PercentChange1h    *float64       `json:"percent_change_1h"`
	PercentChange24h   *float64       `json:"percent_change_24h"`
	PercentChange7d    *float64       `json:"percent_change_7d"`
	PercentChange30d   *float64       `json:"percent_change_30d"`
	PercentChange60d   *float64       `json:"percent_change_60d"`
	PercentChange90d   *float64       `json:"percent_change_90d"`
	MarketCap          *float64       `json:"market_cap"`
	MarketCapDominance *float64       `json:"market_cap_dominance,omitempty"`
	FullyDilutedCap    *float64       `json:"fully_diluted_market_cap"`
	CirculatingSupply  *float64       `json:"circulating_supply,omitempty"`
	TotalSupply        *float64       `json:"total_supply,omitempty"`
	MaxSupply          *float64       `json:"max_supply,omitempty"`
	LastUpdated        string         `json:"last_updated,omitempty"`
	Pressure           PressureSignal `json:"pressure"`
}

// QuoteOutcome is the per-symbol slot in a quote fetch result: either a
// record or a human-readable error reason, never both.
type QuoteOutcome struct {
	Quote *QuoteRecord `json:"quote,omitempty"`
	Err   string       `json:"error,omitempty"`
}

// Failed reports whether the slot holds an error instead of a record.
func (o QuoteOutcome) Failed() bool {
	return o.Quote == nil
}
