// Package summary assembles the multi-source coin digest: the deterministic
// formatter, the model-backed generator, and the orchestrating pipeline.
package summary

import (
	"fmt"
	"sort"
	"strings"

	"crypto-summary-bot/internal/models"
)

// NoDataSentinel is returned by FormatRaw when every section is empty.
const NoDataSentinel = "Нет данных."

// pressurePhrases maps a pressure signal to its user-facing phrase.
var pressurePhrases = map[models.PressureSignal]string{
	models.PressureStrongBuy:   "Сильное давление покупателей",
	models.PressureBuy:         "Давление покупателей",
	models.PressureStrongSell:  "Сильное давление продавцов",
	models.PressureSell:        "Давление продавцов",
	models.PressureLowActivity: "Низкая активность",
	models.PressureNeutral:     "Нейтрально",
}

// FormatRaw renders the aggregated data deterministically, without I/O. It
// is the fallback whenever the completion provider is unavailable or fails,
// and it never fails itself. The same input always produces byte-identical
// output: map entries render in sorted symbol order.
func FormatRaw(quotes map[string]models.QuoteOutcome, news, mentions map[string][]models.Mention) string {
	var parts []string

	for _, sym := range sortedKeys(quotes) {
		outcome := quotes[sym]
		if outcome.Failed() {
			parts = append(parts, fmt.Sprintf("<b>%s</b>: %s", sym, outcome.Err))
			continue
		}

		q := outcome.Quote
		name := q.Name
		if name == "" {
			name = sym
		}

		parts = append(parts, fmt.Sprintf(
			"<b>%s (%s)</b>\n"+
				"Цена: %s\n"+
				"1ч: %s | 24ч: %s | 7д: %s\n"+
				"30д: %s | 60д: %s | 90д: %s\n"+
				"Объём 24ч: %s\n"+
				"Изм. объёма: %s\n"+
				"Market Cap: %s\n"+
				"FDV: %s\n"+
				"Давление: %s\n",
			name, sym,
			FormatPrice(q.Price),
			FormatPercent(q.PercentChange1h), FormatPercent(q.PercentChange24h), FormatPercent(q.PercentChange7d),
			FormatPercent(q.PercentChange30d), FormatPercent(q.PercentChange60d), FormatPercent(q.PercentChange90d),
			FormatVolume(q.Volume24h),
			FormatPercent(q.VolumeChange24h),
			FormatMarketCap(q.MarketCap),
			FormatMarketCap(q.FullyDilutedCap),
			pressurePhrases[q.Pressure],
		))
	}

	if hasAny(news) {
		parts = append(parts, "<b>Новости:</b>")
		parts = append(parts, formatLinks(news)...)
	}

	if hasAny(mentions) {
		parts = append(parts, "\n<b>Twitter:</b>")
		parts = append(parts, formatLinks(mentions)...)
	}

	if len(parts) == 0 {
		return NoDataSentinel
	}
	return strings.Join(parts, "\n")
}

// formatLinks renders up to three hyperlinks per coin, in sorted symbol order.
func formatLinks(bySymbol map[string][]models.Mention) []string {
	var lines []string
	for _, sym := range sortedKeys(bySymbol) {
		items := bySymbol[sym]
		if len(items) > 3 {
			items = items[:3]
		}
		for _, m := range items {
			lines = append(lines, fmt.Sprintf("- <a href='%s'>%s</a>", m.URL, m.Title))
		}
	}
	return lines
}

func hasAny(bySymbol map[string][]models.Mention) bool {
	for _, items := range bySymbol {
		if len(items) > 0 {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FormatPrice formats a USD price with magnitude-based precision: sub-cent
// prices keep 8 decimals, sub-dollar 6, everything else 2.
func FormatPrice(price *float64) string {
	if price == nil {
		return "N/A"
	}
	p := *price
	switch {
	case p < 0.01:
		return "$" + group(fmt.Sprintf("%.8f", p))
	case p < 1:
		return "$" + group(fmt.Sprintf("%.6f", p))
	default:
		return "$" + group(fmt.Sprintf("%.2f", p))
	}
}

// FormatPercent formats a percentage with an explicit sign.
func FormatPercent(pct *float64) string {
	if pct == nil {
		return "N/A"
	}
	sign := ""
	if *pct >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, *pct)
}

// FormatVolume formats a 24h volume, switching to K/M suffixes at 1e3/1e6.
func FormatVolume(vol *float64) string {
	if vol == nil || *vol == 0 {
		return "N/A"
	}
	v := *vol
	switch {
	case v >= 1e6:
		return "$" + group(fmt.Sprintf("%.2f", v/1e6)) + "M"
	case v >= 1e3:
		return "$" + group(fmt.Sprintf("%.2f", v/1e3)) + "K"
	default:
		return "$" + group(fmt.Sprintf("%.2f", v))
	}
}

// FormatMarketCap formats a market cap, switching to M/B suffixes at 1e6/1e9.
func FormatMarketCap(mcap *float64) string {
	if mcap == nil || *mcap == 0 {
		return "N/A"
	}
	m := *mcap
	switch {
	case m >= 1e9:
		return "$" + group(fmt.Sprintf("%.2f", m/1e9)) + "B"
	case m >= 1e6:
		return "$" + group(fmt.Sprintf("%.2f", m/1e6)) + "M"
	default:
		return "$" + group(fmt.Sprintf("%.0f", m))
	}
}

// group inserts thousands separators into the integer part of a formatted
// number.
func group(s string) string {
	intPart, decPart, hasDec := strings.Cut(s, ".")
	n := len(intPart)
	if n <= 3 {
		if hasDec {
			return intPart + "." + decPart
		}
		return intPart
	}

	var sb strings.Builder
	rem := n % 3
	if rem > 0 {
		sb.WriteString(intPart[:rem])
	}
	for i := rem; i < n; i += 3 {
		if sb.Len() > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(intPart[i : i+3])
	}
	if hasDec {
		sb.WriteString("." + decPart)
	}
	return sb.String()
}
