package models

import (
	"strings"
	"time"
)

// SummaryHeaderTitle is the fixed label prepended to every summary.
const SummaryHeaderTitle = "Крипто Сводка"

// SummaryDocument is the final artifact of a pipeline run: a fixed header
// with the generation timestamp, followed by either model output or the
// deterministic fallback text. Delivery treats the whole thing as opaque
// HTML-subset text.
type SummaryDocument struct {
	GeneratedAt time.Time
	Body        string
}

// Header renders the fixed title line with the UTC generation timestamp.
func (d SummaryDocument) Header() string {
	return "<b>" + SummaryHeaderTitle + "</b> | " +
		d.GeneratedAt.UTC().Format("02.01.2006 15:04") + " UTC\n" +
		strings.Repeat("=", 30) + "\n\n"
}

// Text returns the full deliverable message.
func (d SummaryDocument) Text() string {
	return d.Header() + d.Body
}
