package logging

import (
	"regexp"
	"strings"
)

// secretPatterns match credential material that may end up inside error
// strings, URLs included.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|access[_-]?token|auth[_-]?token|bearer|password)[=:\s]+["']?([^\s"'&]+)["']?`),
	regexp.MustCompile(`sk-or-[A-Za-z0-9-]{20,}`), // OpenRouter keys
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),     // OpenAI keys
	regexp.MustCompile(`/bot\d+:[\w-]+/`),         // Telegram token in API paths
}

// MaskSecret replaces all but a short prefix of a credential.
func MaskSecret(value string) string {
	if len(value) <= 8 {
		return "***"
	}
	return value[:4] + "***"
}

// Redact masks the given secrets and any recognizable credential patterns in
// the input. Transport errors carry full request URLs, so anything derived
// from one must pass through here before logging or wrapping.
func Redact(input string, secrets ...string) string {
	out := input
	for _, s := range secrets {
		if s == "" {
			continue
		}
		out = strings.ReplaceAll(out, s, MaskSecret(s))
	}
	for _, p := range secretPatterns {
		out = p.ReplaceAllStringFunc(out, func(m string) string {
			if groups := p.FindStringSubmatch(m); len(groups) == 3 {
				return strings.Replace(m, groups[2], MaskSecret(groups[2]), 1)
			}
			return MaskSecret(m)
		})
	}
	return out
}
