// Package phone normalizes Mexican phone numbers to E.164 so that the
// sender address of an inbound message can be matched against the doctor
// directory regardless of formatting.
package phone

import "strings"

// NormalizeMX normalizes a raw phone string to +52 E.164 form.
// Ten-digit national numbers get the +52 country code, bare 52 prefixes
// gain the plus, and the legacy +521 mobile prefix collapses to +52.
func NormalizeMX(raw string) string {
	if raw == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		if r == '+' || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if strings.HasPrefix(s, "52") {
		s = "+" + s
	}
	if !strings.HasPrefix(s, "+") && len(s) == 10 {
		s = "+52" + s
	}
	if strings.HasPrefix(s, "+521") {
		s = "+52" + s[4:]
	}
	return s
}
