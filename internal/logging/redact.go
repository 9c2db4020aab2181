package logging

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultSensitiveFields are masked wherever they appear in entry fields.
// Matching is case-insensitive and by substring.
var DefaultSensitiveFields = []string{"token", "password", "secret", "x-ipac"}

const mask = "******"

// RedactHook masks sensitive fields before an entry is formatted.
type RedactHook struct {
	fields []string
}

// NewRedactHook returns a hook masking DefaultSensitiveFields plus extra.
func NewRedactHook(extra ...string) *RedactHook {
	fields := make([]string, 0, len(DefaultSensitiveFields)+len(extra))
	for _, f := range append(append([]string{}, DefaultSensitiveFields...), extra...) {
		fields = append(fields, strings.ToLower(f))
	}
	return &RedactHook{fields: fields}
}

// Levels implements logrus.Hook.
func (h *RedactHook) Levels() []logrus.Level { return logrus.AllLevels }

// Fire implements logrus.Hook.
func (h *RedactHook) Fire(e *logrus.Entry) error {
	for k, v := range e.Data {
		if h.sensitive(k) {
			e.Data[k] = maskValue(v)
			continue
		}
		if m, ok := v.(map[string]string); ok {
			e.Data[k] = h.redactMap(m)
		}
	}
	return nil
}

func (h *RedactHook) sensitive(key string) bool {
	key = strings.ToLower(key)
	for _, f := range h.fields {
		if strings.Contains(key, f) {
			return true
		}
	}
	return false
}

func (h *RedactHook) redactMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if h.sensitive(k) {
			out[k] = maskString(v)
			continue
		}
		out[k] = v
	}
	return out
}

func maskValue(v any) any {
	if s, ok := v.(string); ok {
		return maskString(s)
	}
	return mask
}

// maskString keeps the first two runes of long values so related log lines
// can still be told apart.
func maskString(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if len(r) <= 8 {
		return mask
	}
	return string(r[:2]) + mask
}
