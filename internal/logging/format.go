package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	logTimestampLayout = "2006-01-02 15:04:05.000"
	// maxConsoleValueRunes bounds a single attribute on the console; data:
	// locators and markdown bodies would otherwise flood the terminal.
	maxConsoleValueRunes = 200
	redactedValue        = "[redacted]"
)

// sensitiveKeys never reach a log sink verbatim.
var sensitiveKeys = map[string]struct{}{
	"authorization": {},
	"api_token":     {},
	"token":         {},
}

func isSensitive(key string) bool {
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}
	_, ok := sensitiveKeys[strings.ToLower(key)]
	return ok
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(logTimestampLayout)
}

// attrString renders v without quoting, for subject fields.
func attrString(v slog.Value) string {
	return renderValue(v, false)
}

// formatValue renders v for a console detail line.
func formatValue(v slog.Value) string {
	return renderValue(v, true)
}

func renderValue(v slog.Value, quote bool) string {
	v = v.Resolve()
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return formatTimestamp(v.Time())
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	s = truncateValue(s)
	if quote && needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func truncateValue(s string) string {
	if utf8.RuneCountInString(s) <= maxConsoleValueRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxConsoleValueRunes]) + fmt.Sprintf("…(+%d)", len(runes)-maxConsoleValueRunes)
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}
