// Package inference derives semantic column types and a chart type from raw
// query results. Everything here is pure.
package inference

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"sqlpanel/internal/model"
)

var (
	plainNumberPattern   = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)
	percentNumberPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d+)?|\.\d+)%$`)
	currencyPattern      = regexp.MustCompile(`^[$¥€£](\d{1,3}(,\d{3})+|\d+)\.\d{2}$`)

	// Each date pattern captures the four-digit year.
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(\d{4})-\d{1,2}-\d{1,2}$`),
		regexp.MustCompile(`^(\d{4})/\d{1,2}/\d{1,2}$`),
		regexp.MustCompile(`^\d{1,2}/\d{1,2}/(\d{4})$`),
		regexp.MustCompile(`^(\d{4})-\d{2}-\d{2}[T ]\d{2}:\d{2}`),
		regexp.MustCompile(`^(\d{4})年\d{1,2}月\d{1,2}日$`),
	}

	booleanWords = map[string]struct{}{
		"true": {}, "false": {}, "yes": {}, "no": {}, "y": {}, "n": {},
		"是": {}, "否": {}, "1": {}, "0": {},
	}
)

const (
	minYearExclusive = 1900
	maxYearExclusive = 2100
)

// IdentifySemanticType classifies a column from its values. Null and blank
// values are ignored; a predicate must hold for every remaining value.
func IdentifySemanticType(values []any) model.SemanticType {
	var texts []string
	for _, v := range values {
		s, ok := Stringify(v)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		texts = append(texts, s)
	}
	if len(texts) == 0 {
		return model.SemanticString
	}

	switch {
	case all(texts, IsNumeric):
		return model.SemanticNumber
	case all(texts, IsDateLike):
		return model.SemanticDate
	case all(texts, IsBooleanLike):
		return model.SemanticBoolean
	default:
		return model.SemanticString
	}
}

func all(values []string, pred func(string) bool) bool {
	for _, v := range values {
		if !pred(v) {
			return false
		}
	}
	return true
}

// IsNumeric accepts plain and scientific numbers, percentages and
// single-currency amounts with two decimals.
func IsNumeric(s string) bool {
	return plainNumberPattern.MatchString(s) ||
		percentNumberPattern.MatchString(s) ||
		currencyPattern.MatchString(s)
}

// IsDateLike accepts the supported date layouts with a year in (1900, 2100).
func IsDateLike(s string) bool {
	for _, pattern := range datePatterns {
		m := pattern.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		year, err := strconv.Atoi(m[1])
		if err != nil {
			return false
		}
		return year > minYearExclusive && year < maxYearExclusive
	}
	return false
}

func IsBooleanLike(s string) bool {
	_, ok := booleanWords[strings.ToLower(s)]
	return ok
}

// Stringify renders a driver value as text. It reports false for nil.
func Stringify(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case []byte:
		return string(val), true
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case time.Time:
		return val.Format(time.RFC3339), true
	case *time.Time:
		if val == nil {
			return "", false
		}
		return val.Format(time.RFC3339), true
	case fmt.Stringer:
		return val.String(), true
	default:
		return fmt.Sprint(val), true
	}
}

// ToFloat converts numeric-looking values for chart series. Percent and
// currency markers are dropped.
func ToFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case uint32:
		return float64(val), true
	}

	s, ok := Stringify(v)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if !IsNumeric(s) {
		return 0, false
	}
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimLeft(s, "$¥€£")
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
