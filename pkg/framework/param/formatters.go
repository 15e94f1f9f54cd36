package param

import (
	"fmt"
	"strconv"
	"strings"
)

// Common parameter formatters and parsers

// PercentFormatter formats a 0-1 amount as a percentage
func PercentFormatter(value float64) string {
	return fmt.Sprintf("%.0f%%", value*100)
}

// PercentParser parses "35%" or "0.35" into a 0-1 amount
func PercentParser(str string) (float64, error) {
	str = strings.TrimSpace(str)
	if strings.HasSuffix(str, "%") {
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(str, "%")), 64)
		if err != nil {
			return 0, err
		}
		return v / 100, nil
	}
	return strconv.ParseFloat(str, 64)
}

// SwingFormatter formats a swing ratio as the long:short split of a beat
func SwingFormatter(ratio float64) string {
	if ratio == 0.5 {
		return "Straight"
	}
	return fmt.Sprintf("%.0f:%.0f", ratio*100, (1-ratio)*100)
}

// SwingParser accepts "straight", "62:38" or a bare ratio
func SwingParser(str string) (float64, error) {
	str = strings.ToLower(strings.TrimSpace(str))
	if str == "straight" {
		return 0.5, nil
	}
	if long, short, ok := strings.Cut(str, ":"); ok {
		l, err := strconv.ParseFloat(strings.TrimSpace(long), 64)
		if err != nil {
			return 0, err
		}
		s, err := strconv.ParseFloat(strings.TrimSpace(short), 64)
		if err != nil {
			return 0, err
		}
		if l+s <= 0 {
			return 0, fmt.Errorf("invalid swing split: %s", str)
		}
		return l / (l + s), nil
	}
	return strconv.ParseFloat(str, 64)
}

// VelocityFormatter formats velocity offsets
func VelocityFormatter(value float64) string {
	return fmt.Sprintf("+%.1f vel", value)
}

// VelocityParser parses velocity offset strings
func VelocityParser(str string) (float64, error) {
	str = strings.TrimSpace(str)
	str = strings.TrimSuffix(str, "vel")
	str = strings.TrimPrefix(strings.TrimSpace(str), "+")
	return strconv.ParseFloat(strings.TrimSpace(str), 64)
}

// OnOffFormatter formats boolean as On/Off
func OnOffFormatter(value float64) string {
	if value > 0.5 {
		return "On"
	}
	return "Off"
}

// OnOffParser parses On/Off strings
func OnOffParser(str string) (float64, error) {
	str = strings.ToLower(strings.TrimSpace(str))
	switch str {
	case "on", "yes", "true", "1":
		return 1, nil
	case "off", "no", "false", "0":
		return 0, nil
	default:
		return 0, fmt.Errorf("expected 'on' or 'off', got: %s", str)
	}
}
