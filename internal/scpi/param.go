package scpi

import (
	"math"
	"strings"
)

// siSuffixes maps the SCPI magnitude suffixes of §4.8 to their multiplier.
// M and m are deliberately case-sensitive (mega vs milli); every other
// suffix accepts either case, matching the original parser exactly.
var siSuffixes = map[byte]float64{
	'T': 1e12, 't': 1e12,
	'G': 1e9, 'g': 1e9,
	'M': 1e6,
	'k': 1e3, 'K': 1e3,
	'm': 1e-3,
	'u': 1e-6, 'U': 1e-6,
	'n': 1e-9, 'N': 1e-9,
	'p': 1e-12, 'P': 1e-12,
	'f': 1e-15, 'F': 1e-15,
	'a': 1e-18, 'A': 1e-18,
}

// ParseParameter coerces a raw captured parameter string into a typed
// ParameterValue per descriptor, implementing §4.8. A result with
// Type == TypeInvalid signals coercion failure.
func ParseParameter(descriptor ParameterDescriptor, raw string) ParameterValue {
	switch descriptor.Type {
	case TypeString:
		return parseString(raw)
	case TypeNumber:
		return parseNumber(raw)
	case TypeBoolean:
		return parseBoolean(raw)
	case TypeEnum:
		return parseEnum(descriptor, raw)
	case TypeArbitraryData:
		return ParameterValue{Type: TypeArbitraryData, Data: []byte(raw)}
	default:
		return ParameterValue{Type: TypeInvalid}
	}
}

// parseString requires surrounding ASCII double quotes; \" escapes an
// inner quote, \\ escapes the following character literally. An
// unterminated escape at end of input is invalid.
func parseString(raw string) ParameterValue {
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return ParameterValue{Type: TypeInvalid}
	}
	var b strings.Builder
	escape := false
	for i := 1; i < len(raw)-1; i++ {
		c := raw[i]
		switch {
		case escape:
			b.WriteByte(c)
			escape = false
		case c == '\\':
			escape = true
		default:
			b.WriteByte(c)
		}
	}
	if escape {
		return ParameterValue{Type: TypeInvalid}
	}
	return ParameterValue{Type: TypeString, Text: b.String()}
}

func parseBoolean(raw string) ParameterValue {
	switch {
	case strings.EqualFold(raw, "true") || raw == "1":
		return ParameterValue{Type: TypeBoolean, Boolean: true}
	case strings.EqualFold(raw, "false") || raw == "0":
		return ParameterValue{Type: TypeBoolean, Boolean: false}
	default:
		return ParameterValue{Type: TypeInvalid}
	}
}

func parseEnum(descriptor ParameterDescriptor, raw string) ParameterValue {
	for _, choice := range descriptor.Choices {
		if strings.EqualFold(raw, choice) {
			return ParameterValue{Type: TypeEnum, Text: choice}
		}
	}
	return ParameterValue{Type: TypeInvalid}
}

// parseNumber scans raw by hand rather than through strconv.ParseFloat,
// because a valid SCPI number may carry a trailing SI suffix
// (strconv would simply reject it) after an optional scientific-notation
// exponent.
func parseNumber(raw string) ParameterValue {
	if raw == "" {
		return ParameterValue{Type: TypeInvalid}
	}
	i, n := 0, len(raw)

	for i < n && (raw[i] == ' ' || raw[i] == '\t') {
		i++
	}

	sign := 1.0
	if i < n && (raw[i] == '-' || raw[i] == '+') {
		if raw[i] == '-' {
			sign = -1.0
		}
		i++
	}

	value := 0.0
	hasDigits := false
	for i < n && raw[i] >= '0' && raw[i] <= '9' {
		value = value*10 + float64(raw[i]-'0')
		hasDigits = true
		i++
	}

	if i < n && raw[i] == '.' {
		i++
		decimal, divisor := 0.0, 1.0
		for i < n && raw[i] >= '0' && raw[i] <= '9' {
			decimal = decimal*10 + float64(raw[i]-'0')
			divisor *= 10
			hasDigits = true
			i++
		}
		value += decimal / divisor
	}

	if i < n && (raw[i] == 'e' || raw[i] == 'E') {
		i++
		expSign := 1.0
		if i < n && (raw[i] == '-' || raw[i] == '+') {
			if raw[i] == '-' {
				expSign = -1.0
			}
			i++
		}
		exponent := 0.0
		hasExpDigits := false
		for i < n && raw[i] >= '0' && raw[i] <= '9' {
			exponent = exponent*10 + float64(raw[i]-'0')
			hasExpDigits = true
			i++
		}
		if !hasExpDigits {
			return ParameterValue{Type: TypeInvalid}
		}
		value *= math.Pow(10, exponent*expSign)
	}

	if i < n {
		if multiplier, ok := siSuffixes[raw[i]]; ok {
			value *= multiplier
			i++
		}
	}

	for i < n && (raw[i] == ' ' || raw[i] == '\t') {
		i++
	}

	if i != n || !hasDigits {
		return ParameterValue{Type: TypeInvalid}
	}
	return ParameterValue{Type: TypeNumber, Number: value * sign}
}
