// Package instrument parses and formats Deribit option instrument names.
//
// Instrument names follow the pattern {UNDERLYING}-{DDMMMYY}-{STRIKE}-{C|P},
// e.g. "BTC-27DEC24-100000-C" or "ETH-7MAR25-5000-P". The day component may
// or may not be zero padded; parsing preserves the original spelling so that
// Name() reproduces the input byte for byte.
package instrument

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Option kinds as they appear in instrument names.
const (
	Call = "C"
	Put  = "P"
)

// namePattern matches a full instrument name. Underlyings are the fixed set
// Deribit lists options for.
var namePattern = regexp.MustCompile(
	`^(BTC|ETH)-(\d{1,2})([A-Z]{3})(\d{2})-(\d+)-([CP])$`,
)

var monthCodes = map[string]time.Month{
	"JAN": time.January,
	"FEB": time.February,
	"MAR": time.March,
	"APR": time.April,
	"MAY": time.May,
	"JUN": time.June,
	"JUL": time.July,
	"AUG": time.August,
	"SEP": time.September,
	"OCT": time.October,
	"NOV": time.November,
	"DEC": time.December,
}

var monthAbbr = [12]string{
	"JAN", "FEB", "MAR", "APR", "MAY", "JUN",
	"JUL", "AUG", "SEP", "OCT", "NOV", "DEC",
}

// ParseError reports an instrument name that does not match the grammar.
type ParseError struct {
	Name   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid instrument name %q: %s", e.Name, e.Reason)
}

// Instrument is a decoded instrument name.
//
// ExpiryCode and StrikeCode hold the components exactly as they appeared in
// the parsed name, so Name() is the exact inverse of Parse.
type Instrument struct {
	Underlying string    // "BTC" or "ETH"
	Expiry     time.Time // expiry date, midnight UTC
	ExpiryCode string    // e.g. "27DEC24" or "7MAR25"
	Strike     float64   // strike price
	StrikeCode string    // strike digits as given
	OptionType string    // Call or Put
}

// IsCall reports whether the instrument is a call option.
func (i Instrument) IsCall() bool { return i.OptionType == Call }

// IsPut reports whether the instrument is a put option.
func (i Instrument) IsPut() bool { return i.OptionType == Put }

// Name reassembles the full instrument name from the original components.
func (i Instrument) Name() string {
	return i.Underlying + "-" + i.ExpiryCode + "-" + i.StrikeCode + "-" + i.OptionType
}

// Parse decodes an instrument name into its components. Any deviation from
// the grammar returns a *ParseError; nothing is silently defaulted.
func Parse(name string) (Instrument, error) {
	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return Instrument{}, &ParseError{
			Name:   name,
			Reason: "expected {UNDERLYING}-{DDMMMYY}-{STRIKE}-{C|P}",
		}
	}

	underlying, dayStr, monthStr, yearStr, strikeStr, optType := m[1], m[2], m[3], m[4], m[5], m[6]

	month, ok := monthCodes[monthStr]
	if !ok {
		return Instrument{}, &ParseError{Name: name, Reason: "unknown month " + monthStr}
	}

	day, err := strconv.Atoi(dayStr)
	if err != nil || day < 1 || day > 31 {
		return Instrument{}, &ParseError{Name: name, Reason: "invalid day " + dayStr}
	}

	year, _ := strconv.Atoi(yearStr) // two digits, always parses
	year += 2000

	expiry := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range days (e.g. 31FEB); reject those.
	if expiry.Day() != day || expiry.Month() != month {
		return Instrument{}, &ParseError{
			Name:   name,
			Reason: fmt.Sprintf("no such date %s%s%s", dayStr, monthStr, yearStr),
		}
	}

	strike, err := strconv.ParseFloat(strikeStr, 64)
	if err != nil {
		return Instrument{}, &ParseError{Name: name, Reason: "invalid strike " + strikeStr}
	}

	return Instrument{
		Underlying: underlying,
		Expiry:     expiry,
		ExpiryCode: dayStr + monthStr + yearStr,
		Strike:     strike,
		StrikeCode: strikeStr,
		OptionType: optType,
	}, nil
}

// IsValid reports whether a name matches the instrument grammar without
// fully decoding it.
func IsValid(name string) bool {
	return namePattern.MatchString(name)
}

// Format builds a canonical instrument name from components. Days are not
// zero padded and strikes are rendered as integers, matching Deribit's own
// canonical spelling. Parse(Format(...)) returns the same components.
func Format(underlying string, expiry time.Time, strike float64, optionType string) (string, error) {
	if underlying != "BTC" && underlying != "ETH" {
		return "", &ParseError{Name: underlying, Reason: "unknown underlying"}
	}
	if optionType != Call && optionType != Put {
		return "", &ParseError{Name: optionType, Reason: "option type must be C or P"}
	}
	if strike < 0 {
		return "", &ParseError{Name: strconv.FormatFloat(strike, 'f', -1, 64), Reason: "negative strike"}
	}

	code := fmt.Sprintf("%d%s%02d", expiry.Day(), monthAbbr[expiry.Month()-1], expiry.Year()%100)
	return fmt.Sprintf("%s-%s-%d-%s", underlying, code, int64(strike), optionType), nil
}
