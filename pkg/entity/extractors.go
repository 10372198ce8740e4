package entity

import (
	"regexp"
	"strconv"
	"strings"
)

// Extractor is one independent pattern rule. Implementations are pure
// functions over the input text: no side effects, no errors, and an
// empty slice when nothing matches.
type Extractor interface {
	Type() Type
	Extract(text string) []Entity
}

var (
	flightRe      = regexp.MustCompile(`(?i)\b([A-Z][A-Z0-9])(\d{2,4})\b`)
	bookingRefRe  = regexp.MustCompile(`(?i)\b` + BookingRefPrefix + `(\d{7,})\b`)
	pnrRe         = regexp.MustCompile(`(?i)\b([A-Z0-9]{6})\b`)
	iataRe        = regexp.MustCompile(`\b([A-Z]{3})\b`)
	passengerRes  = []*regexp.Regexp{
		regexp.MustCompile(`(\d{1,3})\s*位`),
		regexp.MustCompile(`(\d{1,3})\s*(?:個)?人`),
		regexp.MustCompile(`(?i)(\d{1,3})\s*(?:passengers?|pax)`),
	}
	cjkPassengerRe = regexp.MustCompile(`([一兩二三四五六七八九十])\s*(?:位|個人|人)`)
	taxIDRe        = regexp.MustCompile(`\b(\d{8})\b`)
	mobileRe       = regexp.MustCompile(`\b(09\d{8})\b`)
	landlineRe     = regexp.MustCompile(`\b(0\d{1,2}-\d{6,8})\b`)
)

// FlightNumberExtractor matches a two-character airline code (letter
// first, second may be a digit, as in B7) plus 2-4 digits, validated
// against the airline-code table. Tokens carrying the internal booking
// prefix are skipped so TRV0012345 never yields a phantom flight.
type FlightNumberExtractor struct{}

func (FlightNumberExtractor) Type() Type { return TypeFlightNumber }

func (FlightNumberExtractor) Extract(text string) []Entity {
	var out []Entity
	refSpans := bookingRefSpans(text)
	for _, m := range flightRe.FindAllStringSubmatchIndex(text, -1) {
		if overlaps(refSpans, m[0], m[1]) {
			continue
		}
		code := strings.ToUpper(text[m[2]:m[3]])
		if _, ok := airlineCodes[code]; !ok {
			continue
		}
		out = append(out, Entity{
			Original:   text[m[0]:m[1]],
			Normalized: code + text[m[4]:m[5]],
			Type:       TypeFlightNumber,
		})
	}
	return out
}

func bookingRefSpans(text string) []span {
	var spans []span
	for _, m := range bookingRefRe.FindAllStringIndex(text, -1) {
		spans = append(spans, span{m[0], m[1]})
	}
	return spans
}

// BookingRefExtractor prefers the internal TRV+digits format; the
// generic 6-character PNR form is accepted only when it mixes letters
// and digits, which filters out plain words and plain numbers.
type BookingRefExtractor struct{}

func (BookingRefExtractor) Type() Type { return TypeBookingRef }

func (BookingRefExtractor) Extract(text string) []Entity {
	var out []Entity
	var consumed []span

	for _, m := range bookingRefRe.FindAllStringIndex(text, -1) {
		consumed = append(consumed, span{m[0], m[1]})
		out = append(out, Entity{
			Original:   text[m[0]:m[1]],
			Normalized: strings.ToUpper(text[m[0]:m[1]]),
			Type:       TypeBookingRef,
		})
	}
	if len(out) > 0 {
		return out
	}

	for _, m := range pnrRe.FindAllStringSubmatchIndex(text, -1) {
		if overlaps(consumed, m[0], m[1]) {
			continue
		}
		tok := text[m[2]:m[3]]
		if !mixedAlnum(tok) {
			continue
		}
		out = append(out, Entity{
			Original:   tok,
			Normalized: strings.ToUpper(tok),
			Type:       TypeBookingRef,
		})
	}
	return out
}

func mixedAlnum(s string) bool {
	hasLetter, hasDigit := false, false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLetter = true
		}
	}
	return hasLetter && hasDigit
}

// DestinationExtractor unions three lookups: IATA code, direct city
// mention, and a country/region fallback. Duplicate representations of
// the same place are tolerated; callers dedupe by normalized value.
type DestinationExtractor struct{}

func (DestinationExtractor) Type() Type { return TypeDestination }

func (DestinationExtractor) Extract(text string) []Entity {
	var out []Entity
	lower := strings.ToLower(text)

	for _, m := range iataRe.FindAllStringSubmatch(text, -1) {
		if city, ok := iataCities[m[1]]; ok {
			out = append(out, Entity{Original: m[1], Normalized: city, Type: TypeDestination})
		}
	}

	for name, city := range cityNames {
		if isASCII(name) {
			if strings.Contains(lower, name) {
				out = append(out, Entity{Original: name, Normalized: city, Type: TypeDestination})
			}
			continue
		}
		if strings.Contains(text, name) {
			out = append(out, Entity{Original: name, Normalized: city, Type: TypeDestination})
		}
	}

	for kw, country := range countryKeywords {
		if strings.Contains(text, kw) {
			out = append(out, Entity{Original: kw, Normalized: country, Type: TypeDestination})
		}
	}

	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// PassengerCountExtractor reads counting phrases and clamps the result
// to 1..50 so unrelated numbers (prices, timestamps) are rejected.
type PassengerCountExtractor struct{}

const (
	minPassengers = 1
	maxPassengers = 50
)

func (PassengerCountExtractor) Type() Type { return TypePassengerCount }

func (PassengerCountExtractor) Extract(text string) []Entity {
	for _, re := range passengerRes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < minPassengers || n > maxPassengers {
			continue
		}
		return []Entity{{Original: m[0], Normalized: strconv.Itoa(n), Type: TypePassengerCount}}
	}

	if m := cjkPassengerRe.FindStringSubmatch(text); m != nil {
		if n, ok := chineseNumerals[m[1]]; ok {
			return []Entity{{Original: m[0], Normalized: strconv.Itoa(n), Type: TypePassengerCount}}
		}
	}
	return nil
}

// keywordExtractor is the shared shape of the cabin-class, direction
// and seat-preference rules: a keyword table mapped to enum values,
// case-insensitive for Latin terms.
type keywordExtractor struct {
	typ   Type
	table map[string]string
}

func (e keywordExtractor) Type() Type { return e.typ }

func (e keywordExtractor) Extract(text string) []Entity {
	lower := strings.ToLower(text)
	for kw, val := range e.table {
		haystack := text
		if isASCII(kw) {
			haystack = lower
		}
		if strings.Contains(haystack, kw) {
			return []Entity{{Original: kw, Normalized: val, Type: e.typ}}
		}
	}
	return nil
}

func NewCabinClassExtractor() Extractor {
	return keywordExtractor{typ: TypeCabinClass, table: cabinClasses}
}

func NewDirectionExtractor() Extractor {
	return keywordExtractor{typ: TypeDirection, table: directions}
}

func NewSeatPreferenceExtractor() Extractor {
	return keywordExtractor{typ: TypeSeatPreference, table: seatPreferences}
}

// TaxIDExtractor accepts an 8-digit number only when a trigger word
// appears in the text, which keeps it apart from phone fragments and
// other 8-digit noise.
type TaxIDExtractor struct{}

func (TaxIDExtractor) Type() Type { return TypeTaxID }

func (TaxIDExtractor) Extract(text string) []Entity {
	lower := strings.ToLower(text)
	triggered := false
	for _, t := range taxIDTriggers {
		if strings.Contains(lower, t) {
			triggered = true
			break
		}
	}
	if !triggered {
		return nil
	}
	m := taxIDRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return []Entity{{Original: m[1], Normalized: m[1], Type: TypeTaxID}}
}

// PhoneExtractor matches mobile (09xxxxxxxx) and dashed landline
// numbers; mobile wins when both appear.
type PhoneExtractor struct{}

func (PhoneExtractor) Type() Type { return TypePhone }

func (PhoneExtractor) Extract(text string) []Entity {
	if m := mobileRe.FindStringSubmatch(text); m != nil {
		return []Entity{{Original: m[1], Normalized: m[1], Type: TypePhone}}
	}
	if m := landlineRe.FindStringSubmatch(text); m != nil {
		normalized := strings.ReplaceAll(m[1], "-", "")
		return []Entity{{Original: m[1], Normalized: normalized, Type: TypePhone}}
	}
	return nil
}
