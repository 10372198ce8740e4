package entity

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	fullDateRe  = regexp.MustCompile(`(\d{4})[/-](\d{1,2})[/-](\d{1,2})`)
	shortDateRe = regexp.MustCompile(`(\d{1,2})/(\d{1,2})`)
	cjkDateRe   = regexp.MustCompile(`(\d{1,2})月(\d{1,2})日`)
)

// DateExtractor pulls calendar dates in three forms: full YYYY/MM/DD
// (also with dashes), short M/D, and the localized M月D日 form. Full
// matches are applied first and their character ranges are masked so
// the short-form rule cannot re-match the tail of 2025/3/26 as 3/26.
// Short and localized forms default to the current year.
type DateExtractor struct {
	now func() time.Time
}

func NewDateExtractor() *DateExtractor {
	return &DateExtractor{now: time.Now}
}

func (e *DateExtractor) Type() Type { return TypeDate }

func (e *DateExtractor) Extract(text string) []Entity {
	var out []Entity
	var consumed []span

	for _, m := range fullDateRe.FindAllStringSubmatchIndex(text, -1) {
		year, _ := strconv.Atoi(text[m[2]:m[3]])
		month, _ := strconv.Atoi(text[m[4]:m[5]])
		day, _ := strconv.Atoi(text[m[6]:m[7]])
		if !validMonthDay(month, day) {
			continue
		}
		consumed = append(consumed, span{m[0], m[1]})
		out = append(out, Entity{
			Original:   text[m[0]:m[1]],
			Normalized: fmt.Sprintf("%04d/%02d/%02d", year, month, day),
			Type:       TypeDate,
		})
	}

	year := e.now().Year()
	for _, m := range shortDateRe.FindAllStringSubmatchIndex(text, -1) {
		if overlaps(consumed, m[0], m[1]) {
			continue
		}
		month, _ := strconv.Atoi(text[m[2]:m[3]])
		day, _ := strconv.Atoi(text[m[4]:m[5]])
		if !validMonthDay(month, day) {
			continue
		}
		consumed = append(consumed, span{m[0], m[1]})
		out = append(out, Entity{
			Original:   text[m[0]:m[1]],
			Normalized: fmt.Sprintf("%04d/%02d/%02d", year, month, day),
			Type:       TypeDate,
		})
	}

	for _, m := range cjkDateRe.FindAllStringSubmatchIndex(text, -1) {
		if overlaps(consumed, m[0], m[1]) {
			continue
		}
		month, _ := strconv.Atoi(text[m[2]:m[3]])
		day, _ := strconv.Atoi(text[m[4]:m[5]])
		if !validMonthDay(month, day) {
			continue
		}
		out = append(out, Entity{
			Original:   text[m[0]:m[1]],
			Normalized: fmt.Sprintf("%04d/%02d/%02d", year, month, day),
			Type:       TypeDate,
		})
	}

	return out
}

type span struct{ start, end int }

func overlaps(spans []span, start, end int) bool {
	for _, s := range spans {
		if start < s.end && end > s.start {
			return true
		}
	}
	return false
}

func validMonthDay(month, day int) bool {
	return month >= 1 && month <= 12 && day >= 1 && day <= 31
}
