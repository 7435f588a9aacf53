package expense

import (
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/crisszkutnik/telegram-bot/core/apperr"
)

const (
	// DateLayout is how every date is rendered back to users and upstream.
	DateLayout = "02-01-2006"

	keywordToday     = "hoy"
	keywordYesterday = "ayer"
)

// Location is the business calendar. Dates are always interpreted and rendered
// in Argentina time regardless of the server locale.
var Location = loadLocation()

func loadLocation() *time.Location {
	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	if err != nil {
		return time.FixedZone("ART", -3*60*60)
	}
	return loc
}

// Day-first layouts; the first ones match DateLayout so echoed dates can be pasted back.
var flexibleDateLayouts = []string{
	"02-01-2006",
	"2-1-2006",
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"2.1.2006",
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"02/01/2006 15:04",
	"2006-01-02 15:04",
	"02.01.2006 15:04",
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// time.Parse only knows the abbreviations of the parse location and reads any
// other one as UTC, so the zones upstream producers emit are resolved here.
var zoneOffsets = map[string]int{
	"UTC":  0,
	"GMT":  0,
	"ART":  -3 * 3600,
	"BRT":  -3 * 3600,
	"EST":  -5 * 3600,
	"EDT":  -4 * 3600,
	"CST":  -6 * 3600,
	"CDT":  -5 * 3600,
	"MST":  -7 * 3600,
	"MDT":  -6 * 3600,
	"PST":  -8 * 3600,
	"PDT":  -7 * 3600,
	"CET":  1 * 3600,
	"CEST": 2 * 3600,
}

const abbrevTimestampLayout = "2006-01-02 15:04:05"

// ParseDate resolves a date token: "hoy", "ayer" or a calendar date.
// An unreadable token is a user error that echoes the token back.
func ParseDate(token string, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(token)
	switch strings.ToLower(s) {
	case keywordToday:
		return startOfDay(now), nil
	case keywordYesterday:
		return startOfDay(now).AddDate(0, 0, -1), nil
	}
	if t, ok := parseFlexibleDate(s); ok {
		return startOfDay(t), nil
	}
	return time.Time{}, apperr.Userf("La fecha %s no es una fecha valida", s)
}

// FormatDate renders t as DD-MM-YYYY in the business calendar.
func FormatDate(t time.Time) string {
	return t.In(Location).Format(DateLayout)
}

// ParseTimestamp reads an upstream timestamp such as "2025-03-20 14:30:45 PDT".
func ParseTimestamp(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if head, zone, ok := splitZoneAbbrev(s); ok {
		offset, known := zoneOffsets[strings.ToUpper(zone)]
		if !known {
			return time.Time{}, false
		}
		t, err := time.ParseInLocation(abbrevTimestampLayout, head, time.FixedZone(strings.ToUpper(zone), offset))
		return t, err == nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, Location); err == nil {
			return t, true
		}
	}
	return parseFlexibleDate(s)
}

// splitZoneAbbrev splits "2025-03-20 14:30:45 PDT" into the clock part and
// an alphabetic zone suffix.
func splitZoneAbbrev(s string) (string, string, bool) {
	i := strings.LastIndexByte(s, ' ')
	if i < 0 {
		return "", "", false
	}
	zone := s[i+1:]
	if len(zone) < 2 || len(zone) > 5 {
		return "", "", false
	}
	for _, r := range zone {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return "", "", false
		}
	}
	return strings.TrimSpace(s[:i]), zone, true
}

func parseFlexibleDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range flexibleDateLayouts {
		if t, err := time.ParseInLocation(layout, s, Location); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func startOfDay(t time.Time) time.Time {
	local := t.In(Location)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, Location)
}
