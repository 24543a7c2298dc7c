package supervisor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	statex "github.com/laserhenk/henk-agent/agent/state"
)

// Appointment details arrive in free text, usually piecemeal ("Donnerstag um
// 15 Uhr", then "im Showroom"). The parser pulls out whatever parts the
// current message carries; merging with already collected parts happens in
// the routing shortcut.

var (
	fullDateRe   = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{4})\b`)
	isoDateRe    = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	shortDateRe  = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.`)
	clockTimeRe  = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	spokenHourRe = regexp.MustCompile(`\bum\s+(\d{1,2})\s*uhr\b`)
	locationRe   = regexp.MustCompile(`(?:\bin|\bim|\bbei)\s+([A-ZÄÖÜ][A-Za-zäöüß\-]+)`)
)

// Canonical places customers name without capitalizing.
var knownPlaces = []struct {
	key       string
	canonical string
}{
	{"showroom", "Showroom"},
	{"atelier", "Atelier"},
	{"studio", "Studio"},
	{"online", "Online"},
	{"zuhause", "Zuhause"},
}

// Words the location pattern captures that are never places.
var locationStopwords = map[string]bool{
	"ordnung": true,
	"kürze":   true,
	"ruhe":    true,
}

// ParseAppointment extracts location, date and time parts present in the
// message. Fields the message does not mention stay empty. Relative dates
// resolve against now.
func ParseAppointment(message string, now time.Time) statex.Appointment {
	lower := strings.ToLower(message)
	return statex.Appointment{
		Location: parseLocation(message, lower),
		Date:     parseDate(lower, now),
		Time:     parseTime(lower),
	}
}

func parseDate(lower string, now time.Time) string {
	if m := fullDateRe.FindStringSubmatch(lower); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if plausibleDate(day, month) {
			return fmt.Sprintf("%02d.%02d.%04d", day, month, year)
		}
	}
	if m := isoDateRe.FindStringSubmatch(lower); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if plausibleDate(day, month) {
			return fmt.Sprintf("%02d.%02d.%04d", day, month, year)
		}
	}
	// Order matters: "übermorgen" contains "morgen".
	switch {
	case strings.Contains(lower, "übermorgen"):
		return now.AddDate(0, 0, 2).Format("02.01.2006")
	case strings.Contains(lower, "morgen"):
		return now.AddDate(0, 0, 1).Format("02.01.2006")
	case strings.Contains(lower, "heute"):
		return now.Format("02.01.2006")
	}
	if m := shortDateRe.FindStringSubmatch(lower); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if plausibleDate(day, month) {
			return fmt.Sprintf("%02d.%02d.%04d", day, month, now.Year())
		}
	}
	return ""
}

func plausibleDate(day, month int) bool {
	return day >= 1 && day <= 31 && month >= 1 && month <= 12
}

func parseTime(lower string) string {
	if m := clockTimeRe.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour <= 23 && minute <= 59 {
			return fmt.Sprintf("%02d:%02d", hour, minute)
		}
	}
	if m := spokenHourRe.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if hour <= 23 {
			return fmt.Sprintf("%02d:00", hour)
		}
	}
	return ""
}

func parseLocation(message, lower string) string {
	for _, place := range knownPlaces {
		if strings.Contains(lower, place.key) {
			return place.canonical
		}
	}
	if m := locationRe.FindStringSubmatch(message); m != nil {
		if !locationStopwords[strings.ToLower(m[1])] {
			return m[1]
		}
	}
	return ""
}
