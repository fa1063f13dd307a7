// Package nlu extracts structured booking hints from free text: a booking
// intent flag, a calendar date, and candidate procedure/room selections.
// It is a keyword/regex ladder, not a language model; the dialog engine
// consumes only its typed output.
package nlu

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/medagenda/or-assistant/internal/directory"
)

var intentKeywords = []string{
	"reservar", "agendar", "reserva", "cita",
	"quirofano", "quirófano", "cirugia", "cirugía", "procedimiento",
}

// DetectBookingIntent reports whether the text looks like a booking request.
func DetectBookingIntent(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range intentKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

var (
	isoRe    = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	ddmmRe   = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})\b`)
	digitRe  = regexp.MustCompile(`\b(\d+)\b`)
	letterRe = regexp.MustCompile(`(?i)\b([A-Z])\b`)
)

var monthNumbers = map[string]time.Month{
	"enero": time.January, "febrero": time.February, "marzo": time.March,
	"abril": time.April, "mayo": time.May, "junio": time.June,
	"julio": time.July, "agosto": time.August, "septiembre": time.September,
	"octubre": time.October, "noviembre": time.November, "diciembre": time.December,
}

var monthPatterns = func() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(monthNumbers))
	for name := range monthNumbers {
		patterns[name] = regexp.MustCompile(`(\d{1,2})\s*(?:de)?\s*` + name)
	}
	return patterns
}()

// ParseDate finds a calendar date anywhere in the text: ISO YYYY-MM-DD,
// DD/MM or DD-MM, or natural Spanish ("29 de octubre"). Forms without a
// year resolve against the fixed operating year. Returns the zero time when
// nothing parses; impossible dates (e.g. 31/02) are rejected.
func ParseDate(text string, year int, loc *time.Location) time.Time {
	txt := strings.ToLower(strings.TrimSpace(text))

	if m := isoRe.FindStringSubmatch(txt); m != nil {
		y, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return makeDate(y, time.Month(month), day, loc)
	}

	if m := ddmmRe.FindStringSubmatch(txt); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		return makeDate(year, time.Month(month), day, loc)
	}

	for name, re := range monthPatterns {
		if m := re.FindStringSubmatch(txt); m != nil {
			day, _ := strconv.Atoi(m[1])
			return makeDate(year, monthNumbers[name], day, loc)
		}
	}

	return time.Time{}
}

// makeDate validates the combination: time.Date normalizes overflow (Feb 31
// becomes Mar 3), which for user input means a typo, not a date.
func makeDate(year int, month time.Month, day int, loc *time.Location) time.Time {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if t.Month() != month || t.Day() != day {
		return time.Time{}
	}
	return t
}

// ExtractProcedure resolves a procedure from text by numeric id, name
// substring, or a single letter index (A is the first catalog entry).
func ExtractProcedure(text string, procs []directory.Procedure) *directory.Procedure {
	lower := strings.ToLower(text)
	if m := digitRe.FindStringSubmatch(text); m != nil {
		if id, err := strconv.Atoi(m[1]); err == nil {
			for i := range procs {
				if procs[i].ID == id {
					return &procs[i]
				}
			}
		}
	}
	for i := range procs {
		if name := strings.ToLower(procs[i].Name); name != "" && strings.Contains(lower, name) {
			return &procs[i]
		}
	}
	if m := letterRe.FindStringSubmatch(text); m != nil {
		idx := int(strings.ToUpper(m[1])[0] - 'A')
		if idx >= 0 && idx < len(procs) {
			return &procs[idx]
		}
	}
	return nil
}

// ExtractRoom resolves a room from text by numeric id or name substring.
func ExtractRoom(text string, rooms []directory.Room) *directory.Room {
	lower := strings.ToLower(text)
	if m := digitRe.FindStringSubmatch(text); m != nil {
		if id, err := strconv.Atoi(m[1]); err == nil {
			for i := range rooms {
				if rooms[i].ID == id {
					return &rooms[i]
				}
			}
		}
	}
	for i := range rooms {
		if name := strings.ToLower(rooms[i].Name); name != "" && strings.Contains(lower, name) {
			return &rooms[i]
		}
	}
	return nil
}

var comboRe = regexp.MustCompile(`^\s*(\d+)\s*([A-Za-z])\s*$`)

// SplitCombined splits compact answers like "2C" into the room token and
// the procedure letter, as offered by the partial-intent prompt.
func SplitCombined(text string) (roomToken, procToken string, ok bool) {
	m := comboRe.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

var monthNamesES = []string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

var monthShortES = []string{
	"ene", "feb", "mar", "abr", "may", "jun",
	"jul", "ago", "sep", "oct", "nov", "dic",
}

// FormatDateES renders "29 de octubre".
func FormatDateES(t time.Time, loc *time.Location) string {
	d := t.In(loc)
	return strconv.Itoa(d.Day()) + " de " + monthNamesES[d.Month()-1]
}

// FormatDateShort renders "29 oct".
func FormatDateShort(t time.Time, loc *time.Location) string {
	d := t.In(loc)
	return strconv.Itoa(d.Day()) + " " + monthShortES[d.Month()-1]
}
