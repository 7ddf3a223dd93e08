package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var PrayerNames = [5]string{"Fajr", "Dhuhr", "Asr", "Maghrib", "Isha"}

var ErrInvalidClock = errors.New("invalid clock time")

type Prayer struct {
	Name string `json:"name"`
	// Time est au format 24h "HH:MM".
	Time string `json:"time"`
}

// Schedule contient exactement 5 prières, dans l'ordre de la journée.
type Schedule [5]Prayer

type Timings struct {
	Fajr    string
	Dhuhr   string
	Asr     string
	Maghrib string
	Isha    string
}

func (t Timings) Schedule() Schedule {
	return Schedule{
		{Name: PrayerNames[0], Time: t.Fajr},
		{Name: PrayerNames[1], Time: t.Dhuhr},
		{Name: PrayerNames[2], Time: t.Asr},
		{Name: PrayerNames[3], Time: t.Maghrib},
		{Name: PrayerNames[4], Time: t.Isha},
	}
}

// ParseClock convertit "HH:MM" en minutes depuis minuit.
func ParseClock(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hours, err := strconv.Atoi(h)
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	minutes, err := strconv.Atoi(m)
	if err != nil || len(m) != 2 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return hours*60 + minutes, nil
}

// NextPrayer renvoie l'index de la première prière dont l'heure est strictement
// après now (minutes depuis minuit). Si toutes sont passées, renvoie 0 (Fajr du lendemain).
// Une heure illisible est ignorée.
func NextPrayer(s Schedule, now int) int {
	for i, p := range s {
		t, err := ParseClock(p.Time)
		if err != nil {
			continue
		}
		if t > now {
			return i
		}
	}
	return 0
}

// FormatClock12h convertit "HH:MM" (24h) en "h:MM AM|PM"; 0h et 12h s'affichent 12.
func FormatClock12h(s string) (string, error) {
	total, err := ParseClock(s)
	if err != nil {
		return "", err
	}
	h, m := total/60, total%60
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, m, suffix), nil
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DefaultCoordinates (Londres) sert de repli quand la localisation échoue.
var DefaultCoordinates = Coordinates{Latitude: 51.5074, Longitude: -0.1278}
