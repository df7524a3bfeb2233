// Package venus computes the zodiac position of Venus for a birth date.
package venus

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	pe "github.com/soniakeys/meeus/v3/planetelements"
)

// ErrInvalidTimestamp is returned for zero times and dates outside the
// range the orbital elements are fitted for.
var ErrInvalidTimestamp = errors.New("venus: invalid timestamp")

// Sign is one of the twelve zodiac signs.
type Sign string

// Zodiac signs in ecliptic order starting at 0 degrees.
const (
	Aries       Sign = "aries"
	Taurus      Sign = "taurus"
	Gemini      Sign = "gemini"
	Cancer      Sign = "cancer"
	Leo         Sign = "leo"
	Virgo       Sign = "virgo"
	Libra       Sign = "libra"
	Scorpio     Sign = "scorpio"
	Sagittarius Sign = "sagittarius"
	Capricorn   Sign = "capricorn"
	Aquarius    Sign = "aquarius"
	Pisces      Sign = "pisces"
)

// Signs lists the zodiac in longitude order; Signs[i] spans [30i, 30i+30).
var Signs = [12]Sign{
	Aries, Taurus, Gemini, Cancer, Leo, Virgo,
	Libra, Scorpio, Sagittarius, Capricorn, Aquarius, Pisces,
}

// Element is the four-way grouping of signs.
type Element string

// Elements.
const (
	Fire  Element = "fire"
	Earth Element = "earth"
	Air   Element = "air"
	Water Element = "water"
)

// Element returns the element the sign belongs to.
func (s Sign) Element() Element {
	switch s {
	case Aries, Leo, Sagittarius:
		return Fire
	case Taurus, Virgo, Capricorn:
		return Earth
	case Gemini, Libra, Aquarius:
		return Air
	case Cancer, Scorpio, Pisces:
		return Water
	default:
		return ""
	}
}

// Valid reports whether s is one of the twelve signs.
func (s Sign) Valid() bool { return s.Element() != "" }

// Position is the derived zodiac placement.
type Position struct {
	Sign    Sign    `json:"sign"`
	Degree  float64 `json:"degree"`
	Decan   int     `json:"decan"`
	Element Element `json:"element"`
}

func (p Position) String() string {
	return fmt.Sprintf("%s %.1f° (decan %d, %s)", p.Sign, p.Degree, p.Decan, p.Element)
}

// Supported date range for the mean-element polynomials.
const (
	minYear = 1000
	maxYear = 3000
)

// Calculate returns the position of Venus at t.
func Calculate(t time.Time) (Position, error) {
	lon, err := Longitude(t)
	if err != nil {
		return Position{}, err
	}
	return FromLongitude(lon), nil
}

// ForDate evaluates the position at 12:00 UTC on the given calendar day.
func ForDate(year int, month time.Month, day int) (Position, error) {
	return Calculate(time.Date(year, month, day, 12, 0, 0, 0, time.UTC))
}

// FromLongitude maps an ecliptic longitude in degrees to a position.
// The reported degree is rounded to one decimal and clamped below 30 so
// that it always lies inside the sign chosen from the unrounded longitude.
func FromLongitude(lon float64) Position {
	lon = normalizeDegrees(lon)
	idx := int(math.Floor(lon/30)) % 12
	deg := math.Round(math.Mod(lon, 30)*10) / 10
	if deg >= 30 {
		deg = 29.9
	}
	sign := Signs[idx]
	return Position{
		Sign:    sign,
		Degree:  deg,
		Decan:   int(deg/10) + 1,
		Element: sign.Element(),
	}
}

// Longitude returns the geocentric ecliptic longitude of Venus in degrees,
// referred to the mean equinox of date.
func Longitude(t time.Time) (float64, error) {
	if t.IsZero() || t.Year() < minYear || t.Year() > maxYear {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTimestamp, t)
	}
	jde := julian.TimeToJD(t.UTC())
	vx, vy, _, err := heliocentric(pe.Venus, jde)
	if err != nil {
		return 0, fmt.Errorf("venus orbit: %w", err)
	}
	ex, ey, _, err := heliocentric(pe.Earth, jde)
	if err != nil {
		return 0, fmt.Errorf("earth orbit: %w", err)
	}
	return normalizeDegrees(rad2deg(math.Atan2(vy-ey, vx-ex))), nil
}

// sunLongitude is the geocentric longitude of the Sun, used by tests to
// bound the elongation of Venus.
func sunLongitude(t time.Time) float64 {
	ex, ey, _, err := heliocentric(pe.Earth, julian.TimeToJD(t.UTC()))
	if err != nil {
		return math.NaN()
	}
	return normalizeDegrees(rad2deg(math.Atan2(-ey, -ex)))
}

func normalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}

func rad2deg(r float64) float64 { return r * 180 / math.Pi }
