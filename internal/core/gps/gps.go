// Package gps converts embedded image location metadata into signed decimal degrees.
package gps

import "strings"

// Rational is a numerator/denominator angle component.
type Rational struct {
	Num int64
	Den int64
}

// Float returns the component value; ok is false when the denominator is zero.
func (r Rational) Float() (float64, bool) {
	if r.Den == 0 {
		return 0, false
	}
	return float64(r.Num) / float64(r.Den), true
}

// Metadata holds degree/minute/second components and hemisphere references.
type Metadata struct {
	Latitude     []Rational
	LatitudeRef  string
	Longitude    []Rational
	LongitudeRef string
}

// maxComponents is degrees, minutes and seconds.
const maxComponents = 3

// Decode returns latitude and longitude, or nil, nil when either coordinate is missing.
// Malformed components contribute nothing.
func Decode(m *Metadata) (lat, lon *float64) {
	if m == nil || len(m.Latitude) == 0 || len(m.Longitude) == 0 {
		return nil, nil
	}
	la := decimal(m.Latitude, m.LatitudeRef, "S")
	lo := decimal(m.Longitude, m.LongitudeRef, "W")
	return &la, &lo
}

func decimal(comps []Rational, ref, negative string) float64 {
	var v float64
	scale := 1.0
	for i, c := range comps {
		if i == maxComponents {
			break
		}
		if f, ok := c.Float(); ok {
			v += f / scale
		}
		scale *= 60
	}
	if strings.EqualFold(strings.TrimSpace(ref), negative) {
		v = -v
	}
	return v
}
