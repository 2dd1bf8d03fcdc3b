package gps

import (
	"fmt"
	"os"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// ReadMetadata reads GPS tags from an image file. It returns nil, nil when
// the image carries no EXIF block or no GPS coordinates.
func ReadMetadata(path string) (m *Metadata, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	defer func() {
		if r := recover(); r != nil {
			m, err = nil, fmt.Errorf("decode exif: %v", r)
		}
	}()

	x, err := exif.Decode(f)
	if err != nil {
		return nil, nil
	}

	lat := rationals(x, exif.GPSLatitude)
	lon := rationals(x, exif.GPSLongitude)
	if len(lat) == 0 || len(lon) == 0 {
		return nil, nil
	}
	return &Metadata{
		Latitude:     lat,
		LatitudeRef:  stringTag(x, exif.GPSLatitudeRef),
		Longitude:    lon,
		LongitudeRef: stringTag(x, exif.GPSLongitudeRef),
	}, nil
}

func rationals(x *exif.Exif, name exif.FieldName) []Rational {
	tag, err := x.Get(name)
	if err != nil || tag.Format() != tiff.RatVal {
		return nil
	}
	out := make([]Rational, 0, tag.Count)
	for i := 0; i < int(tag.Count); i++ {
		num, den, err := tag.Rat2(i)
		if err != nil {
			out = append(out, Rational{})
			continue
		}
		out = append(out, Rational{Num: num, Den: den})
	}
	return out
}

func stringTag(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return s
}
