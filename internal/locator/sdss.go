// Package locator builds fetchable URLs from input records.
package locator

import (
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/Samael3003/SDSS-ImageExtract/internal/source"
)

// DefaultBaseURL is the SDSS DR12 image cutout service.
const DefaultBaseURL = "http://skyservice.pha.jhu.edu/DR12/ImgCutout/getjpeg.aspx"

// A Builder turns one input record into a locator URL. A returned error is
// terminal for the record: it is logged to the failure log and the record
// never enters the fetch pipeline.
type Builder func(source.Record) (string, error)

// Options configures the SDSS cutout builder.
type Options struct {
	// BaseURL of the cutout service.
	// Default: DefaultBaseURL
	BaseURL string

	// Pixels is the width and height of the requested cutout.
	// Default: 256
	Pixels int

	// FieldArcmin is the angular size of the imaged field in arcminutes.
	// Default: 1
	FieldArcmin float64
}

// SDSS returns a Builder for the SDSS image cutout service. The pixel
// scale is derived so the whole field fits the requested cutout:
// scale = field in arcseconds / pixels.
func SDSS(opts Options) Builder {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Pixels <= 0 {
		opts.Pixels = 256
	}
	if opts.FieldArcmin <= 0 {
		opts.FieldArcmin = 1
	}

	scale := opts.FieldArcmin * 60 / float64(opts.Pixels)

	return func(rec source.Record) (string, error) {
		ra, err := parseCoord(rec.RA)
		if err != nil {
			return "", fmt.Errorf("locator: record %s: bad RA %q", rec.ID, rec.RA)
		}
		dec, err := parseCoord(rec.Dec)
		if err != nil {
			return "", fmt.Errorf("locator: record %s: bad DEC %q", rec.ID, rec.Dec)
		}

		q := url.Values{}
		q.Set("ra", strconv.FormatFloat(ra, 'f', -1, 64))
		q.Set("dec", strconv.FormatFloat(dec, 'f', -1, 64))
		q.Set("width", strconv.Itoa(opts.Pixels))
		q.Set("height", strconv.Itoa(opts.Pixels))
		q.Set("scale", strconv.FormatFloat(scale, 'f', -1, 64))

		return opts.BaseURL + "?" + q.Encode(), nil
	}
}

func parseCoord(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite value: %q", s)
	}
	return v, nil
}
