package weather

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/i474232898/grid-point-interpolation/internal/grid"
)

// ErrMalformedSample is returned when a sample's arrays are not aligned.
var ErrMalformedSample = errors.New("malformed weather sample")

// Values is a numeric series where NaN marks a missing value.
// It encodes NaN as JSON null and decodes null as NaN.
type Values []float64

// MarshalJSON implements json.Marshaler.
func (v Values) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			buf.WriteByte(',')
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			buf.WriteString("null")
			continue
		}
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Values) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Values, len(raw))
	for i, p := range raw {
		if p == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *p
		}
	}
	*v = out
	return nil
}

// Sample is one retrieval result for a single grid location.
// Elevation is the ground elevation the source data refers to.
type Sample struct {
	Time                []time.Time `json:"time"`
	Temperature         Values      `json:"temperature"`
	Precipitation       Values      `json:"precipitation"`
	SnowDepth           Values      `json:"snow_depth"`
	NewSnowWater        Values      `json:"new_snow_water"`
	SnowWaterEquivalent Values      `json:"snow_water_equivalent"`
	Elevation           float64     `json:"elevation"`
}

// Len returns the length of the time axis.
func (s Sample) Len() int {
	return len(s.Time)
}

// Validate checks that every variable is aligned with the time axis.
func (s Sample) Validate() error {
	n := len(s.Time)
	cols := []struct {
		name string
		v    Values
	}{
		{"temperature", s.Temperature},
		{"precipitation", s.Precipitation},
		{"snow_depth", s.SnowDepth},
		{"new_snow_water", s.NewSnowWater},
		{"snow_water_equivalent", s.SnowWaterEquivalent},
	}
	for _, c := range cols {
		if len(c.v) != n {
			return fmt.Errorf("%w: %s has %d values, time axis has %d", ErrMalformedSample, c.name, len(c.v), n)
		}
	}
	return nil
}

// Series is the interpolated result: a time axis and five aligned variables.
type Series struct {
	Time                []time.Time `json:"time"`
	Temperature         Values      `json:"temperature"`
	Precipitation       Values      `json:"precipitation"`
	SnowDepth           Values      `json:"snow_depth"`
	NewSnowWater        Values      `json:"new_snow_water"`
	SnowWaterEquivalent Values      `json:"snow_water_equivalent"`
}

// EmptySeries returns a Series whose six arrays are empty but non-nil.
func EmptySeries() Series {
	return Series{
		Time:                []time.Time{},
		Temperature:         Values{},
		Precipitation:       Values{},
		SnowDepth:           Values{},
		NewSnowWater:        Values{},
		SnowWaterEquivalent: Values{},
	}
}

// Len returns the length of the time axis.
func (s Series) Len() int {
	return len(s.Time)
}

// SeriesFromSample copies a sample's arrays into a Series, unmodified.
func SeriesFromSample(s Sample) Series {
	return Series{
		Time:                append([]time.Time(nil), s.Time...),
		Temperature:         append(Values(nil), s.Temperature...),
		Precipitation:       append(Values(nil), s.Precipitation...),
		SnowDepth:           append(Values(nil), s.SnowDepth...),
		NewSnowWater:        append(Values(nil), s.NewSnowWater...),
		SnowWaterEquivalent: append(Values(nil), s.SnowWaterEquivalent...),
	}
}

// Station is a named location interpolated on a schedule.
type Station struct {
	Name  string     `json:"name"`
	Point grid.Point `json:"point"`
	ZMax  float64    `json:"zmax"`
	Label string     `json:"label,omitempty"`
}

// Key returns a canonical string key for indexing this station in stores.
func (s Station) Key() string {
	return s.Name
}

// Result is a stored interpolation for a station.
type Result struct {
	Station   Station   `json:"station"`
	Method    string    `json:"method"`
	CallID    string    `json:"callId"`
	Timestamp time.Time `json:"timestamp"` // always UTC
	Series    Series    `json:"series"`
}
