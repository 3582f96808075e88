package weather

import (
	"math"
	"sort"
	"time"
)

// ResampleDaily aggregates a series into UTC calendar days. Precipitation and
// new-snow water are summed; temperature, snow depth and snow-water
// equivalent are averaged. Missing values are ignored; a day with no valid
// value for a variable gets NaN for it. Days are returned in time order.
func ResampleDaily(s Series) Series {
	if s.Len() == 0 {
		return EmptySeries()
	}

	type bucket struct {
		day    time.Time
		sums   [5]float64
		counts [5]int
	}

	var (
		buckets []*bucket
		byDay   = make(map[time.Time]*bucket)
	)
	cols := [5]Values{s.Temperature, s.Precipitation, s.SnowDepth, s.NewSnowWater, s.SnowWaterEquivalent}

	for i, ts := range s.Time {
		ts = ts.UTC()
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		b, ok := byDay[day]
		if !ok {
			b = &bucket{day: day}
			byDay[day] = b
			buckets = append(buckets, b)
		}
		for c, col := range cols {
			if i < len(col) && !math.IsNaN(col[i]) {
				b.sums[c] += col[i]
				b.counts[c]++
			}
		}
	}

	// Precipitation (1) and new-snow water (3) are accumulations.
	summed := [5]bool{false, true, false, true, false}

	out := Series{
		Time:                make([]time.Time, 0, len(buckets)),
		Temperature:         make(Values, 0, len(buckets)),
		Precipitation:       make(Values, 0, len(buckets)),
		SnowDepth:           make(Values, 0, len(buckets)),
		NewSnowWater:        make(Values, 0, len(buckets)),
		SnowWaterEquivalent: make(Values, 0, len(buckets)),
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].day.Before(buckets[j].day) })
	for _, b := range buckets {
		var v [5]float64
		for c := range v {
			switch {
			case b.counts[c] == 0:
				v[c] = math.NaN()
			case summed[c]:
				v[c] = b.sums[c]
			default:
				v[c] = b.sums[c] / float64(b.counts[c])
			}
		}
		out.Time = append(out.Time, b.day)
		out.Temperature = append(out.Temperature, v[0])
		out.Precipitation = append(out.Precipitation, v[1])
		out.SnowDepth = append(out.SnowDepth, v[2])
		out.NewSnowWater = append(out.NewSnowWater, v[3])
		out.SnowWaterEquivalent = append(out.SnowWaterEquivalent, v[4])
	}
	return out
}
