package state

import "time"

// Summary aggregates the recorded durations of one function, in seconds.
type Summary struct {
	Calls     int     `json:"calls"`
	TotalTime float64 `json:"total_time"`
	AvgTime   float64 `json:"avg_time"`
	MinTime   float64 `json:"min_time"`
	MaxTime   float64 `json:"max_time"`
}

// Functions returns the number of distinct functions with recorded timings.
func (t *Tracker) Functions() int {
	return len(t.timings)
}

// Timings computes per-function aggregates from the accumulated durations.
func (t *Tracker) Timings() map[string]Summary {
	out := make(map[string]Summary, len(t.timings))
	for key, durations := range t.timings {
		if len(durations) == 0 {
			continue
		}
		var total time.Duration
		minDur, maxDur := durations[0], durations[0]
		for _, d := range durations {
			total += d
			if d < minDur {
				minDur = d
			}
			if d > maxDur {
				maxDur = d
			}
		}
		out[key] = Summary{
			Calls:     len(durations),
			TotalTime: total.Seconds(),
			AvgTime:   total.Seconds() / float64(len(durations)),
			MinTime:   minDur.Seconds(),
			MaxTime:   maxDur.Seconds(),
		}
	}
	return out
}
