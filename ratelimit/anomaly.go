package ratelimit

import "time"

// observeTiming updates the key's anomaly state with one request arrival.
// A key flagged suspicious stays suspicious until Reset. Caller holds mu.
//
// Three signals are checked:
//   - streak: several consecutive inter-request gaps below MinInterval,
//     faster than a human plausibly clicks.
//   - uniformity: the last UniformitySamples gaps all within
//     UniformityJitter of their mean, machine-like periodicity.
//   - signature: the declared agent matches a known automation pattern.
func (l *Limiter) observeTiming(r *record, now time.Time, meta RequestMeta) {
	if !r.suspicious && l.agentMatches(meta.Agent) {
		r.suspicious = true
	}

	if r.lastRequest.IsZero() {
		r.lastRequest = now
		return
	}
	gap := now.Sub(r.lastRequest)
	r.lastRequest = now

	if l.cfg.MinInterval > 0 {
		if gap < l.cfg.MinInterval {
			r.fastStreak++
			if r.fastStreak >= l.cfg.MinIntervalStreak {
				r.suspicious = true
			}
		} else {
			r.fastStreak = 0
		}
	}

	if l.cfg.UniformitySamples > 0 {
		r.intervals = append(r.intervals, gap)
		if len(r.intervals) > l.cfg.UniformitySamples {
			r.intervals = r.intervals[1:]
		}
		if len(r.intervals) == l.cfg.UniformitySamples && l.uniform(r.intervals) {
			r.suspicious = true
		}
	}
}

// uniform reports whether every gap lies within UniformityJitter of the
// sample mean. A zero mean is ignored; the streak heuristic owns that case.
func (l *Limiter) uniform(gaps []time.Duration) bool {
	var sum time.Duration
	for _, g := range gaps {
		sum += g
	}
	mean := sum / time.Duration(len(gaps))
	if mean <= 0 {
		return false
	}

	tolerance := time.Duration(float64(mean) * l.cfg.UniformityJitter)
	for _, g := range gaps {
		d := g - mean
		if d < 0 {
			d = -d
		}
		if d > tolerance {
			return false
		}
	}
	return true
}
