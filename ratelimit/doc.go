// Package ratelimit provides an adaptive per-key rate limiter for request
// admission.
//
// Each key (a client, tenant, or API-key identity) is tracked with a
// sustained window and a tighter burst window. On top of the hard limits,
// timing heuristics flag automated traffic: sub-human inter-request
// intervals, unnaturally uniform periodicity, and known automation agent
// signatures. Suspicious keys are admitted at a reduced ceiling rather than
// rejected outright, and repeat violators are blocked until an explicit
// reset.
//
//	limiter := ratelimit.NewLimiter(ratelimit.Config{
//		Window:      time.Minute,
//		MaxRequests: 100,
//	})
//	defer limiter.Close()
//
//	d := limiter.Admit("tenant-42", ratelimit.RequestMeta{Agent: ua})
//	if !d.Allowed {
//		return d.Err("tenant-42")
//	}
package ratelimit
