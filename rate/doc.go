// Package rate throttles request and authentication attempts per client key.
//
// Two variants are provided. Limiter is a general fixed-window counter for
// ordinary request traffic, kept in the shared redis store so the budget is
// enforced across instances, with a process-local fallback during outages.
// AuthLimiter is the stricter sliding-window variant for authentication
// endpoints: exceeding the attempt budget places the key in a fixed-duration
// lockout that expires only at its deadline, and a successful authentication
// never clears prior failures within the window.
//
// Keys are caller-supplied; the package only requires that the same actor
// maps to a stable key across retries.
package rate
