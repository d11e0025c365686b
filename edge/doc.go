// Package edge holds the request-routing boundary: a stateless bearer
// token verifier and a per-identity token-bucket rate limiter, both as
// gin middleware.
//
// The verifier checks signature and expiry only. It never consults the
// revocation store, so a logged-out-but-unexpired access token keeps
// passing routes guarded only by the edge until its natural expiry.
// That is the system's consistency model, not a bug: revocation is
// enforced synchronously at the authority's own endpoints (login,
// refresh), and edge enforcement is eventual, bounded by the access
// token TTL. The trade buys a store round-trip off every routed request.
package edge
