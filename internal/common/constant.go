package common

// AuthorizationHeaderName carries the bearer token on outbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token inside the Authorization header.
const BearerPrefix = "Bearer "

// HealthPath is the liveness endpoint exposed by the auth server and probed
// by the worker's connectivity watcher.
const HealthPath = "/api/health"
