package contextkeys

type contextKey string

// IdentityKey carries the resolved caller identity set by the auth
// middleware.
const IdentityKey contextKey = "Identity"
