package types

// Version is the canonical project version.
// The CLI, the attempt report schema, and the history journal format all
// share this version.
const Version = "0.3.0"
