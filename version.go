package liftlog

// Version is the liftlog release. Overridden at build time with
// -ldflags "-X github.com/aretw0/liftlog.Version=...".
var Version = "0.1.0"
