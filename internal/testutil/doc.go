// Package testutil provides deterministic fakes for scheduler and driver
// tests: a scripted process launcher and an in-memory file system with a
// logical modification clock.
package testutil
