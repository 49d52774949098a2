// Package jsproc runs every environment in its own host process.
//
// The host is the calling executable re-executed with a marker argument, so
// programs using this package must call Init at the very start of main (and
// of TestMain). The host runs one jsvm environment and answers requests read
// from stdin, one JSON document per line.
//
// Limits are enforced outside of the interpreter: the host data segment is
// capped by rlimit and the host is killed once a run outlives its timeout,
// which also stops work done inside built-ins that cannot be interrupted.
package jsproc
