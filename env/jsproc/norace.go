//go:build !race

package jsproc

const raceEnabled = false
