//go:build race

package jsproc

// the race detector maps its shadow memory as data, which no useful data
// segment limit leaves room for
const raceEnabled = true
