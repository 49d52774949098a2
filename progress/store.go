// Package progress keeps track of the challenges each user completed.
//
// The store lives in memory for the lifetime of its owner. The judger never
// sees the store, only the Notifier of a single user.
package progress

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/puzpuzpuz/xsync/v3"
)

// Store maps user id to the set of completed challenge ids.
// It is safe for concurrent use.
type Store struct {
	users *xsync.MapOf[string, mapset.Set[string]]
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{users: xsync.NewMapOf[string, mapset.Set[string]]()}
}

// MarkCompleted records the challenge for the user and reports whether it
// was new
func (s *Store) MarkCompleted(user, challengeID string) bool {
	set, _ := s.users.LoadOrCompute(user, func() mapset.Set[string] {
		return mapset.NewSet[string]()
	})
	return set.Add(challengeID)
}

// Completed returns the sorted challenge ids completed by the user
func (s *Store) Completed(user string) []string {
	set, ok := s.users.Load(user)
	if !ok {
		return []string{}
	}
	return sorted(set)
}

// All returns the completed challenges of every user
func (s *Store) All() map[string][]string {
	rt := make(map[string][]string, s.users.Size())
	s.users.Range(func(user string, set mapset.Set[string]) bool {
		rt[user] = sorted(set)
		return true
	})
	return rt
}

// Clear removes the progress of the user and reports whether there was any
func (s *Store) Clear(user string) bool {
	_, ok := s.users.LoadAndDelete(user)
	return ok
}

// ClearAll removes the progress of every user
func (s *Store) ClearAll() {
	s.users.Clear()
}

// For returns the capability to mark challenges completed for one user
func (s *Store) For(user string) Notifier {
	return NotifierFunc(func(challengeID string) {
		s.MarkCompleted(user, challengeID)
	})
}

func sorted(set mapset.Set[string]) []string {
	rt := set.ToSlice()
	slices.Sort(rt)
	return rt
}
