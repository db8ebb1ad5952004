// Package rotation picks the main creature of an episode while keeping any
// one creature from carrying too many episodes in a row.
package rotation

import (
	"github.com/dotcommander/fireverse/internal/domain/episode"
)

// DefaultRecentWindow is the cooldown, in episodes, before a main creature
// can lead again.
const DefaultRecentWindow = 3

// Selection is the creature plan of one episode.
type Selection struct {
	Main       string
	HasMain    bool
	Background []string
}

// MainPtr returns the main creature or nil when the pool was empty.
func (s Selection) MainPtr() *string {
	if !s.HasMain {
		return nil
	}
	name := s.Main
	return &name
}

// RecentThreshold is the first episode number inside the cooldown window
// that ends at episodeNumber.
func RecentThreshold(episodeNumber, recentWindow int) int {
	return max(1, episodeNumber-recentWindow+1)
}

// Eligible returns the candidates allowed to lead episodeNumber, in input
// order. When the cooldown rules out everyone the whole pool is eligible.
func Eligible(available []string, episodeNumber, recentWindow int, tracker *episode.CreatureTracker) []string {
	threshold := RecentThreshold(episodeNumber, recentWindow)
	eligible := make([]string, 0, len(available))
	for _, name := range available {
		if !ledSince(tracker, name, threshold) {
			eligible = append(eligible, name)
		}
	}
	if len(eligible) == 0 {
		eligible = append(eligible, available...)
	}
	return eligible
}

func ledSince(tracker *episode.CreatureTracker, name string, threshold int) bool {
	if tracker == nil {
		return false
	}
	for _, ep := range tracker.MainEpisodeAssignments[name] {
		if ep >= threshold {
			return true
		}
	}
	return false
}

// Choose returns the least-used eligible creature; ties go to the earliest
// candidate in input order.
func Choose(available []string, episodeNumber, recentWindow int, tracker *episode.CreatureTracker) (string, bool) {
	eligible := Eligible(available, episodeNumber, recentWindow, tracker)
	if len(eligible) == 0 {
		return "", false
	}
	best := eligible[0]
	bestCount := tracker.MainCount(best)
	for _, name := range eligible[1:] {
		if c := tracker.MainCount(name); c < bestCount {
			best, bestCount = name, c
		}
	}
	return best, true
}

// Select plans the creatures of an episode and records the plan in tracker.
//
// The chosen main creature gets episodeNumber appended to its main history,
// every other candidate gets it appended to its background history, and all
// candidates have their usage counter incremented. An empty pool selects
// nothing and leaves the tracker untouched. A nil tracker is treated as
// fresh and nothing is recorded.
func Select(available []string, episodeNumber, recentWindow int, tracker *episode.CreatureTracker) Selection {
	main, ok := Choose(available, episodeNumber, recentWindow, tracker)
	if !ok {
		return Selection{Background: []string{}}
	}

	sel := Selection{Main: main, HasMain: true, Background: make([]string, 0, len(available))}
	for _, name := range available {
		if name != main {
			sel.Background = append(sel.Background, name)
		}
	}

	if tracker != nil {
		record(tracker, available, episodeNumber, sel)
	}
	return sel
}

func record(tracker *episode.CreatureTracker, available []string, episodeNumber int, sel Selection) {
	tracker.Normalize()
	tracker.MainEpisodeAssignments[sel.Main] = append(tracker.MainEpisodeAssignments[sel.Main], episodeNumber)
	for _, name := range sel.Background {
		tracker.BackgroundAppearances[name] = append(tracker.BackgroundAppearances[name], episodeNumber)
	}
	for _, name := range available {
		tracker.CreaturesUsed[name]++
	}
}

// Spread reports the smallest and largest main-assignment counts across pool.
func Spread(tracker *episode.CreatureTracker, pool []string) (lo, hi int) {
	for i, name := range pool {
		c := tracker.MainCount(name)
		if i == 0 || c < lo {
			lo = c
		}
		if i == 0 || c > hi {
			hi = c
		}
	}
	return lo, hi
}
