package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// EpisodeGlob matches every episode directory inside an arc directory.
const EpisodeGlob = "episode_*"

// ArcDir is the directory holding every episode of an arc, relative to the
// output root.
func ArcDir(arcName string) string {
	return sanitizeForFilename(arcName, 40)
}

// EpisodeDir returns the directory name used for an episode's artifacts,
// relative to the output root: "<sanitized-arc>/episode_003".
func EpisodeDir(arcName string, episode int) string {
	return filepath.Join(ArcDir(arcName), fmt.Sprintf("episode_%03d", episode))
}

// EpisodePath returns the output directory for one episode of an arc.
func EpisodePath(baseDir, arcName string, episode int) string {
	return filepath.Join(baseDir, EpisodeDir(arcName, episode))
}

// sanitizeForFilename converts a string to a safe filename component
func sanitizeForFilename(s string, maxLen int) string {
	s = strings.ToLower(s)

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '/', r == '\\', r == ':', r == '.':
			b.WriteByte('-')
		}
	}
	s = b.String()

	// Remove multiple consecutive hyphens
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}

	s = strings.Trim(s, "-")

	if len(s) > maxLen {
		s = s[:maxLen]
		s = strings.TrimRight(s, "-")
	}

	// If empty after sanitization, use a default
	if s == "" {
		s = "arc"
	}

	return s
}

// EpisodeMetadata renders the header written at the top of episode.md.
func EpisodeMetadata(recordID, arcName string, episode int, generatedAt time.Time) []byte {
	return []byte(fmt.Sprintf(`# %s: episode %d

**Record ID**: %s
**Generated**: %s

`, arcName, episode, recordID, generatedAt.Format("2006-01-02 15:04:05")))
}

// SafeName returns s reduced to a lowercase filename component.
func SafeName(s string) string {
	return sanitizeForFilename(s, 64)
}
