package normalize

import (
	"log/slog"
	"strings"

	"github.com/garnizeh/recruit/pkg/models"
)

// Experience parses a free-text "Previous Experience" cell made of
// "Institute: Position" pairs separated by ';', '|' or newlines. A pair may
// also use " - " as separator. Blank cells yield an empty (non-nil) slice.
// Malformed entries are skipped with a warning; Experience never fails.
// Order is preserved and a repeated institute keeps its first position.
func Experience(raw string, logger *slog.Logger) []models.ExperienceEntry {
	out := []models.ExperienceEntry{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return out
	}
	if logger == nil {
		logger = slog.Default()
	}

	seen := make(map[string]bool)
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ';' || r == '|' || r == '\n' || r == '\r'
	})
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		institute, position, ok := splitPair(part)
		if !ok {
			logger.Warn("skipping malformed experience entry", slog.String("entry", part))
			continue
		}
		key := strings.ToLower(institute)
		if seen[key] {
			logger.Warn("skipping repeated institute", slog.String("institute", institute))
			continue
		}
		seen[key] = true
		out = append(out, models.ExperienceEntry{Institute: institute, Position: position})
	}

	return out
}

// MergeExperience appends entries from extra whose institute is not yet in
// base.
func MergeExperience(base, extra []models.ExperienceEntry) []models.ExperienceEntry {
	seen := make(map[string]bool, len(base))
	for _, e := range base {
		seen[strings.ToLower(e.Institute)] = true
	}
	for _, e := range extra {
		key := strings.ToLower(e.Institute)
		if seen[key] {
			continue
		}
		seen[key] = true
		base = append(base, e)
	}
	return base
}

func splitPair(s string) (string, string, bool) {
	institute, position, found := strings.Cut(s, ":")
	if !found {
		institute, position, found = strings.Cut(s, " - ")
	}
	if !found {
		return "", "", false
	}
	institute = strings.TrimSpace(institute)
	position = strings.TrimSpace(position)
	if institute == "" || position == "" {
		return "", "", false
	}
	return institute, position, true
}
