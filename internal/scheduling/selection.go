package scheduling

import (
	"sort"
	"strconv"
	"strings"

	"github.com/garnizeh/recruit/internal/apperr"
)

// MaxSelection bounds how many ids one range expression may expand to.
const MaxSelection int64 = 10000

// ParseRanges parses a list such as "1-10, 14 20-22" into the identifiers it
// covers. Items are separated by commas or whitespace; each is a single id
// or an inclusive low-high range.
func ParseRanges(expr string) ([]int64, error) {
	fields := strings.FieldsFunc(expr, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})

	var out []int64
	for _, f := range fields {
		lowText, highText, isRange := strings.Cut(f, "-")
		low, err := parseID(lowText)
		if err != nil {
			return nil, apperr.Validation("ranges", "%q: %v", f, err)
		}
		high := low
		if isRange {
			if high, err = parseID(highText); err != nil {
				return nil, apperr.Validation("ranges", "%q: %v", f, err)
			}
		}
		if low > high {
			return nil, apperr.Validation("ranges", "%q: start is greater than end", f)
		}
		if high-low+1 > MaxSelection-int64(len(out)) {
			return nil, apperr.Validation("ranges", "selection exceeds %d ids", MaxSelection)
		}
		for id := low; id <= high; id++ {
			out = append(out, id)
		}
	}
	return out, nil
}

func parseID(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, errNotNumber
	}
	if n < 1 {
		return 0, errNotPositive
	}
	return n, nil
}

type selectionError string

func (e selectionError) Error() string { return string(e) }

const (
	errNotNumber   selectionError = "not a number"
	errNotPositive selectionError = "identifiers start at 1"
)

// ResolveSelection returns the sorted, de-duplicated union of the explicit
// identifiers and those covered by ranges. An empty result is a
// ValidationError.
func ResolveSelection(explicit []int64, ranges string) ([]int64, error) {
	fromRanges, err := ParseRanges(ranges)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(explicit)+len(fromRanges))
	out := make([]int64, 0, len(explicit)+len(fromRanges))
	for _, list := range [][]int64{explicit, fromRanges} {
		for _, id := range list {
			if id < 1 {
				return nil, apperr.Validation("ids", "%d: %v", id, errNotPositive)
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil, apperr.Validation("selection", "no candidates selected")
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
