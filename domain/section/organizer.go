// Package section orders a course's content list and renumbers generic titles.
package section

import (
	"regexp"
	"strconv"
	"strings"

	"course-service/domain/model"
)

var (
	trailingNumber = regexp.MustCompile(`(?i)(?:^|\s)video (\d+)$`)
	genericTitle   = regexp.MustCompile(`^Video \d+$`)
)

// Organize returns a new slice ordered by section label, then by the "Video N"
// numeral when both items carry one, else by title. Items titled exactly
// "Video N" are renamed after their 1-based position within the section.
// The input slice is not modified.
func Organize(items []model.ContentItem) []model.ContentItem {
	cur := make([]model.ContentItem, len(items))
	copy(cur, items)

	// Renumbering can change how a generic title compares with a custom one, so
	// repeat until sorting and renumbering no longer move anything.
	for pass := 0; pass <= len(cur); pass++ {
		next := renumber(sortStable(cur))
		if sameOrder(cur, next) {
			return next
		}
		cur = next
	}
	return cur
}

// Less reports whether a sorts before b.
func Less(a, b model.ContentItem) bool {
	if a.VideoSection != b.VideoSection {
		return a.VideoSection < b.VideoSection
	}
	an, aok := Number(a.Title)
	bn, bok := Number(b.Title)
	if aok && bok {
		return an < bn
	}
	return a.Title < b.Title
}

// Number extracts the trailing "Video N" numeral from a title.
func Number(title string) (int, bool) {
	m := trailingNumber.FindStringSubmatch(strings.TrimSpace(title))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsGeneric reports whether the title is the auto-generated "Video N" form.
func IsGeneric(title string) bool {
	return genericTitle.MatchString(title)
}

// NextTitle is the generic title for an item appended to a section holding existing items.
func NextTitle(existing int) string {
	return "Video " + strconv.Itoa(existing+1)
}

// CountIn counts the items already in a section.
func CountIn(items []model.ContentItem, label string) int {
	n := 0
	for _, item := range items {
		if item.VideoSection == label {
			n++
		}
	}
	return n
}

// sortStable is an insertion sort. Every adjacent pair of its output satisfies
// !Less(next, prev), which keeps the output a fixed point of a second pass even
// though mixed numeric/lexicographic comparison is not transitive.
func sortStable(items []model.ContentItem) []model.ContentItem {
	out := make([]model.ContentItem, len(items))
	copy(out, items)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && Less(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func renumber(items []model.ContentItem) []model.ContentItem {
	positions := map[string]int{}
	for i := range items {
		label := items[i].VideoSection
		positions[label]++
		if IsGeneric(items[i].Title) {
			items[i].Title = "Video " + strconv.Itoa(positions[label])
		}
	}
	return items
}

func sameOrder(a, b []model.ContentItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].VideoSection != b[i].VideoSection || a[i].Title != b[i].Title ||
			a[i].ID != b[i].ID || a[i].VideoStorageID != b[i].VideoStorageID {
			return false
		}
	}
	return true
}
