package apps

import (
	"path/filepath"
	"sort"
	"strings"
)

// Match quality, lower is better
const (
	scoreNamePrefix = iota
	scoreNameSubstring
	scoreGenericOrKeyword
	scoreExec
	scoreComment
	noMatch
)

// termScore returns how well a single lowercase term matches rec
func termScore(rec Record, term string) int {
	name := strings.ToLower(rec.Name)
	switch {
	case strings.HasPrefix(name, term):
		return scoreNamePrefix
	case strings.Contains(name, term):
		return scoreNameSubstring
	case strings.Contains(strings.ToLower(rec.GenericName), term):
		return scoreGenericOrKeyword
	}
	for _, kw := range rec.Keywords {
		if strings.HasPrefix(strings.ToLower(kw), term) {
			return scoreGenericOrKeyword
		}
	}
	if args, err := SplitExec(rec.Exec); err == nil && len(args) > 0 {
		if strings.Contains(strings.ToLower(filepath.Base(args[0])), term) {
			return scoreExec
		}
	}
	if strings.Contains(strings.ToLower(rec.Comment), term) {
		return scoreComment
	}
	return noMatch
}

// Rank filters records to those matching every term of query and orders them
// by match quality, then by name. An empty query matches nothing.
func Rank(records []Record, query string) []Record {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil
	}

	type scored struct {
		rec   Record
		score int
	}
	var matches []scored
	for _, rec := range records {
		total := 0
		for _, term := range terms {
			s := termScore(rec, term)
			if s == noMatch {
				total = -1
				break
			}
			total += s
		}
		if total >= 0 {
			matches = append(matches, scored{rec, total})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score < matches[j].score
		}
		ni, nj := strings.ToLower(matches[i].rec.Name), strings.ToLower(matches[j].rec.Name)
		if ni != nj {
			return ni < nj
		}
		return matches[i].rec.ID < matches[j].rec.ID
	})

	out := make([]Record, len(matches))
	for i, m := range matches {
		out[i] = m.rec
	}
	return out
}
