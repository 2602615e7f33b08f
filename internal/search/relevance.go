// Package search implements the C7 search executor: the lexical
// single-term and planned paths, dense (semantic) search, relevance
// re-scoring, time-range resolution, and dedup/truncate/post-process
// finishing common to all three.
package search

import (
	"strings"
	"time"

	"jotx/internal/domain"
)

// maxResults is the hard cap applied to every search path after
// dedup-by-content.
const maxResults = 20

// RelevanceScore re-ranks a row's content against the lowercased query
// text, on top of whatever SQL-side boost already ordered it: exact
// match, prefix match, whole-word match (penalized by position), plain
// substring match (penalized more), or a character-overlap fallback —
// plus a working-directory boost.
func RelevanceScore(content, query, workingDir, ctxDir string) float64 {
	content = strings.ToLower(content)
	query = strings.ToLower(strings.TrimSpace(query))
	return contentScore(content, query) + dirBoost(workingDir, ctxDir)
}

func contentScore(content, query string) float64 {
	if query == "" {
		return 0
	}
	if content == query {
		return 100
	}
	if strings.HasPrefix(content, query) {
		return 90
	}
	pos := strings.Index(content, query)
	if pos < 0 {
		return charOverlapScore(content, query)
	}
	frac := float64(pos) / float64(len(content))
	if isWholeWord(content, pos, len(query)) {
		return 80 - 20*frac
	}
	return 60 - 30*frac
}

func isWholeWord(content string, pos, qlen int) bool {
	before := pos == 0 || !isAlnum(content[pos-1])
	end := pos + qlen
	after := end >= len(content) || !isAlnum(content[end])
	return before && after
}

func isAlnum(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

func charOverlapScore(content, query string) float64 {
	if len(query) == 0 {
		return 0
	}
	hit := 0
	for _, r := range query {
		if strings.ContainsRune(content, r) {
			hit++
		}
	}
	return float64(hit) / float64(len([]rune(query))) * 40
}

func dirBoost(entryDir, ctxDir string) float64 {
	if ctxDir == "" || entryDir == "" {
		return 0
	}
	if entryDir == ctxDir {
		return 15
	}
	if strings.HasPrefix(entryDir, ctxDir) || strings.HasPrefix(ctxDir, entryDir) {
		return 8
	}
	return 0
}

// FrequencyBonus rewards frequently-run commands, capped at a times_run
// of 10 so a handful of outlier entries can't dominate the ranking.
func FrequencyBonus(timesRun int) float64 {
	if timesRun > 10 {
		timesRun = 10
	}
	return float64(timesRun) * 2
}

// ResolveTimeRange fills in Start/End for a plan's time-range kind,
// relative to now. Custom ranges keep their provided bounds, defaulting
// End to now and Start to the epoch when absent.
func ResolveTimeRange(tr domain.TimeRange, now time.Time) domain.TimeRange {
	switch tr.Kind {
	case domain.TimeRangeToday:
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return domain.TimeRange{Kind: tr.Kind, Start: midnight.Unix(), End: now.Unix()}
	case domain.TimeRangeYesterday:
		todayMidnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		yesterdayMidnight := todayMidnight.AddDate(0, 0, -1)
		return domain.TimeRange{Kind: tr.Kind, Start: yesterdayMidnight.Unix(), End: todayMidnight.Unix()}
	case domain.TimeRangeLastWeek:
		return domain.TimeRange{Kind: tr.Kind, Start: now.AddDate(0, 0, -7).Unix(), End: now.Unix()}
	case domain.TimeRangeLastMonth:
		return domain.TimeRange{Kind: tr.Kind, Start: now.AddDate(0, 0, -30).Unix(), End: now.Unix()}
	case domain.TimeRangeCustom:
		end := tr.End
		if end == 0 {
			end = now.Unix()
		}
		return domain.TimeRange{Kind: tr.Kind, Start: tr.Start, End: end}
	default:
		return tr
	}
}
