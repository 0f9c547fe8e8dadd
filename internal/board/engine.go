package board

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Engine computes the visible subset of a record set for a filter.
type Engine struct {
	Now      func() time.Time
	Location *time.Location
	Locale   language.Tag
}

func NewEngine(loc *time.Location, locale language.Tag) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{
		Now:      time.Now,
		Location: loc,
		Locale:   locale,
	}
}

// Today is the current date at local midnight.
func (e *Engine) Today() time.Time {
	return Midnight(e.Now(), e.Location)
}

// IsPast reports whether the event date lies before today.
func (e *Engine) IsPast(event Event, today time.Time) bool {
	date, ok := ParseDate(event.Date, e.Location)
	return ok && date.Before(today)
}

// Apply returns the records passing spec in display order. The input slice
// is never modified and the result is never nil.
func (e *Engine) Apply(records []Event, spec FilterSpec) []Event {
	today := e.Today()
	search := strings.ToLower(spec.Search)

	out := make([]Event, 0, len(records))
	for _, record := range records {
		if !matchesSearch(record, search) {
			continue
		}
		if spec.Category != CategoryAny && record.Category != spec.Category {
			continue
		}
		if !e.inBucket(record, spec.Bucket, today) {
			continue
		}
		out = append(out, record)
	}

	e.sort(out, spec.Sort)
	return out
}

func matchesSearch(record Event, search string) bool {
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(record.Title), search) ||
		strings.Contains(strings.ToLower(record.Description), search) ||
		strings.Contains(strings.ToLower(record.Location), search)
}

func (e *Engine) inBucket(record Event, bucket TemporalBucket, today time.Time) bool {
	if bucket != BucketUpcoming && bucket != BucketPast {
		return true
	}
	date, ok := ParseDate(record.Date, e.Location)
	if !ok {
		return false
	}
	if bucket == BucketUpcoming {
		return !date.Before(today)
	}
	return date.Before(today)
}

func (e *Engine) sort(records []Event, order SortOrder) {
	switch order {
	case SortDateAsc, SortDateDesc:
		keys := make(map[string]time.Time, len(records))
		for _, r := range records {
			if _, seen := keys[r.Date]; !seen {
				date, _ := ParseDate(r.Date, e.Location)
				keys[r.Date] = date
			}
		}
		slices.SortStableFunc(records, func(a, b Event) int {
			cmp := keys[a.Date].Compare(keys[b.Date])
			if order == SortDateDesc {
				return -cmp
			}
			return cmp
		})
	case SortTitleAsc, SortTitleDesc:
		// collate.Collator is not safe for concurrent use.
		collator := collate.New(e.Locale)
		slices.SortStableFunc(records, func(a, b Event) int {
			cmp := collator.CompareString(a.Title, b.Title)
			if order == SortTitleDesc {
				return -cmp
			}
			return cmp
		})
	}
}
