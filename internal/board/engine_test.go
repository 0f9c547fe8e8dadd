package board

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"pgregory.net/rapid"
)

func fixedEngine(now time.Time) *Engine {
	e := NewEngine(time.UTC, language.AmericanEnglish)
	e.Now = func() time.Time { return now }
	return e
}

func scenarioRecords() []Event {
	return []Event{
		{ID: "1", Title: "B", Date: "2025-01-10", Category: CategoryWorkshop},
		{ID: "2", Title: "A", Date: "2025-01-05", Category: CategorySocial},
	}
}

func ids(records []Event) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestApply_SortTitleAsc(t *testing.T) {
	e := fixedEngine(time.Date(2025, 1, 7, 12, 0, 0, 0, time.UTC))
	spec := DefaultFilter()
	spec.Sort = SortTitleAsc

	require.Equal(t, []string{"2", "1"}, ids(e.Apply(scenarioRecords(), spec)))
}

func TestApply_CategoryFilter(t *testing.T) {
	e := fixedEngine(time.Date(2025, 1, 7, 12, 0, 0, 0, time.UTC))
	spec := DefaultFilter()
	spec.Category = CategorySocial

	require.Equal(t, []string{"2"}, ids(e.Apply(scenarioRecords(), spec)))
}

func TestApply_SearchMatchesTitleDescriptionLocation(t *testing.T) {
	e := fixedEngine(time.Date(2025, 1, 7, 12, 0, 0, 0, time.UTC))
	records := []Event{
		{ID: "title", Title: "Park Cleanup", Date: "2025-01-01"},
		{ID: "desc", Title: "Meetup", Description: "bring a PARK map", Date: "2025-01-02"},
		{ID: "loc", Title: "Talk", Location: "Central park", Date: "2025-01-03"},
		{ID: "none", Title: "Dinner", Location: "Hall", Date: "2025-01-04"},
	}
	spec := DefaultFilter()
	spec.Search = "park"
	spec.Sort = SortDateAsc

	require.Equal(t, []string{"title", "desc", "loc"}, ids(e.Apply(records, spec)))
}

func TestApply_TodayIsUpcomingNotPast(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	e := NewEngine(loc, language.AmericanEnglish)
	// 23:30 local on Jan 7 is already Jan 8 in UTC.
	e.Now = func() time.Time { return time.Date(2025, 1, 8, 4, 30, 0, 0, time.UTC) }

	records := []Event{
		{ID: "yesterday", Title: "y", Date: "2025-01-06"},
		{ID: "today", Title: "t", Date: "2025-01-07"},
		{ID: "tomorrow", Title: "m", Date: "2025-01-08"},
	}

	upcoming := DefaultFilter()
	upcoming.Bucket = BucketUpcoming
	upcoming.Sort = SortDateAsc
	require.Equal(t, []string{"today", "tomorrow"}, ids(e.Apply(records, upcoming)))

	past := DefaultFilter()
	past.Bucket = BucketPast
	require.Equal(t, []string{"yesterday"}, ids(e.Apply(records, past)))
}

func TestApply_UnparsableDateInNoBucket(t *testing.T) {
	e := fixedEngine(time.Date(2025, 1, 7, 12, 0, 0, 0, time.UTC))
	records := []Event{{ID: "bad", Title: "x", Date: "soon"}}

	for _, bucket := range []TemporalBucket{BucketUpcoming, BucketPast} {
		spec := DefaultFilter()
		spec.Bucket = bucket
		require.Empty(t, e.Apply(records, spec), "bucket %s", bucket)
	}
	require.Len(t, e.Apply(records, DefaultFilter()), 1)
}

func TestApply_EmptyInput(t *testing.T) {
	e := fixedEngine(time.Now())
	got := e.Apply(nil, DefaultFilter())
	require.NotNil(t, got)
	require.Empty(t, got)

	spec := DefaultFilter()
	spec.Search = "nothing matches this"
	got = e.Apply(scenarioRecords(), spec)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	e := fixedEngine(time.Date(2025, 1, 7, 12, 0, 0, 0, time.UTC))
	records := scenarioRecords()
	before := slices.Clone(records)

	spec := DefaultFilter()
	spec.Sort = SortTitleAsc
	_ = e.Apply(records, spec)

	require.Equal(t, before, records)
}

func TestApply_DateSortIgnoresTimeAndIsStable(t *testing.T) {
	e := fixedEngine(time.Date(2025, 1, 7, 12, 0, 0, 0, time.UTC))
	records := []Event{
		{ID: "late", Title: "a", Date: "2025-02-01", Time: "23:00"},
		{ID: "early", Title: "b", Date: "2025-02-01", Time: "08:00"},
		{ID: "older", Title: "c", Date: "2025-01-01", Time: "12:00"},
	}

	spec := DefaultFilter()
	require.Equal(t, []string{"late", "early", "older"}, ids(e.Apply(records, spec)))

	spec.Sort = SortDateAsc
	require.Equal(t, []string{"older", "late", "early"}, ids(e.Apply(records, spec)))
}

func TestApply_TitleSortIsLocaleAware(t *testing.T) {
	e := fixedEngine(time.Date(2025, 1, 7, 12, 0, 0, 0, time.UTC))
	records := []Event{
		{ID: "upper", Title: "Zebra", Date: "2025-01-01"},
		{ID: "accent", Title: "éclair", Date: "2025-01-01"},
		{ID: "lower", Title: "apple", Date: "2025-01-01"},
	}
	spec := DefaultFilter()
	spec.Sort = SortTitleAsc

	// Byte order would put "Zebra" first and "éclair" last.
	require.Equal(t, []string{"lower", "accent", "upper"}, ids(e.Apply(records, spec)))

	spec.Sort = SortTitleDesc
	require.Equal(t, []string{"upper", "accent", "lower"}, ids(e.Apply(records, spec)))
}

var rapidCategories = []Category{
	CategoryCommunity, CategoryEducation, CategoryAdvocacy,
	CategoryVolunteering, CategoryWorkshop, CategorySocial,
}

func eventGen() *rapid.Generator[Event] {
	return rapid.Custom(func(t *rapid.T) Event {
		day := rapid.IntRange(0, 60).Draw(t, "day")
		return Event{
			Title:       rapid.StringMatching(`[A-Za-z ]{0,8}`).Draw(t, "title"),
			Description: rapid.StringMatching(`[a-z ]{0,12}`).Draw(t, "description"),
			Location:    rapid.StringMatching(`[a-z]{0,6}`).Draw(t, "location"),
			Date:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day).Format(DateLayout),
			Category:    rapid.SampledFrom(rapidCategories).Draw(t, "category"),
		}
	})
}

func recordsGen() *rapid.Generator[[]Event] {
	return rapid.Custom(func(t *rapid.T) []Event {
		records := rapid.SliceOfN(eventGen(), 0, 20).Draw(t, "records")
		for i := range records {
			records[i].ID = fmt.Sprintf("e%d", i)
		}
		return records
	})
}

func sortGen() *rapid.Generator[SortOrder] {
	return rapid.SampledFrom([]SortOrder{SortDateDesc, SortDateAsc, SortTitleAsc, SortTitleDesc})
}

func TestApply_UnfilteredIsPermutation(t *testing.T) {
	e := fixedEngine(time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC))
	rapid.Check(t, func(t *rapid.T) {
		records := recordsGen().Draw(t, "records")
		spec := DefaultFilter()
		spec.Sort = sortGen().Draw(t, "sort")

		got := ids(e.Apply(records, spec))
		want := ids(records)
		slices.Sort(got)
		slices.Sort(want)
		if !slices.Equal(got, want) {
			t.Fatalf("not a permutation: got %v want %v", got, want)
		}
	})
}

func TestApply_CategoryPartition(t *testing.T) {
	e := fixedEngine(time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC))
	rapid.Check(t, func(t *rapid.T) {
		records := recordsGen().Draw(t, "records")
		seen := map[string]int{}
		for _, category := range Categories() {
			spec := DefaultFilter()
			spec.Category = category
			for _, r := range e.Apply(records, spec) {
				if r.Category != category {
					t.Fatalf("record %s has category %s, filtered by %s", r.ID, r.Category, category)
				}
				seen[r.ID]++
			}
		}
		for _, r := range records {
			if seen[r.ID] != 1 {
				t.Fatalf("record %s seen %d times across categories", r.ID, seen[r.ID])
			}
		}
	})
}

func TestApply_DateOrdersReverseWhenDatesDistinct(t *testing.T) {
	e := fixedEngine(time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC))
	rapid.Check(t, func(t *rapid.T) {
		records := recordsGen().Draw(t, "records")
		distinct := map[string]bool{}
		for _, r := range records {
			distinct[r.Date] = true
		}

		desc := DefaultFilter()
		asc := DefaultFilter()
		asc.Sort = SortDateAsc
		gotDesc := ids(e.Apply(records, desc))
		gotAsc := ids(e.Apply(records, asc))
		slices.Reverse(gotAsc)

		reversed := slices.Equal(gotDesc, gotAsc)
		if len(distinct) == len(records) && !reversed {
			t.Fatalf("distinct dates but orders are not reversed: %v vs %v", gotDesc, gotAsc)
		}
		if len(distinct) < len(records) && reversed {
			t.Fatalf("shared dates but orders are exact reverses: %v", gotDesc)
		}
	})
}

func TestApply_Idempotent(t *testing.T) {
	e := fixedEngine(time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC))
	rapid.Check(t, func(t *rapid.T) {
		records := recordsGen().Draw(t, "records")
		spec := FilterSpec{
			Search:   rapid.StringMatching(`[a-z]{0,2}`).Draw(t, "search"),
			Category: rapid.SampledFrom(append([]Category{CategoryAny}, rapidCategories...)).Draw(t, "category"),
			Bucket:   rapid.SampledFrom([]TemporalBucket{BucketAny, BucketUpcoming, BucketPast}).Draw(t, "bucket"),
			Sort:     sortGen().Draw(t, "sort"),
		}
		first := e.Apply(records, spec)
		second := e.Apply(records, spec)
		if !slices.EqualFunc(first, second, func(a, b Event) bool { return a.ID == b.ID }) {
			t.Fatalf("apply is not idempotent: %v vs %v", ids(first), ids(second))
		}
	})
}
