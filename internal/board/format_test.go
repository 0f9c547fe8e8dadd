package board

import (
	"testing"
	"time"
)

func TestFormatTime12h(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"00:05", "12:05 AM"},
		{"09:00", "9:00 AM"},
		{"12:00", "12:00 PM"},
		{"18:30", "6:30 PM"},
		{"23:59", "11:59 PM"},
		{"noon", "noon"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := FormatTime12h(tt.in); got != tt.want {
				t.Errorf("FormatTime12h(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitAndJoinTime(t *testing.T) {
	hour, minute, ok := SplitTime("18:05")
	if !ok || hour != "18" || minute != "05" {
		t.Fatalf("SplitTime = %q %q %v", hour, minute, ok)
	}
	if _, _, ok := SplitTime("1805"); ok {
		t.Fatalf("expected SplitTime to reject a value without colon")
	}
	if got := JoinTime("9", "5"); got != "09:05" {
		t.Fatalf("JoinTime = %q, want 09:05", got)
	}
	if got := JoinTime(hour, minute); got != "18:05" {
		t.Fatalf("JoinTime round trip = %q", got)
	}
}

func TestEscapeText(t *testing.T) {
	got := EscapeText(`<script>alert("x")</script> & more`)
	want := `&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt; &amp; more`
	if got != want {
		t.Fatalf("EscapeText = %q, want %q", got, want)
	}
}

func TestFormatDisplayDateAndBadge(t *testing.T) {
	if got := FormatDisplayDate("2025-11-15"); got != "Nov 15, 2025" {
		t.Fatalf("FormatDisplayDate = %q", got)
	}
	day, month := DateBadge("2025-11-05")
	if day != "5" || month != "Nov" {
		t.Fatalf("DateBadge = %q %q", day, month)
	}
	if got := FormatDisplayDate("tbd"); got != "tbd" {
		t.Fatalf("expected unparsable date to pass through, got %q", got)
	}
}

func TestMidnight(t *testing.T) {
	loc := time.FixedZone("plus2", 2*3600)
	got := Midnight(time.Date(2025, 3, 1, 23, 0, 0, 0, time.UTC), loc)
	want := time.Date(2025, 3, 2, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("Midnight = %v, want %v", got, want)
	}
}

func TestFilterMerge(t *testing.T) {
	search := "park"
	sort := SortOrder("bogus")
	category := Category("")

	got := DefaultFilter().Merge(FilterPatch{Search: &search, Sort: &sort, Category: &category})
	if got.Search != "park" || got.Sort != SortDateDesc || got.Category != CategoryAny || got.Bucket != BucketAny {
		t.Fatalf("unexpected merge result: %+v", got)
	}
	if !got.Active() {
		t.Fatalf("search filter should be active")
	}
	if DefaultFilter().Active() {
		t.Fatalf("default filter should not be active")
	}
}

func TestParseCategoryFilter(t *testing.T) {
	for _, raw := range []string{"", "all", "ANY"} {
		if got := ParseCategoryFilter(raw); got != CategoryAny {
			t.Errorf("ParseCategoryFilter(%q) = %q", raw, got)
		}
	}
	if got := ParseCategoryFilter("Social"); got != CategorySocial {
		t.Errorf("ParseCategoryFilter(Social) = %q", got)
	}
}

func TestSeedEvents(t *testing.T) {
	n := 0
	events, err := SeedEvents(func() string {
		n++
		return "seed-" + string(rune('0'+n))
	})
	if err != nil {
		t.Fatalf("SeedEvents error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected two seed events, got %d", len(events))
	}
	if events[0].ID != "seed-1" || events[1].ID != "seed-2" {
		t.Fatalf("unexpected ids: %q %q", events[0].ID, events[1].ID)
	}
	for _, e := range events {
		if e.Synced() {
			t.Fatalf("seed event must not carry a store key: %+v", e)
		}
		if !e.Category.Valid() || !ValidTime(e.Time) {
			t.Fatalf("invalid seed event: %+v", e)
		}
	}
}
