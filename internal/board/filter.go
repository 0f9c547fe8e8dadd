package board

import "strings"

// TemporalBucket classifies events relative to the current date.
type TemporalBucket string

const (
	BucketAny      TemporalBucket = "any"
	BucketUpcoming TemporalBucket = "upcoming"
	BucketPast     TemporalBucket = "past"
)

// SortOrder selects the display order of the filtered view.
type SortOrder string

const (
	SortDateDesc  SortOrder = "date-desc"
	SortDateAsc   SortOrder = "date-asc"
	SortTitleAsc  SortOrder = "title-asc"
	SortTitleDesc SortOrder = "title-desc"
)

// FilterSpec is the complete set of user-selected view criteria. It is
// always fully defined; the zero value is not meaningful, use DefaultFilter.
type FilterSpec struct {
	Search   string         `json:"search"`
	Category Category       `json:"category"`
	Bucket   TemporalBucket `json:"date"`
	Sort     SortOrder      `json:"sort"`
}

// DefaultFilter is the state after load and after clearing filters.
func DefaultFilter() FilterSpec {
	return FilterSpec{
		Search:   "",
		Category: CategoryAny,
		Bucket:   BucketAny,
		Sort:     SortDateDesc,
	}
}

// Active reports whether any criterion narrows the record set.
func (f FilterSpec) Active() bool {
	return f.Search != "" || f.Category != CategoryAny || f.Bucket != BucketAny
}

// FilterPatch carries a partial filter change; nil fields are left as is.
type FilterPatch struct {
	Search   *string
	Category *Category
	Bucket   *TemporalBucket
	Sort     *SortOrder
}

// Merge applies patch over f. Unknown bucket and sort values fall back to
// their defaults so the result stays fully defined.
func (f FilterSpec) Merge(patch FilterPatch) FilterSpec {
	out := f
	if patch.Search != nil {
		out.Search = *patch.Search
	}
	if patch.Category != nil {
		out.Category = *patch.Category
		if out.Category == "" {
			out.Category = CategoryAny
		}
	}
	if patch.Bucket != nil {
		out.Bucket = ParseBucket(string(*patch.Bucket))
	}
	if patch.Sort != nil {
		out.Sort = ParseSortOrder(string(*patch.Sort))
	}
	return out
}

// ParseBucket maps user input to a bucket; "all" is accepted for any.
func ParseBucket(raw string) TemporalBucket {
	switch TemporalBucket(strings.ToLower(strings.TrimSpace(raw))) {
	case BucketUpcoming:
		return BucketUpcoming
	case BucketPast:
		return BucketPast
	default:
		return BucketAny
	}
}

func ParseSortOrder(raw string) SortOrder {
	switch SortOrder(strings.ToLower(strings.TrimSpace(raw))) {
	case SortDateAsc:
		return SortDateAsc
	case SortTitleAsc:
		return SortTitleAsc
	case SortTitleDesc:
		return SortTitleDesc
	default:
		return SortDateDesc
	}
}
