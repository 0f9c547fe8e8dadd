package board

import (
	"strings"
	"time"
)

// Category is one of the fixed event categories.
type Category string

const (
	CategoryCommunity    Category = "Community"
	CategoryEducation    Category = "Education"
	CategoryAdvocacy     Category = "Advocacy"
	CategoryVolunteering Category = "Volunteering"
	CategoryWorkshop     Category = "Workshop"
	CategorySocial       Category = "Social"

	// CategoryAny is the filter value matching every category.
	CategoryAny Category = "any"
)

const defaultCategoryColor = "#667eea"

var categoryColors = map[Category]string{
	CategoryCommunity:    "#667eea",
	CategoryEducation:    "#f59e0b",
	CategoryAdvocacy:     "#ef4444",
	CategoryVolunteering: "#10b981",
	CategoryWorkshop:     "#8b5cf6",
	CategorySocial:       "#ec4899",
}

// Categories returns the enumerated categories in display order.
func Categories() []Category {
	return []Category{
		CategoryCommunity,
		CategoryEducation,
		CategoryAdvocacy,
		CategoryVolunteering,
		CategoryWorkshop,
		CategorySocial,
	}
}

func (c Category) Valid() bool {
	_, ok := categoryColors[c]
	return ok
}

// Color is the badge colour for the category.
func (c Category) Color() string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return defaultCategoryColor
}

// ParseCategoryFilter maps user input to a filter category. Empty input and
// the legacy "all" both mean CategoryAny.
func ParseCategoryFilter(raw string) Category {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "", "any", "all":
		return CategoryAny
	}
	return Category(raw)
}

// Event is one record of the board collection.
type Event struct {
	ID          string     `json:"id" yaml:"id"`
	StoreKey    string     `json:"store_key,omitempty" yaml:"-"`
	Title       string     `json:"title" yaml:"title"`
	Date        string     `json:"date" yaml:"date"`
	Time        string     `json:"time" yaml:"time"`
	Location    string     `json:"location" yaml:"location"`
	Description string     `json:"description" yaml:"description"`
	Category    Category   `json:"category" yaml:"category"`
	CreatedAt   *time.Time `json:"created_at,omitempty" yaml:"-"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" yaml:"-"`
}

// Synced reports whether the persistence layer has assigned a store key.
func (e Event) Synced() bool {
	return e.StoreKey != ""
}

// FindByID returns the record with the given application id.
func FindByID(records []Event, id string) (Event, bool) {
	for _, record := range records {
		if record.ID == id {
			return record, true
		}
	}
	return Event{}, false
}
