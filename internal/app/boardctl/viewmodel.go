package boardctl

import "github.com/eventboard/project/internal/board"

// EventCard is one rendered list entry.
type EventCard struct {
	ID          string
	Title       string
	Category    board.Category
	Color       string
	Day         string
	Month       string
	DisplayDate string
	DisplayTime string
	Location    string
	Description string
	Past        bool
}

// ViewModel is the ordered presentation of the filtered record set.
type ViewModel struct {
	Cards        []EventCard
	Count        int
	Total        int
	EmptyTitle   string
	EmptyMessage string
	Filter       board.FilterSpec
}

func (vm ViewModel) Empty() bool {
	return len(vm.Cards) == 0
}

// FormMode is the state of the create/edit form.
type FormMode int

const (
	FormClosed FormMode = iota
	FormCreate
	FormEdit
)

func (m FormMode) String() string {
	switch m {
	case FormCreate:
		return "create"
	case FormEdit:
		return "edit"
	default:
		return "closed"
	}
}

// FormValues are the raw form fields, time split into hour and minute.
type FormValues struct {
	ID          string
	Title       string
	Date        string
	Hour        string
	Minute      string
	Location    string
	Description string
	Category    string
}

// Form is what the view shows when a form opens.
type Form struct {
	Mode    FormMode
	Heading string
	Values  FormValues
}

func blankForm() Form {
	return Form{Mode: FormCreate, Heading: "Add New Event"}
}

func editForm(event board.Event) Form {
	hour, minute, _ := board.SplitTime(event.Time)
	return Form{
		Mode:    FormEdit,
		Heading: "Edit Event",
		Values: FormValues{
			ID:          event.ID,
			Title:       event.Title,
			Date:        event.Date,
			Hour:        hour,
			Minute:      minute,
			Location:    event.Location,
			Description: event.Description,
			Category:    string(event.Category),
		},
	}
}

func buildViewModel(visible []board.Event, total int, filter board.FilterSpec, engine *board.Engine) ViewModel {
	today := engine.Today()
	vm := ViewModel{
		Cards:  make([]EventCard, 0, len(visible)),
		Count:  len(visible),
		Total:  total,
		Filter: filter,
	}
	for _, event := range visible {
		vm.Cards = append(vm.Cards, newCard(event, engine.IsPast(event, today)))
	}
	if len(visible) == 0 {
		if total == 0 {
			vm.EmptyTitle = "No Events Yet"
			vm.EmptyMessage = `Click "Add New Event" to create your first event!`
		} else {
			vm.EmptyTitle = "No Events Found"
			vm.EmptyMessage = "Try adjusting your filters or search terms."
		}
	}
	return vm
}

func newCard(event board.Event, past bool) EventCard {
	day, month := board.DateBadge(event.Date)
	return EventCard{
		ID:          event.ID,
		Title:       event.Title,
		Category:    event.Category,
		Color:       event.Category.Color(),
		Day:         day,
		Month:       month,
		DisplayDate: board.FormatDisplayDate(event.Date),
		DisplayTime: board.FormatTime12h(event.Time),
		Location:    event.Location,
		Description: event.Description,
		Past:        past,
	}
}
