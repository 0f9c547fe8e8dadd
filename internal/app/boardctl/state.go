package boardctl

import (
	"slices"

	"github.com/eventboard/project/internal/board"
)

// State is everything a controller owns. The functions below are the only
// transitions; each returns a new State and leaves its input untouched.
type State struct {
	Records    []board.Event
	Filter     board.FilterSpec
	EditTarget string
	Form       FormMode

	// FormSeq changes every time a form opens or closes so a slow save can
	// tell whether the form it belongs to is still the open one.
	FormSeq   uint64
	Loaded    bool
	SeedTried bool
}

func initialState() State {
	return State{Filter: board.DefaultFilter()}
}

// applySnapshot replaces the record set. The second result asks the caller
// to seed the collection: only the first snapshot, only when empty.
func applySnapshot(s State, records []board.Event) (State, bool) {
	out := s
	out.Records = slices.Clone(records)
	if out.Records == nil {
		out.Records = []board.Event{}
	}
	seed := !s.Loaded && !s.SeedTried && len(records) == 0
	out.Loaded = true
	if seed {
		out.SeedTried = true
	}
	return out, seed
}

func applyFilterPatch(s State, patch board.FilterPatch) State {
	out := s
	out.Filter = s.Filter.Merge(patch)
	return out
}

func resetFilter(s State) State {
	out := s
	out.Filter = board.DefaultFilter()
	return out
}

func openCreate(s State) (State, Form) {
	out := s
	out.EditTarget = ""
	out.Form = FormCreate
	out.FormSeq++
	return out, blankForm()
}

// openEdit reports false, and returns s unchanged, when id is unknown.
func openEdit(s State, id string) (State, Form, bool) {
	event, ok := board.FindByID(s.Records, id)
	if !ok {
		return s, Form{}, false
	}
	out := s
	out.EditTarget = event.ID
	out.Form = FormEdit
	out.FormSeq++
	return out, editForm(event), true
}

func closeForm(s State) State {
	out := s
	out.EditTarget = ""
	out.Form = FormClosed
	out.FormSeq++
	return out
}

func visible(s State, engine *board.Engine) ViewModel {
	return buildViewModel(engine.Apply(s.Records, s.Filter), len(s.Records), s.Filter, engine)
}
