package frontend

import (
	"context"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/eventboard/project/internal/app/boardctl"
	"github.com/eventboard/project/internal/board"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

// noSignals keeps Datastar from posting the signal store with an action.
const noSignals = `{filterSignals: {include: /^$/}}`

func write(w io.Writer, s string) error {
	_, err := io.WriteString(w, s)
	return err
}

// BoardPage is the full document; the stream fills in list, form and errors.
func BoardPage() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var sb strings.Builder
		sb.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"/>`)
		sb.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1"/>`)
		sb.WriteString(`<title>Event Board</title>`)
		sb.WriteString(`<link rel="stylesheet" href="/static/styles.css"/>`)
		sb.WriteString(`<script type="module" src="` + datastarScript + `"></script>`)
		sb.WriteString(`</head><body data-signals="{session: ''}" data-on-load="@get('/board/stream')">`)
		sb.WriteString(`<main class="board">`)
		sb.WriteString(`<header class="board-header"><h1>Event Board</h1>`)
		sb.WriteString(`<button id="add-event" class="btn-primary" data-on:click="$session && @post('/board/' + $session + '/form/new', ` + noSignals + `)">Add New Event</button>`)
		sb.WriteString(`</header>`)
		sb.WriteString(`<div id="error-banner"></div>`)
		writeFilterBar(&sb, board.DefaultFilter())
		sb.WriteString(`<div id="event-list" class="events-board"><div class="loading">Loading events...</div></div>`)
		sb.WriteString(`<div id="form-modal" class="modal"></div>`)
		sb.WriteString(`</main></body></html>`)
		return write(w, sb.String())
	})
}

func writeFilterBar(sb *strings.Builder, filter board.FilterSpec) {
	post := `$session && @post('/board/' + $session + '/filter', {contentType: 'form'})`
	sb.WriteString(`<form id="filters" class="filters" data-on:submit="` + post + `">`)
	sb.WriteString(`<input type="search" name="search" placeholder="Search events..." value="`)
	sb.WriteString(html.EscapeString(filter.Search))
	sb.WriteString(`" data-on:input__debounce.250ms="` + post + `"/>`)

	sb.WriteString(`<select name="category" data-on:change="` + post + `">`)
	writeOption(sb, string(board.CategoryAny), "All Categories", string(filter.Category))
	for _, c := range board.Categories() {
		writeOption(sb, string(c), string(c), string(filter.Category))
	}
	sb.WriteString(`</select>`)

	sb.WriteString(`<select name="date" data-on:change="` + post + `">`)
	writeOption(sb, string(board.BucketAny), "All Dates", string(filter.Bucket))
	writeOption(sb, string(board.BucketUpcoming), "Upcoming", string(filter.Bucket))
	writeOption(sb, string(board.BucketPast), "Past", string(filter.Bucket))
	sb.WriteString(`</select>`)

	sb.WriteString(`<select name="sort" data-on:change="` + post + `">`)
	writeOption(sb, string(board.SortDateDesc), "Newest First", string(filter.Sort))
	writeOption(sb, string(board.SortDateAsc), "Oldest First", string(filter.Sort))
	writeOption(sb, string(board.SortTitleAsc), "Title A-Z", string(filter.Sort))
	writeOption(sb, string(board.SortTitleDesc), "Title Z-A", string(filter.Sort))
	sb.WriteString(`</select>`)

	sb.WriteString(`<button type="button" class="btn-secondary" data-on:click="$session && @post('/board/' + $session + '/filter/clear', ` + noSignals + `); evt.currentTarget.form.reset()">Clear</button>`)
	sb.WriteString(`</form>`)
}

func writeOption(sb *strings.Builder, value, label, selected string) {
	sb.WriteString(`<option value="`)
	sb.WriteString(html.EscapeString(value))
	sb.WriteString(`"`)
	if value == selected {
		sb.WriteString(` selected`)
	}
	sb.WriteString(`>`)
	sb.WriteString(html.EscapeString(label))
	sb.WriteString(`</option>`)
}

// EventList renders #event-list: the count line and every card in order.
func EventList(vm boardctl.ViewModel) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var sb strings.Builder
		sb.WriteString(`<div id="event-list" class="events-board">`)
		fmt.Fprintf(&sb, `<div class="events-count" data-count="%d">Showing %d of %d events</div>`, vm.Count, vm.Count, vm.Total)

		if vm.Empty() {
			sb.WriteString(`<div class="empty-state"><h3>`)
			sb.WriteString(html.EscapeString(vm.EmptyTitle))
			sb.WriteString(`</h3><p>`)
			sb.WriteString(html.EscapeString(vm.EmptyMessage))
			sb.WriteString(`</p></div></div>`)
			return write(w, sb.String())
		}

		for _, card := range vm.Cards {
			writeCard(&sb, card)
		}
		sb.WriteString(`</div>`)
		return write(w, sb.String())
	})
}

func writeCard(sb *strings.Builder, card boardctl.EventCard) {
	color := html.EscapeString(card.Color)
	id := html.EscapeString(card.ID)

	sb.WriteString(`<div class="event-item`)
	if card.Past {
		sb.WriteString(` event-past`)
	}
	sb.WriteString(`" data-event-id="` + id + `">`)

	sb.WriteString(`<div class="event-date-badge" style="background: ` + color + `">`)
	sb.WriteString(`<div class="date-day">` + html.EscapeString(card.Day) + `</div>`)
	sb.WriteString(`<div class="date-month">` + html.EscapeString(card.Month) + `</div></div>`)

	sb.WriteString(`<div class="event-content"><div class="event-header-row"><h3>`)
	sb.WriteString(html.EscapeString(card.Title))
	sb.WriteString(`</h3><span class="event-category" style="background: ` + color + `20; color: ` + color + `; border-color: ` + color + `">`)
	sb.WriteString(html.EscapeString(string(card.Category)))
	sb.WriteString(`</span></div>`)

	sb.WriteString(`<div class="event-info">`)
	sb.WriteString(`<span class="event-info-item">` + html.EscapeString(card.DisplayDate) + `</span>`)
	sb.WriteString(`<span class="event-info-item">` + html.EscapeString(card.DisplayTime) + `</span>`)
	sb.WriteString(`<span class="event-info-item">` + html.EscapeString(card.Location) + `</span>`)
	sb.WriteString(`</div>`)
	sb.WriteString(`<p class="event-description">` + html.EscapeString(card.Description) + `</p>`)
	if card.Past {
		sb.WriteString(`<div class="event-past-label">Past Event</div>`)
	}
	sb.WriteString(`</div>`)

	sb.WriteString(`<div class="event-actions">`)
	sb.WriteString(`<button class="btn-edit" title="Edit Event" data-id="` + id + `" data-on:click="@post('/board/' + $session + '/form/edit/' + evt.currentTarget.dataset.id, ` + noSignals + `)">Edit</button>`)
	sb.WriteString(`<button class="btn-delete" title="Delete Event" data-id="` + id + `" data-on:click="confirm('` + boardctl.DeletePrompt + `') && @delete('/board/' + $session + '/events/' + evt.currentTarget.dataset.id + '?confirmed=true', ` + noSignals + `)">Delete</button>`)
	sb.WriteString(`</div></div>`)
}

// EventForm renders #form-modal; a closed form renders the hidden shell.
func EventForm(form boardctl.Form) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if form.Mode == boardctl.FormClosed {
			return write(w, `<div id="form-modal" class="modal"></div>`)
		}

		v := form.Values
		cancel := `@post('/board/' + $session + '/form/cancel', ` + noSignals + `)`

		var sb strings.Builder
		sb.WriteString(`<div id="form-modal" class="modal active" data-mode="` + form.Mode.String() + `">`)
		sb.WriteString(`<div class="modal-content"><div class="modal-header"><h2>`)
		sb.WriteString(html.EscapeString(form.Heading))
		sb.WriteString(`</h2><button class="close-btn" type="button" data-on:click="` + cancel + `">&times;</button></div>`)

		sb.WriteString(`<form id="event-form" data-on:submit="@post('/board/' + $session + '/events', {contentType: 'form'})">`)
		writeInput(&sb, "Event Title *", "text", "title", v.Title, true)
		writeInput(&sb, "Date *", "date", "date", v.Date, true)

		sb.WriteString(`<div class="form-row"><label>Time *</label>`)
		writeSelect(&sb, "hour", v.Hour, numberOptions(0, 23, 1))
		writeSelect(&sb, "minute", v.Minute, numberOptions(0, 55, 5))
		sb.WriteString(`</div>`)

		writeInput(&sb, "Location", "text", "location", v.Location, false)
		sb.WriteString(`<div class="form-row"><label for="description">Description</label><textarea id="description" name="description" rows="3">`)
		sb.WriteString(html.EscapeString(v.Description))
		sb.WriteString(`</textarea></div>`)

		categories := make([]string, 0, 6)
		for _, c := range board.Categories() {
			categories = append(categories, string(c))
		}
		sb.WriteString(`<div class="form-row"><label>Category *</label>`)
		writeSelect(&sb, "category", v.Category, categories)
		sb.WriteString(`</div>`)

		sb.WriteString(`<div class="form-actions">`)
		sb.WriteString(`<button type="button" class="btn-secondary" data-on:click="` + cancel + `">Cancel</button>`)
		sb.WriteString(`<button type="submit" class="btn-primary">Save Event</button>`)
		sb.WriteString(`</div></form></div></div>`)
		return write(w, sb.String())
	})
}

func writeInput(sb *strings.Builder, label, kind, name, value string, required bool) {
	sb.WriteString(`<div class="form-row"><label for="` + name + `">` + html.EscapeString(label) + `</label>`)
	sb.WriteString(`<input id="` + name + `" type="` + kind + `" name="` + name + `" value="`)
	sb.WriteString(html.EscapeString(value))
	sb.WriteString(`"`)
	if required {
		sb.WriteString(` required`)
	}
	sb.WriteString(`/></div>`)
}

// writeSelect keeps a current value that is not among the options
// selectable, so editing never silently changes it.
func writeSelect(sb *strings.Builder, name, current string, options []string) {
	sb.WriteString(`<select name="` + name + `" required>`)
	writeOption(sb, "", "--", current)
	found := current == ""
	for _, opt := range options {
		if opt == current {
			found = true
		}
		writeOption(sb, opt, opt, current)
	}
	if !found {
		writeOption(sb, current, current, current)
	}
	sb.WriteString(`</select>`)
}

func numberOptions(from, to, step int) []string {
	out := make([]string, 0, (to-from)/step+1)
	for n := from; n <= to; n += step {
		out = append(out, fmt.Sprintf("%02d", n))
	}
	return out
}

// ErrorBanner renders #error-banner; an empty message clears it.
func ErrorBanner(message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if message == "" {
			return write(w, `<div id="error-banner"></div>`)
		}
		return write(w, `<div id="error-banner" class="error-banner" role="alert"><span>`+
			html.EscapeString(message)+
			`</span><button type="button" data-on:click="evt.currentTarget.parentElement.replaceChildren()">&times;</button></div>`)
	})
}
