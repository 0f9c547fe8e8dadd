package boardweb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/a-h/templ"
	"github.com/eventboard/project/internal/app/boardctl"
	"github.com/eventboard/project/services/frontend"
)

const (
	listSelector   = "#event-list"
	formSelector   = "#form-modal"
	bannerSelector = "#error-banner"
)

type patch struct {
	selector string
	mode     string
	elements string
}

// sseView implements boardctl.View by queueing element patches for the
// stream loop. It never blocks the controller.
type sseView struct {
	mu      sync.Mutex
	pending []patch
	ready   chan struct{}
}

var _ boardctl.View = (*sseView)(nil)

func newSSEView() *sseView {
	return &sseView{ready: make(chan struct{}, 1)}
}

func (v *sseView) Render(vm boardctl.ViewModel) {
	v.push(patch{selector: listSelector, mode: "outer", elements: renderString(frontend.EventList(vm))})
}

func (v *sseView) OpenForm(form boardctl.Form) {
	v.push(patch{selector: formSelector, mode: "outer", elements: renderString(frontend.EventForm(form))})
}

func (v *sseView) CloseForm() {
	v.push(patch{selector: formSelector, mode: "outer", elements: renderString(frontend.EventForm(boardctl.Form{}))})
	v.push(patch{selector: bannerSelector, mode: "outer", elements: renderString(frontend.ErrorBanner(""))})
}

func (v *sseView) ReportError(err error) {
	v.push(patch{selector: bannerSelector, mode: "outer", elements: renderString(frontend.ErrorBanner(userMessage(err)))})
}

// push replaces a queued patch for the same selector, since only the
// latest content of an element matters.
func (v *sseView) push(p patch) {
	v.mu.Lock()
	replaced := false
	for i := range v.pending {
		if v.pending[i].selector == p.selector {
			v.pending = append(v.pending[:i], v.pending[i+1:]...)
			v.pending = append(v.pending, p)
			replaced = true
			break
		}
	}
	if !replaced {
		v.pending = append(v.pending, p)
	}
	v.mu.Unlock()

	select {
	case v.ready <- struct{}{}:
	default:
	}
}

func (v *sseView) drain() []patch {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := v.pending
	v.pending = nil
	return out
}

func renderString(c templ.Component) string {
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		return ""
	}
	return buf.String()
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, boardctl.ErrLoad):
		return "Failed to load events. Please try again later."
	case errors.Is(err, boardctl.ErrFieldRequired):
		return "Please fill in all required fields."
	case errors.Is(err, boardctl.ErrPersistence):
		return "Failed to save changes. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}

// sseStream writes Datastar events to one response.
type sseStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s sseStream) patchElements(p patch) {
	fmt.Fprint(s.w, "event: datastar-patch-elements\n")
	fmt.Fprintf(s.w, "data: selector %s\n", p.selector)
	fmt.Fprintf(s.w, "data: mode %s\n", p.mode)
	// Datastar joins multiple elements lines with newlines.
	for _, line := range strings.Split(strings.ReplaceAll(p.elements, "\r", ""), "\n") {
		fmt.Fprintf(s.w, "data: elements %s\n", line)
	}
	fmt.Fprint(s.w, "\n")
	s.flusher.Flush()
}

func (s sseStream) patchSignals(signals map[string]any) error {
	payload, err := json.Marshal(signals)
	if err != nil {
		return err
	}
	fmt.Fprint(s.w, "event: datastar-patch-signals\n")
	fmt.Fprintf(s.w, "data: signals %s\n\n", payload)
	s.flusher.Flush()
	return nil
}
