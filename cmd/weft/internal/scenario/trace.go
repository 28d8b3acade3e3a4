package scenario

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	wefterrors "github.com/go-drift/weft/pkg/errors"
)

// Entry is one traced lifecycle event.
type Entry struct {
	Seq     int    `json:"seq"`
	Source  string `json:"source"`
	Subject string `json:"subject,omitempty"`
	Event   string `json:"event"`
	Detail  string `json:"detail,omitempty"`
}

// Line renders the entry without its sequence number. Expectations in
// scenario files are written in this form.
func (e Entry) Line() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{e.Source, e.Subject, e.Event, e.Detail} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Trace accumulates entries in order.
type Trace struct {
	mu      sync.Mutex
	entries []Entry
	errors  int
}

func (t *Trace) add(source, subject, event, detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, Entry{
		Seq:     len(t.entries) + 1,
		Source:  source,
		Subject: subject,
		Event:   event,
		Detail:  detail,
	})
	if source == "error" {
		t.errors++
	}
}

// Entries returns a copy of the recorded entries.
func (t *Trace) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Entry(nil), t.entries...)
}

// traceHandler records every reported fault as an "error" entry and
// forwards it to next when set.
type traceHandler struct {
	trace *Trace
	next  wefterrors.ErrorHandler
}

func (h *traceHandler) HandleError(err *wefterrors.RuntimeError) {
	detail := ""
	if err.Err != nil {
		detail = err.Err.Error()
	}
	if err.Token != "" {
		detail = "token=" + err.Token + " " + detail
	}
	h.trace.add("error", err.Op, err.Kind.String(), strings.TrimSpace(detail))
	if h.next != nil {
		h.next.HandleError(err)
	}
}

func (h *traceHandler) HandlePanic(err *wefterrors.PanicError) {
	h.trace.add("error", err.Op, "panic", fmt.Sprint(err.Value))
	if h.next != nil {
		h.next.HandlePanic(err)
	}
}

// Result is the outcome of one replay.
type Result struct {
	// RunID distinguishes replays of the same scenario in collected output.
	RunID    string  `json:"run_id"`
	Scenario string  `json:"scenario"`
	// Module labels the trace with the module the replay ran in.
	Module   string  `json:"module,omitempty"`
	Entries  []Entry `json:"entries"`
	Errors   int     `json:"errors"`
}

// Lines returns the entries in Line form.
func (r *Result) Lines() []string {
	lines := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		lines[i] = e.Line()
	}
	return lines
}

// MismatchError reports the first difference between a trace and its
// expectation.
type MismatchError struct {
	Index int
	Want  string
	Got   string
}

func (e *MismatchError) Error() string {
	switch {
	case e.Got == "":
		return fmt.Sprintf("trace line %d: missing %q", e.Index+1, e.Want)
	case e.Want == "":
		return fmt.Sprintf("trace line %d: unexpected %q", e.Index+1, e.Got)
	default:
		return fmt.Sprintf("trace line %d: want %q, got %q", e.Index+1, e.Want, e.Got)
	}
}

// Check compares the trace with expect line by line. An empty expectation
// always passes.
func (r *Result) Check(expect []string) error {
	if len(expect) == 0 {
		return nil
	}
	got := r.Lines()
	for i := 0; i < max(len(got), len(expect)); i++ {
		var w, g string
		if i < len(expect) {
			w = strings.TrimSpace(expect[i])
		}
		if i < len(got) {
			g = got[i]
		}
		if w != g {
			return &MismatchError{Index: i, Want: w, Got: g}
		}
	}
	return nil
}

// WriteText prints one numbered line per entry followed by a summary.
func (r *Result) WriteText(w io.Writer) error {
	if r.Scenario != "" {
		header := "scenario " + r.Scenario
		if r.Module != "" {
			header += " (module " + r.Module + ")"
		}
		if _, err := fmt.Fprintln(w, header); err != nil {
			return err
		}
	}
	for _, e := range r.Entries {
		if _, err := fmt.Fprintf(w, "%4d  %s\n", e.Seq, e.Line()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d entries, %d errors\n", len(r.Entries), r.Errors)
	return err
}

// WriteJSON prints the result as indented JSON.
func (r *Result) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
