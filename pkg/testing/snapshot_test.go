package testing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-drift/weft/pkg/core"
	"github.com/go-drift/weft/pkg/dom"
)

type fakeT struct {
	fatal  string
	errors []string
}

func (f *fakeT) Helper()      {}
func (f *fakeT) Name() string { return "TestFake" }
func (f *fakeT) Fatalf(format string, args ...any) {
	f.fatal = format
}
func (f *fakeT) Errorf(format string, args ...any) {
	f.errors = append(f.errors, format)
}

func snapshotTester(t *testing.T) *Tester {
	t.Helper()
	tester := NewTesterWithT(t)
	if err := tester.Define("tooltip", "[tooltip]", func(*dom.Node) any { return struct{}{} }); err != nil {
		t.Fatal(err)
	}
	if err := tester.Start(); err != nil {
		t.Fatal(err)
	}
	host := tester.Document().CreateElement("button", dom.Attr{Name: "tooltip", Value: "hi"})
	_, err := tester.Mount("button", func(s *core.Session) {
		core.UseState(s, 0)
		core.UseRef(s, "")
	}, core.WithHost(host))
	if err != nil {
		t.Fatal(err)
	}
	return tester
}

func TestCaptureSnapshot_Structure(t *testing.T) {
	tester := snapshotTester(t)
	snap := tester.CaptureSnapshot()

	if len(snap.Components) != 1 {
		t.Fatalf("expected 1 root, got %d", len(snap.Components))
	}
	root := snap.Components[0]
	if root.Name != "button" || root.Slots != 2 || root.Renders != 1 || root.Host != "button" {
		t.Errorf("unexpected component node %+v", root)
	}
	if snap.Document == nil || len(snap.Document.Children) != 1 {
		t.Fatalf("expected the host node under the root, got %+v", snap.Document)
	}
	btn := snap.Document.Children[0]
	if btn.Attrs["tooltip"] != "hi" {
		t.Errorf("attrs = %v", btn.Attrs)
	}
	if len(btn.Directives) != 1 || btn.Directives[0] != "tooltip:connected" {
		t.Errorf("directives = %v", btn.Directives)
	}
}

func TestSnapshot_Diff(t *testing.T) {
	tester := snapshotTester(t)
	a := tester.CaptureSnapshot()
	b := tester.CaptureSnapshot()
	if diff := a.Diff(b); diff != "" {
		t.Errorf("expected no diff, got:\n%s", diff)
	}

	tester.Query("button")[0].SetAttribute("tooltip", "bye")
	c := tester.CaptureSnapshot()
	diff := a.Diff(c)
	if !strings.Contains(diff, `"bye"`) {
		t.Errorf("expected attribute change in diff, got:\n%s", diff)
	}
}

func TestSnapshot_UpdateAndMatch(t *testing.T) {
	tester := snapshotTester(t)
	snap := tester.CaptureSnapshot()
	path := filepath.Join(t.TempDir(), "nested", "button.snapshot.json")

	if err := snap.UpdateFile(path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}

	ft := &fakeT{}
	snap.MatchesFile(ft, path)
	if ft.fatal != "" || len(ft.errors) != 0 {
		t.Errorf("expected match, got fatal=%q errors=%v", ft.fatal, ft.errors)
	}
}

func TestSnapshot_MissingFile(t *testing.T) {
	t.Setenv("WEFT_UPDATE_SNAPSHOTS", "")
	tester := snapshotTester(t)
	ft := &fakeT{}
	tester.CaptureSnapshot().MatchesFile(ft, filepath.Join(t.TempDir(), "missing.json"))
	if !strings.HasPrefix(ft.fatal, "snapshot file missing") {
		t.Errorf("expected missing-file failure, got %q", ft.fatal)
	}
}
