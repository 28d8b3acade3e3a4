package testing

import (
	"testing"

	"github.com/go-drift/weft/pkg/core"
	"github.com/go-drift/weft/pkg/dom"
)

// mountTree mounts app > (header, body > (button, button)).
func mountTree(t *testing.T) *Tester {
	t.Helper()
	tester := NewTesterWithT(t)
	noop := func(*core.Session) {}
	doc := tester.Document()

	app, err := tester.Mount("app", noop)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tester.MountChild(app, "header", noop); err != nil {
		t.Fatal(err)
	}
	body, err := tester.MountChild(app, "body", noop, core.WithHost(doc.CreateElement("main")))
	if err != nil {
		t.Fatal(err)
	}
	for _, label := range []string{"ok", "cancel"} {
		host := doc.CreateElement("button", dom.Attr{Name: "class", Value: label})
		if _, err := tester.MountChild(body, "button", noop, core.WithHost(host)); err != nil {
			t.Fatal(err)
		}
	}
	return tester
}

func TestByName(t *testing.T) {
	tester := mountTree(t)

	if got := tester.Find(ByName("button")).Count(); got != 2 {
		t.Errorf("expected 2 buttons, got %d", got)
	}
	if !tester.Find(ByName("header")).Exists() {
		t.Error("expected header")
	}
	if tester.Find(ByName("footer")).FirstOrNil() != nil {
		t.Error("expected no footer")
	}
}

func TestByHost(t *testing.T) {
	tester := mountTree(t)

	cancel := tester.Find(ByHost(".cancel"))
	if cancel.Count() != 1 {
		t.Fatalf("expected 1 match, got %d", cancel.Count())
	}
	if cancel.First().Host().Tag() != "button" {
		t.Errorf("unexpected host %v", cancel.First().Host())
	}
	if got := tester.Find(ByHost("main")).First().Name(); got != "body" {
		t.Errorf("ByHost(main) = %q", got)
	}
}

func TestDescendantAndAncestor(t *testing.T) {
	tester := mountTree(t)

	inBody := tester.Find(Descendant(ByName("body"), ByName("button")))
	if inBody.Count() != 2 {
		t.Errorf("expected 2 descendants, got %d", inBody.Count())
	}
	if tester.Find(Descendant(ByName("header"), ByName("button"))).Exists() {
		t.Error("header has no buttons")
	}

	holders := tester.Find(Ancestor(ByHost(".ok"), ByPredicate(func(c *core.Component) bool {
		return len(c.Children()) > 0
	})))
	if holders.Count() != 2 {
		t.Fatalf("expected app and body, got %d", holders.Count())
	}
	if holders.At(0).Name() != "app" || holders.At(1).Name() != "body" {
		t.Errorf("unexpected ancestors %q, %q", holders.At(0).Name(), holders.At(1).Name())
	}
}

func TestFinderResult_PanicsWithDescription(t *testing.T) {
	tester := mountTree(t)
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		if msg, _ := r.(string); msg != `Finder found no components: ByName("missing")` {
			t.Errorf("unexpected panic message %v", r)
		}
	}()
	tester.Find(ByName("missing")).First()
}
