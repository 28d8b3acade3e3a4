// Package testing provides a component testing harness for weft.
//
// # Quick Start
//
// Create a tester, mount a component, and make assertions:
//
//	func TestCounter(t *testing.T) {
//	    tester := wefttest.NewTesterWithT(t)
//	    var inc func()
//	    tester.Mount("counter", func(s *core.Session) {
//	        n, set := core.UseState(s, 0)
//	        inc = func() { set(n + 1) }
//	    })
//
//	    inc()
//	    tester.Pump()
//
//	    if tester.Find(wefttest.ByName("counter")).First().RenderCount() != 2 {
//	        t.Error("expected a rebuild")
//	    }
//	}
//
// Pump rebuilds dirty components and delivers pending mutation records to
// the directive engine until both settle.
//
// # Snapshot Testing
//
// Capture and compare the component and host trees:
//
//	snapshot := tester.CaptureSnapshot()
//	snapshot.MatchesFile(t, "testdata/panel.snapshot.json")
//
// Update snapshots with:
//
//	WEFT_UPDATE_SNAPSHOTS=1 go test ./...
//
// # Import Alias
//
// Since this package has the same name as the standard library testing
// package, import it with an alias:
//
//	import wefttest "github.com/go-drift/weft/pkg/testing"
package testing
