package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func replay(t *testing.T, sc *Scenario) *Result {
	t.Helper()
	res, err := Run(context.Background(), sc, Options{StrictHookOrder: true})
	require.NoError(t, err)
	return res
}

func TestTestdataScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			sc, err := Load(path)
			require.NoError(t, err)
			res := replay(t, sc)
			assert.NoError(t, res.Check(sc.Expect), strings.Join(res.Lines(), "\n"))
		})
	}
}

func TestTextOutputGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithNameSuffix(".golden"),
	)
	for _, name := range []string{"tooltip", "counter"} {
		t.Run(name, func(t *testing.T) {
			sc, err := Load(filepath.Join("testdata", name+".yaml"))
			require.NoError(t, err)
			var out bytes.Buffer
			require.NoError(t, replay(t, sc).WriteText(&out))
			g.Assert(t, name, out.Bytes())
		})
	}
}

func TestRunIDsAreDistinct(t *testing.T) {
	sc, err := Parse([]byte("name: empty\n"))
	require.NoError(t, err)
	a, b := replay(t, sc), replay(t, sc)
	assert.NotEmpty(t, a.RunID)
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, []string{"runtime started", "runtime stopped"}, a.Lines())
}

func TestCounterCountsErrors(t *testing.T) {
	sc, err := Load(filepath.Join("testdata", "counter.yaml"))
	require.NoError(t, err)
	res := replay(t, sc)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, "counter", res.Scenario)
}

func TestFailingSingletonKeepsReplayGoing(t *testing.T) {
	sc, err := Load(filepath.Join("testdata", "failing_service.yaml"))
	require.NoError(t, err)
	require.True(t, sc.Services[0].Fail)

	res, err := Run(context.Background(), sc, Options{StrictHookOrder: true})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Errors)
	assert.Contains(t, res.Lines(), "directive tip@ok destroy")
	assert.Equal(t, "runtime stopped", res.Lines()[len(res.Entries)-1])
}

func TestFailingCallbackIsTracedAndIsolated(t *testing.T) {
	sc, err := Parse([]byte(`
directives:
  - name: tip
    selector: "[tooltip]"
    fail: [connected]
tree:
  - tag: a
    id: one
    attrs: {tooltip: x}
  - tag: a
    id: two
    attrs: {tooltip: y}
`))
	require.NoError(t, err)
	res := replay(t, sc)

	assert.Equal(t, []string{
		"directive tip@one init",
		"directive tip@one connected",
		"error directive.OnConnected callback token=tip connected failed",
		"directive tip@two init",
		"directive tip@two connected",
		"error directive.OnConnected callback token=tip connected failed",
		"runtime started",
		"directive tip@one destroy",
		"directive tip@two destroy",
		"runtime stopped",
	}, res.Lines())
	assert.Equal(t, 2, res.Errors)
}

func TestAddedAndRemovedInOneBatch(t *testing.T) {
	sc, err := Parse([]byte(`
directives:
  - name: tip
    selector: "[tooltip]"
steps:
  - append: {node: {tag: span, id: s, attrs: {tooltip: hi}}}
  - remove: s
`))
	require.NoError(t, err)
	res := replay(t, sc)

	assert.Equal(t, []string{
		"runtime started",
		"directive tip@s init",
		"directive tip@s disconnected",
		"directive tip@s destroy",
		"runtime stopped",
	}, res.Lines())
}

func TestClassChangeAttachesLateMatch(t *testing.T) {
	sc, err := Parse([]byte(`
directives:
  - name: hl
    selector: ".hot"
tree:
  - tag: li
    id: item
steps:
  - add_class: {node: item, class: hot}
`))
	require.NoError(t, err)
	res := replay(t, sc)

	assert.Equal(t, []string{
		"runtime started",
		"directive hl@item init",
		"directive hl@item connected",
		"directive hl@item destroy",
		"runtime stopped",
	}, res.Lines())
}

func TestUnknownReferencesAbortReplay(t *testing.T) {
	tests := map[string]string{
		"node":      "steps:\n  - remove: ghost\n",
		"component": "steps:\n  - set_state: {component: ghost, value: 1}\n",
		"unmount":   "steps:\n  - unmount: ghost\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			sc, err := Parse([]byte(body))
			require.NoError(t, err)
			_, err = Run(context.Background(), sc, Options{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "steps[0]")
			assert.Contains(t, err.Error(), "ghost")
		})
	}
}

func TestValidate(t *testing.T) {
	_, err := Parse([]byte(`
services:
  - value: 1
directives:
  - name: x
    fail: [explode]
components:
  - name: a
    children:
      - name: a
steps:
  - {}
  - remove: x
    flush: true
`))
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		"services[0]: token is required",
		"directives[0]: selector is required",
		`unknown fail event "explode"`,
		`duplicate component "a"`,
		"steps[0]: expected exactly one action, got 0",
		"steps[1]: expected exactly one action, got 2",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestCheckMismatch(t *testing.T) {
	res := &Result{Entries: []Entry{
		{Seq: 1, Source: "runtime", Event: "started"},
		{Seq: 2, Source: "runtime", Event: "stopped"},
	}}
	assert.NoError(t, res.Check(nil))
	assert.NoError(t, res.Check([]string{"runtime started", " runtime stopped "}))

	err := res.Check([]string{"runtime started"})
	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 1, mismatch.Index)
	assert.Equal(t, "runtime stopped", mismatch.Got)
	assert.Contains(t, err.Error(), "unexpected")

	err = res.Check([]string{"runtime started", "runtime paused"})
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "runtime paused", mismatch.Want)
}

func TestWriters(t *testing.T) {
	res := &Result{Scenario: "demo", Entries: []Entry{
		{Seq: 1, Source: "directive", Subject: "tip@ok", Event: "init"},
	}}

	var text bytes.Buffer
	require.NoError(t, res.WriteText(&text))
	assert.Equal(t, "scenario demo\n   1  directive tip@ok init\n1 entries, 0 errors\n", text.String())

	var out bytes.Buffer
	require.NoError(t, res.WriteJSON(&out))
	var decoded Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, res.Entries, decoded.Entries)
}
