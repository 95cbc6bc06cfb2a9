package scenario

import (
	"fmt"
	"maps"
	"slices"

	"github.com/wippyai/napi-runtime/errors"
	"github.com/wippyai/napi-runtime/napi"
)

// StepResult is the outcome of one step and the state it left behind.
type StepResult struct {
	Op     Op          `msgpack:"op"`
	Expect string      `msgpack:"expect,omitempty"`
	Detail string      `msgpack:"detail,omitempty"`
	Events []string    `msgpack:"events,omitempty"`
	State  State       `msgpack:"state"`
	Index  int         `msgpack:"index"`
	Status napi.Status `msgpack:"status"`
	Failed bool        `msgpack:"failed"`
}

func (s StepResult) String() string {
	out := fmt.Sprintf("#%d %s: %s", s.Index, s.Op, s.Status)
	if s.Detail != "" {
		out += " (" + s.Detail + ")"
	}
	if s.Failed && s.Expect != "" && s.Expect != s.Status.String() {
		out += ", want " + s.Expect
	}
	return out
}

// State is the observable environment and heap state after a step.
type State struct {
	Objects    []ObjectState    `msgpack:"objects"`
	References []ReferenceState `msgpack:"references"`
	Scopes     []uint64         `msgpack:"scopes"`
	Collected  uint64           `msgpack:"collected"`
	Hooks      int              `msgpack:"hooks"`
	Closed     bool             `msgpack:"closed"`
}

// ObjectState describes one named object.
type ObjectState struct {
	Name  string `msgpack:"name"`
	Value uint32 `msgpack:"value"`
	Roots uint32 `msgpack:"roots"`
	Alive bool   `msgpack:"alive"`
}

// ReferenceState describes one named reference. References are not
// inspectable once the environment is torn down.
type ReferenceState struct {
	Name     string `msgpack:"name"`
	State    string `msgpack:"state"`
	Target   string `msgpack:"target"`
	Refcount uint32 `msgpack:"refcount"`
}

// Trace is the full record of a run.
type Trace struct {
	Name  string       `msgpack:"name"`
	Steps []StepResult `msgpack:"steps"`
}

// Failures returns the steps whose outcome did not match the file.
func (t *Trace) Failures() []StepResult {
	var out []StepResult
	for _, s := range t.Steps {
		if s.Failed {
			out = append(out, s)
		}
	}
	return out
}

// Err returns an expectation error naming the first failed step, or nil.
func (t *Trace) Err() error {
	failed := t.Failures()
	if len(failed) == 0 {
		return nil
	}
	return errors.New(errors.PhaseScenario, errors.KindExpectation).
		Op(t.Name).
		Value(len(failed)).
		Detail("%d of %d steps failed, first: %s", len(failed), len(t.Steps), failed[0]).
		Build()
}

// Final returns the state after the last step.
func (t *Trace) Final() State {
	if len(t.Steps) == 0 {
		return State{}
	}
	return t.Steps[len(t.Steps)-1].State
}

func (r *Runner) capture() State {
	st := State{
		Scopes:    r.env.ScopeIDs(),
		Collected: r.heap.Collected(),
		Closed:    r.env.Closed(),
	}

	for _, name := range slices.Sorted(maps.Keys(r.objects)) {
		v := r.objects[name]
		st.Objects = append(st.Objects, ObjectState{
			Name:  name,
			Value: uint32(v),
			Roots: r.heap.RootCount(v),
			Alive: r.heap.Alive(v),
		})
	}

	if st.Closed {
		return st
	}
	st.Hooks = r.env.CleanupHooks()

	for _, name := range slices.Sorted(maps.Keys(r.refs)) {
		ref := r.refs[name]
		state, err := r.env.ReferenceState(ref)
		if err != nil {
			// deleted
			continue
		}
		count, _ := r.env.ReferenceCount(ref)
		v, _ := r.env.GetReferenceValue(ref)
		st.References = append(st.References, ReferenceState{
			Name:     name,
			State:    state.String(),
			Target:   r.nameOf(v),
			Refcount: count,
		})
	}
	return st
}
