package scenario

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/napi-runtime/errors"
	"github.com/wippyai/napi-runtime/napi"
)

// Op names a scenario step.
type Op string

const (
	OpOpen           Op = "open"
	OpOpenEscapable  Op = "open_escapable"
	OpClose          Op = "close"
	OpCloseEscapable Op = "close_escapable"
	OpEscape         Op = "escape"
	OpNewObject      Op = "new_object"
	OpSetProperty    Op = "set_property"
	OpCreateRef      Op = "create_ref"
	OpRef            Op = "ref"
	OpUnref          Op = "unref"
	OpDeleteRef      Op = "delete_ref"
	OpGetRef         Op = "get_ref"
	OpWrap           Op = "wrap"
	OpUnwrap         Op = "unwrap"
	OpRemoveWrap     Op = "remove_wrap"
	OpGC             Op = "gc"
	OpAddHook        Op = "add_hook"
	OpRemoveHook     Op = "remove_hook"
	OpStartTimer     Op = "start_timer"
	OpStopTimer      Op = "stop_timer"
	OpAdvance        Op = "advance"
	OpTeardown       Op = "teardown"
)

var knownOps = map[Op]struct{}{
	OpOpen: {}, OpOpenEscapable: {}, OpClose: {}, OpCloseEscapable: {},
	OpEscape: {}, OpNewObject: {}, OpSetProperty: {}, OpCreateRef: {},
	OpRef: {}, OpUnref: {}, OpDeleteRef: {}, OpGetRef: {}, OpWrap: {},
	OpUnwrap: {}, OpRemoveWrap: {}, OpGC: {}, OpAddHook: {},
	OpRemoveHook: {}, OpStartTimer: {}, OpStopTimer: {}, OpAdvance: {},
	OpTeardown: {},
}

// Timer actions run against the step's reference when a timer fires.
var timerActions = map[string]struct{}{
	"unref": {}, "delete_ref": {}, "gc": {},
}

// Step is one [[step]] table.
type Step struct {
	Op     Op     `toml:"op"`
	Obj    string `toml:"obj"`
	Ref    string `toml:"ref"`
	Scope  string `toml:"scope"`
	Hook   string `toml:"hook"`
	Timer  string `toml:"timer"`
	Arg    string `toml:"arg"`
	Key    string `toml:"key"`
	Value  string `toml:"value"`
	Expect string `toml:"expect"`
	Count  int64  `toml:"count"`
}

// File is a parsed scenario.
type File struct {
	Name  string `toml:"name"`
	Steps []Step `toml:"step"`
}

// Load reads and validates a scenario file.
func Load(path string) (*File, error) {
	var f File
	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseScenario, errors.KindInvalidData, err,
			fmt.Sprintf("%s: failed to parse TOML", path))
	}
	if err := f.check(meta); err != nil {
		return nil, err
	}
	if f.Name == "" {
		f.Name = path
	}
	return &f, nil
}

// Parse decodes a scenario from TOML text.
func Parse(data string) (*File, error) {
	var f File
	meta, err := toml.Decode(data, &f)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseScenario, errors.KindInvalidData, err, "failed to parse TOML")
	}
	if err := f.check(meta); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) check(meta toml.MetaData) error {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.InvalidData(errors.PhaseScenario,
			"unknown keys: "+strings.Join(keys, ", "))
	}
	if len(f.Steps) == 0 {
		return errors.InvalidData(errors.PhaseScenario, "no [[step]] tables")
	}
	for i, s := range f.Steps {
		if _, ok := knownOps[s.Op]; !ok {
			return errors.InvalidData(errors.PhaseScenario,
				fmt.Sprintf("step %d: unknown op %q", i+1, s.Op))
		}
		if s.Expect != "" {
			if _, ok := napi.ParseStatus(s.Expect); !ok {
				return errors.InvalidData(errors.PhaseScenario,
					fmt.Sprintf("step %d: unknown status %q", i+1, s.Expect))
			}
		}
		if s.Op == OpStartTimer {
			if _, ok := timerActions[s.Arg]; !ok {
				return errors.InvalidData(errors.PhaseScenario,
					fmt.Sprintf("step %d: unknown timer action %q", i+1, s.Arg))
			}
		}
		if s.Count < 0 {
			return errors.InvalidData(errors.PhaseScenario,
				fmt.Sprintf("step %d: negative count %d", i+1, s.Count))
		}
	}
	return nil
}
