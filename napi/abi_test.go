package napi

import (
	"testing"

	"github.com/wippyai/napi-runtime/engine"
	"github.com/wippyai/napi-runtime/errors"
)

func TestABI_ScopeRoundTrip(t *testing.T) {
	heap, env := newTestEnv(t)

	var outer HandleScope
	if st := OpenHandleScope(env, &outer); st != StatusOK {
		t.Fatalf("open: %v", st)
	}
	var inner EscapableHandleScope
	if st := OpenEscapableHandleScope(env, &inner); st != StatusOK {
		t.Fatalf("open escapable: %v", st)
	}

	obj := heap.NewObject()
	var escaped engine.Value
	if st := EscapeHandle(env, inner, obj, &escaped); st != StatusOK || escaped != obj {
		t.Fatalf("escape: %v %v", st, escaped)
	}
	if st := EscapeHandle(env, inner, obj, &escaped); st != StatusEscapeCalledTwice {
		t.Fatalf("second escape: %v", st)
	}
	if st := CloseHandleScope(env, outer); st != StatusHandleScopeMismatch {
		t.Fatalf("close outer first: %v", st)
	}
	if st := CloseEscapableHandleScope(env, inner); st != StatusOK {
		t.Fatalf("close inner: %v", st)
	}
	if st := CloseHandleScope(env, outer); st != StatusOK {
		t.Fatalf("close outer: %v", st)
	}

	var cs CallbackScope
	if st := OpenCallbackScope(env, obj, nil, &cs); st != StatusOK {
		t.Fatalf("open callback scope: %v", st)
	}
	if st := CloseCallbackScope(env, cs); st != StatusOK {
		t.Fatalf("close callback scope: %v", st)
	}
}

func TestABI_NilResult(t *testing.T) {
	heap, env := newTestEnv(t)
	obj := heap.NewObject()

	tests := []struct {
		name string
		call func() Status
	}{
		{"open_handle_scope", func() Status { return OpenHandleScope(env, nil) }},
		{"open_escapable_handle_scope", func() Status { return OpenEscapableHandleScope(env, nil) }},
		{"open_callback_scope", func() Status { return OpenCallbackScope(env, obj, nil, nil) }},
		{"escape_handle", func() Status { return EscapeHandle(env, EscapableHandleScope{}, obj, nil) }},
		{"create_reference", func() Status { return CreateReference(env, obj, 0, nil) }},
		{"get_reference_value", func() Status { return GetReferenceValue(env, 0, nil) }},
		{"unwrap", func() Status { return Unwrap(env, obj, nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if st := tt.call(); st != StatusInvalidArg {
				t.Fatalf("status = %v", st)
			}
			var info ErrorInfo
			GetLastErrorInfo(env, &info)
			if info.Status != StatusInvalidArg || info.Message == "" {
				t.Fatalf("last error = %+v", info)
			}
		})
	}
	if env.OpenScopes() != 0 {
		t.Fatal("a rejected call opened a scope")
	}
}

func TestABI_ReferenceLifecycle(t *testing.T) {
	heap, env := newTestEnv(t)
	obj := heap.NewObject()

	var ref Reference
	if st := CreateReference(env, obj, 1, &ref); st != StatusOK {
		t.Fatalf("create: %v", st)
	}
	var n uint32
	if st := ReferenceRef(env, ref, &n); st != StatusOK || n != 2 {
		t.Fatalf("ref: %v %d", st, n)
	}
	if st := ReferenceUnref(env, ref, nil); st != StatusOK {
		t.Fatalf("unref with nil result: %v", st)
	}
	if st := ReferenceUnref(env, ref, &n); st != StatusOK || n != 0 {
		t.Fatalf("unref: %v %d", st, n)
	}
	if st := ReferenceUnref(env, ref, &n); st != StatusInvalidArg {
		t.Fatalf("unref below zero: %v", st)
	}

	var v engine.Value
	if st := GetReferenceValue(env, ref, &v); st != StatusOK || v != obj {
		t.Fatalf("get: %v %v", st, v)
	}

	heap.Collect()
	if st := GetReferenceValue(env, ref, &v); st != StatusOK || !v.IsDead() {
		t.Fatalf("get after collect: %v %v", st, v)
	}
	if st := DeleteReference(env, ref); st != StatusOK {
		t.Fatalf("delete: %v", st)
	}
	if st := DeleteReference(env, ref); st != StatusInvalidArg {
		t.Fatalf("delete twice: %v", st)
	}
}

func TestABI_LastErrorTracksMostRecentCall(t *testing.T) {
	heap, env := newTestEnv(t)

	if st := CreateReference(env, engine.Dead, 0, new(Reference)); st != StatusInvalidArg {
		t.Fatalf("create dead: %v", st)
	}
	var info ErrorInfo
	GetLastErrorInfo(env, &info)
	if info.Status != StatusInvalidArg || errors.KindOf(info.Err) != errors.KindInvalidArg {
		t.Fatalf("last error = %+v", info)
	}

	var ref Reference
	CreateReference(env, heap.NewObject(), 0, &ref)
	GetLastErrorInfo(env, &info)
	if info.Status != StatusOK || info.Err != nil || info.Message != "" {
		t.Fatalf("last error after success = %+v", info)
	}

	if st := GetLastErrorInfo(env, nil); st != StatusInvalidArg {
		t.Fatalf("nil info: %v", st)
	}
}

func TestABI_CleanupHooks(t *testing.T) {
	_, env := newTestEnv(t)
	ran := 0
	fn := func(any) { ran++ }

	if st := AddEnvCleanupHook(env, fn, 7); st != StatusOK {
		t.Fatalf("add: %v", st)
	}
	if st := AddEnvCleanupHook(env, fn, 7); st != StatusInvalidArg {
		t.Fatalf("duplicate add: %v", st)
	}
	if st := RemoveEnvCleanupHook(env, fn, 8); st != StatusInvalidArg {
		t.Fatalf("remove missing: %v", st)
	}
	env.Teardown()
	if ran != 1 {
		t.Fatalf("ran = %d", ran)
	}
	if st := AddEnvCleanupHook(env, fn, 9); st != StatusGenericFailure {
		t.Fatalf("add after teardown: %v", st)
	}
}

func TestABI_WrapWithReference(t *testing.T) {
	heap, env := newTestEnv(t)
	obj := heap.NewObject()

	var ref Reference
	if st := Wrap(env, obj, "native", nil, nil, &ref); st != StatusOK {
		t.Fatalf("wrap: %v", st)
	}
	state, err := env.ReferenceState(ref)
	if err != nil || state != RefWeak {
		t.Fatalf("wrap reference state = %v, %v", state, err)
	}

	var native any
	if st := Unwrap(env, obj, &native); st != StatusOK || native != "native" {
		t.Fatalf("unwrap: %v %v", st, native)
	}
	if st := RemoveWrap(env, obj, nil); st != StatusOK {
		t.Fatalf("remove wrap: %v", st)
	}
	if st := Unwrap(env, obj, &native); st != StatusInvalidArg {
		t.Fatalf("unwrap after remove: %v", st)
	}
	if st := Wrap(env, engine.Dead, "native", nil, nil, nil); st != StatusInvalidArg {
		t.Fatalf("wrap dead: %v", st)
	}
}

func TestStatus_Strings(t *testing.T) {
	for _, s := range []Status{
		StatusOK,
		StatusInvalidArg,
		StatusGenericFailure,
		StatusEscapeCalledTwice,
		StatusHandleScopeMismatch,
	} {
		got, ok := ParseStatus(s.String())
		if !ok || got != s {
			t.Fatalf("ParseStatus(%q) = %v, %v", s.String(), got, ok)
		}
	}
	if _, ok := ParseStatus("pending_exception"); ok {
		t.Fatal("unknown status parsed")
	}
	if Status(42).String() != "Status(42)" {
		t.Fatalf("got %q", Status(42).String())
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want Status
	}{
		{nil, StatusOK},
		{errors.InvalidArg(errors.PhaseScope, "op", "x"), StatusInvalidArg},
		{errors.Underflow(errors.PhaseReference, "op", 0), StatusInvalidArg},
		{errors.Duplicate(errors.PhaseCleanup, "op", "hook"), StatusInvalidArg},
		{errors.NotFound(errors.PhaseCleanup, "op", "hook"), StatusInvalidArg},
		{errors.ScopeMismatch("op", 1, 2), StatusHandleScopeMismatch},
		{errors.EscapeCalledTwice(3), StatusEscapeCalledTwice},
		{errors.GenericFailure(errors.PhaseInfo, "op", "x"), StatusGenericFailure},
		{errors.Closed(errors.PhaseEnv, "env"), StatusGenericFailure},
	}
	for _, tt := range tests {
		if got := StatusOf(tt.err); got != tt.want {
			t.Errorf("StatusOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
