package scenario

import (
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/wippyai/napi-runtime/errors"
)

// SnapshotVersion is bumped whenever the Snapshot layout changes.
const SnapshotVersion uint16 = 1

// Snapshot is the on-disk form of a Trace.
type Snapshot struct {
	Trace   *Trace `msgpack:"trace"`
	Version uint16 `msgpack:"version"`
}

// WriteSnapshot encodes t to w.
func WriteSnapshot(w io.Writer, t *Trace) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(&Snapshot{Version: SnapshotVersion, Trace: t}); err != nil {
		return errors.Wrap(errors.PhaseScenario, errors.KindGenericFailure, err, "encode snapshot")
	}
	return nil
}

// ReadSnapshot decodes a snapshot written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (*Trace, error) {
	var snap Snapshot
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(&snap); err != nil {
		return nil, errors.Wrap(errors.PhaseScenario, errors.KindInvalidData, err, "decode snapshot")
	}
	if snap.Version != SnapshotVersion {
		return nil, errors.New(errors.PhaseScenario, errors.KindInvalidData).
			Value(snap.Version).
			Detail("snapshot version %d, want %d", snap.Version, SnapshotVersion).
			Build()
	}
	if snap.Trace == nil {
		return nil, errors.InvalidData(errors.PhaseScenario, "snapshot has no trace")
	}
	return snap.Trace, nil
}
