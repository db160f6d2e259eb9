package console

import (
	"errors"
	"fmt"
	"io"

	"github.com/tracedeck/tracedeck/wire"
)

// Ingest reads ListenResponse messages from stream and dispatches each into
// store until the stream ends. It returns nil on a clean server-side close
// (io.EOF) and a wrapped error otherwise.
//
// Grounded on the teacher's client/stream.go streamUntilReady: a single
// consumer loop that decodes one wire message at a time and folds it into
// local state, with no retry/reconnect logic at this layer (spec.md §7.4:
// "terminate the stream task without error" — a reconnect policy is called
// out as a possible extension, not required).
func Ingest(stream wire.ListenClientStream, store *Store) error {
	for {
		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("listen stream: %w", err)
		}
		store.Dispatch(resp.Variant)
	}
}
