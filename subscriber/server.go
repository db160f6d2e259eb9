package subscriber

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/tracedeck/tracedeck/wire"
)

// listenServer implements wire.ListenHandler over an Aggregator. Each
// attachment is tagged with a uuid session id used only for the
// subscriber's own logging (spec.md's wire protocol has no notion of a
// session id — see SPEC_FULL.md §6).
type listenServer struct {
	aggregator *Aggregator
	logger     *slog.Logger
}

func (s *listenServer) Listen(_ *wire.ListenRequest, stream wire.ListenServerStream) error {
	session := uuid.New()
	id, ch := s.aggregator.Subscribe()
	s.logger.Info("console attached", "session", session, "sub_id", id)
	defer func() {
		s.aggregator.Unsubscribe(id)
		s.logger.Info("console detached", "session", session, "sub_id", id)
	}()

	ctx := stream.Context()
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				// Dropped by the aggregator for lagging (spec.md §4.2).
				return nil
			}
			if err := stream.Send(&wire.ListenResponse{Variant: v}); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
