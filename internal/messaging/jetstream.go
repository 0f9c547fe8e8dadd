package messaging

import (
	"errors"
	"time"

	"github.com/eventboard/project/internal/sharding"
	"github.com/nats-io/nats.go"
)

const (
	ChangesStream = "BOARD_CHANGES"
	changesMaxAge = 7 * 24 * time.Hour
)

// EnsureStreams creates (or validates) the change stream covering
// board.change.>.
func EnsureStreams(js nats.JetStreamContext) error {
	_, err := js.StreamInfo(ChangesStream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:      ChangesStream,
		Subjects:  []string{sharding.ChangePrefix + ".>"},
		Retention: nats.LimitsPolicy,
		Storage:   nats.FileStorage,
		MaxAge:    changesMaxAge,
		Replicas:  1,
	})
	return err
}
