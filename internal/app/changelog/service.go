package changelog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/eventboard/project/internal/contracts"
)

var ErrInvalidChangePayload = errors.New("invalid change payload")
var ErrUnsupportedAction = errors.New("unsupported change action")

type Repository interface {
	Record(ctx context.Context, change contracts.EventChange, streamSeq uint64) error
}

type Service struct {
	Repository Repository
}

func NewService(repository Repository) *Service {
	return &Service{Repository: repository}
}

// Handle decodes one change notification and records it.
func (s *Service) Handle(ctx context.Context, payload []byte, streamSeq uint64) error {
	var change contracts.EventChange
	if err := json.Unmarshal(payload, &change); err != nil {
		return ErrInvalidChangePayload
	}
	if strings.TrimSpace(change.ChangeID) == "" || strings.TrimSpace(change.Collection) == "" {
		return ErrInvalidChangePayload
	}
	if !contracts.KnownAction(change.Action) {
		return fmt.Errorf("%w: %q", ErrUnsupportedAction, change.Action)
	}
	return s.Repository.Record(ctx, change, streamSeq)
}
