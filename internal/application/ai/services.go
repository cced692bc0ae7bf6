package ai

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/bryanwahyu/inspection-sync/internal/domain/ai"
	"github.com/bryanwahyu/inspection-sync/internal/domain/errs"
)

// Service wraps the advisory classifier. Its output is a suggestion only:
// callers may accept, override or ignore it.
type Service struct {
	client ai.Classifier
	log    *zap.Logger
}

func NewService(client ai.Classifier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{client: client, log: log}
}

// Suggest classifies dictated notes for a checklist item. Classifier
// failures degrade to an empty suggestion, except quota exhaustion which is
// surfaced so the caller can back off.
func (s *Service) Suggest(ctx context.Context, itemLabel, dictation string) (ai.Suggestion, error) {
	if strings.TrimSpace(dictation) == "" {
		return ai.Suggestion{}, errs.Invalid("text", "dictation is empty")
	}
	if s.client == nil {
		return ai.Suggestion{}, nil
	}
	sug, err := s.client.Classify(ctx, itemLabel, dictation)
	if err != nil {
		if errors.Is(err, ai.ErrQuotaExceeded) {
			return ai.Suggestion{}, err
		}
		s.log.Warn("classifier failed", zap.String("item", itemLabel), zap.Error(err))
		return ai.Suggestion{}, nil
	}
	if !sug.Status.Valid() {
		return ai.Suggestion{}, nil
	}
	return sug, nil
}
