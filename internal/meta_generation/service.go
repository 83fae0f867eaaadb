package meta_generation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/eternisai/meta-optimizer/internal/logger"
)

// GenerationObserver is told how every generation ended.
type GenerationObserver interface {
	ObserveGeneration(category, outcome string)
}

// Service turns raw form input into a generated meta text. It holds no per-request state.
type Service struct {
	requester *Requester
	observer  GenerationObserver
	logger    *logger.Logger
}

// NewService creates a generation service. observer may be nil.
func NewService(requester *Requester, observer GenerationObserver, log *logger.Logger) *Service {
	return &Service{
		requester: requester,
		observer:  observer,
		logger:    log.WithComponent("meta_generation"),
	}
}

// Generate validates the input, builds the prompt and requests a completion.
//
// Invalid input is reported through a warning notice and StatusInvalid without
// calling the completion service. Exhausted rate-limit retries give
// StatusRateLimited with an empty Output. Any other completion failure is
// returned as an error.
func (s *Service) Generate(ctx context.Context, categoryInput, rawExamples string) (*Result, error) {
	result := &Result{Notices: []Notice{}}
	notify := NotifierFunc(func(n Notice) {
		result.Notices = append(result.Notices, n)
	})

	category, err := ParseCategory(categoryInput)
	if err != nil {
		return s.invalid(ctx, result, "", err, notify)
	}
	result.Category = category.Key()
	ctx = logger.WithCategory(ctx, category.Key())

	req, err := NewGenerationRequest(category, rawExamples)
	if err != nil {
		return s.invalid(ctx, result, category.Key(), err, notify)
	}

	result.Examples = req.Examples
	result.Prompt = BuildPrompt(req)

	log := s.logger.WithContext(ctx)
	log.Info("generating meta text", slog.Int("examples", len(req.Examples)))

	completed, err := s.requester.Request(ctx, result.Prompt, notify)
	result.Attempts = completed.Attempts
	if err != nil {
		s.observe(category.Key(), "error")
		return nil, err
	}

	if completed.Exhausted {
		result.Status = StatusRateLimited
		s.observe(category.Key(), string(StatusRateLimited))
		return result, nil
	}

	result.Status = StatusSuccess
	result.Output = completed.Text
	s.observe(category.Key(), string(StatusSuccess))
	log.Info("meta text generated",
		slog.Int("attempts", completed.Attempts),
		slog.Int("length", len([]rune(completed.Text))))

	return result, nil
}

func (s *Service) invalid(ctx context.Context, result *Result, category string, err error, notify Notifier) (*Result, error) {
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		return nil, err
	}

	s.logger.WithContext(ctx).Debug("rejected generation input", slog.String("reason", vErr.Error()))
	notify.Notify(Notice{Level: NoticeWarning, Message: vErr.Message})
	result.Status = StatusInvalid
	s.observe(category, string(StatusInvalid))
	return result, nil
}

func (s *Service) observe(category, outcome string) {
	if s.observer == nil {
		return
	}
	if category == "" {
		category = "unknown"
	}
	s.observer.ObserveGeneration(category, outcome)
}
