package meta_generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/eternisai/meta-optimizer/internal/completion"
)

type generationCounter map[string]int

func (g generationCounter) ObserveGeneration(category, outcome string) {
	g[category+"/"+outcome]++
}

func TestGenerateRejectsFewExamples(t *testing.T) {
	for _, category := range []string{"title", "description", "Meta Title", "Meta Description"} {
		t.Run(category, func(t *testing.T) {
			completer := &scriptedCompleter{replies: []completionReply{succeeded("never")}}
			observed := generationCounter{}
			service := NewService(newTestRequester(completer, nil), observed, log)

			result, err := service.Generate(context.Background(), category, "one\ntwo\n\nthree\nfour")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if completer.calls() != 0 {
				t.Errorf("completion service called %d times", completer.calls())
			}
			if result.Status != StatusInvalid {
				t.Errorf("Status = %q, want %q", result.Status, StatusInvalid)
			}
			if len(result.Notices) != 1 || result.Notices[0].Level != NoticeWarning {
				t.Errorf("notices = %+v, want one warning", result.Notices)
			}
			if result.Output != "" || result.Prompt != "" {
				t.Errorf("unexpected output %q / prompt %q", result.Output, result.Prompt)
			}

			parsed, _ := ParseCategory(category)
			if observed[parsed.Key()+"/invalid"] != 1 {
				t.Errorf("observed = %v", observed)
			}
		})
	}
}

func TestGenerateUnknownCategory(t *testing.T) {
	completer := &scriptedCompleter{}
	service := NewService(newTestRequester(completer, nil), nil, log)

	result, err := service.Generate(context.Background(), "keywords", sampleTitles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusInvalid || completer.calls() != 0 {
		t.Errorf("status = %q, calls = %d", result.Status, completer.calls())
	}
}

func TestGenerateTitleEndToEnd(t *testing.T) {
	completer := &scriptedCompleter{replies: []completionReply{succeeded("Running Shoes 2025: Expert-Tested Picks")}}
	observed := generationCounter{}
	service := NewService(newTestRequester(completer, nil), observed, log)

	result, err := service.Generate(context.Background(), "Meta Title", sampleTitles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != StatusSuccess {
		t.Fatalf("Status = %q", result.Status)
	}
	if result.Output != "Running Shoes 2025: Expert-Tested Picks" {
		t.Errorf("Output = %q", result.Output)
	}
	if completer.calls() != 1 {
		t.Fatalf("calls = %d, want 1", completer.calls())
	}

	sent := completer.prompts[0]
	if sent != result.Prompt {
		t.Errorf("sent prompt differs from reported prompt")
	}
	if !strings.Contains(sent, "under 60 characters") {
		t.Errorf("prompt missing limit:\n%s", sent)
	}
	for _, line := range strings.Split(sampleTitles, "\n") {
		if !strings.Contains(sent, line) {
			t.Errorf("prompt missing example %q", line)
		}
	}
	if observed["title/success"] != 1 {
		t.Errorf("observed = %v", observed)
	}
}

func TestGenerateRateLimited(t *testing.T) {
	completer := &scriptedCompleter{replies: []completionReply{rateLimited()}}
	service := NewService(newTestRequester(completer, nil), nil, log)

	result, err := service.Generate(context.Background(), "description", sampleTitles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusRateLimited {
		t.Errorf("Status = %q", result.Status)
	}
	if result.Output != "" {
		t.Errorf("Output = %q, want empty", result.Output)
	}
	if result.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", result.Attempts)
	}
	if got := countNotices(result.Notices, NoticeError); got != 1 {
		t.Errorf("error notices = %d, want 1", got)
	}
}

func TestGeneratePropagatesUpstreamFailure(t *testing.T) {
	completer := &scriptedCompleter{replies: []completionReply{{err: completion.ErrEmptyCompletion}}}
	observed := generationCounter{}
	service := NewService(newTestRequester(completer, nil), observed, log)

	_, err := service.Generate(context.Background(), "title", sampleTitles)
	if !errors.Is(err, completion.ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
	if observed["title/error"] != 1 {
		t.Errorf("observed = %v", observed)
	}
}
