package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sovereigntyai/sovereign/internal/knowledge"
	"github.com/sovereigntyai/sovereign/internal/log"
)

type fakeSearcher struct {
	results   []knowledge.Result
	err       error
	k         int
	threshold float32
	query     string
}

func (f *fakeSearcher) Search(_ context.Context, query string, k int, threshold float32) ([]knowledge.Result, error) {
	f.query = query
	f.k = k
	f.threshold = threshold
	return f.results, f.err
}

type fakeGenerator struct {
	answer string
	err    error
	prompt string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.answer, f.err
}

func defaultOpts() Options {
	return Options{
		TopK:              5,
		ScoreThreshold:    0.2,
		MaxQuestionLength: 5120,
		DegradeOnError:    true,
	}
}

func result(content string, sim float32) knowledge.Result {
	return knowledge.Result{
		Entry:      knowledge.Entry{ID: "id", Content: content},
		Similarity: sim,
	}
}

func TestAnswer(t *testing.T) {
	store := &fakeSearcher{results: []knowledge.Result{
		result("most relevant chunk", 0.9),
		result("second chunk", 0.5),
	}}
	gen := &fakeGenerator{answer: "a grounded answer"}
	p := New(store, gen, defaultOpts(), log.NewNop())

	resp, err := p.Answer(context.Background(), "what is this about?", 0, -1)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if resp.Answer != "a grounded answer" {
		t.Errorf("answer = %q", resp.Answer)
	}
	if resp.FeedbackID == "" {
		t.Error("feedback id missing")
	}

	// Defaults applied when overrides are unset.
	if store.k != 5 || store.threshold != 0.2 {
		t.Errorf("search params = (%d, %g), want (5, 0.2)", store.k, store.threshold)
	}
	if store.query != "what is this about?" {
		t.Errorf("search query = %q", store.query)
	}

	// Retrieved chunks are joined in rank order inside the prompt.
	first := strings.Index(gen.prompt, "most relevant chunk")
	second := strings.Index(gen.prompt, "second chunk")
	if first == -1 || second == -1 || first > second {
		t.Errorf("prompt context out of rank order:\n%s", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "Question: what is this about?") {
		t.Errorf("prompt missing question:\n%s", gen.prompt)
	}
}

func TestAnswer_Overrides(t *testing.T) {
	store := &fakeSearcher{}
	p := New(store, &fakeGenerator{answer: "x"}, defaultOpts(), log.NewNop())

	if _, err := p.Answer(context.Background(), "q", 3, 0.7); err != nil {
		t.Fatal(err)
	}
	if store.k != 3 || store.threshold != 0.7 {
		t.Errorf("search params = (%d, %g), want (3, 0.7)", store.k, store.threshold)
	}
}

func TestAnswer_Validation(t *testing.T) {
	p := New(&fakeSearcher{}, &fakeGenerator{}, defaultOpts(), log.NewNop())

	tests := []struct {
		name     string
		question string
		wantErr  error
	}{
		{"empty", "", ErrEmptyQuestion},
		{"whitespace only", "   \n\t", ErrEmptyQuestion},
		{"too long", strings.Repeat("x", 5121), ErrQuestionTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Answer(context.Background(), tt.question, 0, -1)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAnswer_LengthLimitCountsRunes(t *testing.T) {
	p := New(&fakeSearcher{}, &fakeGenerator{answer: "ok"}, defaultOpts(), log.NewNop())

	// 5120 multibyte runes are within the limit even though the byte count
	// is far larger.
	q := strings.Repeat("日", 5120)
	if _, err := p.Answer(context.Background(), q, 0, -1); err != nil {
		t.Errorf("Answer() error = %v, want nil for 5120 runes", err)
	}
}

func TestAnswer_EmptyStore(t *testing.T) {
	gen := &fakeGenerator{answer: "the available context is insufficient"}
	p := New(&fakeSearcher{}, gen, defaultOpts(), log.NewNop())

	resp, err := p.Answer(context.Background(), "anything indexed?", 0, -1)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if resp.FeedbackID == "" {
		t.Error("feedback id missing")
	}
	if !strings.Contains(gen.prompt, "Context:\n\n") {
		t.Errorf("prompt should carry an empty context section:\n%s", gen.prompt)
	}
}

func TestAnswer_RetrievalFailure(t *testing.T) {
	store := &fakeSearcher{err: errors.New("db down")}
	p := New(store, &fakeGenerator{}, defaultOpts(), log.NewNop())

	_, err := p.Answer(context.Background(), "q", 0, -1)
	if !errors.Is(err, ErrRetrieval) {
		t.Errorf("error = %v, want ErrRetrieval", err)
	}
}

func TestAnswer_DegradedGeneration(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	p := New(&fakeSearcher{}, gen, defaultOpts(), log.NewNop())

	resp, err := p.Answer(context.Background(), "q", 0, -1)
	if err != nil {
		t.Fatalf("Answer() error = %v, want degraded response", err)
	}
	if !strings.Contains(resp.Answer, "model unavailable") {
		t.Errorf("degraded answer = %q", resp.Answer)
	}
	if resp.FeedbackID == "" {
		t.Error("degraded response still needs a feedback id")
	}
}

func TestAnswer_StrictGeneration(t *testing.T) {
	opts := defaultOpts()
	opts.DegradeOnError = false
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	p := New(&fakeSearcher{}, gen, opts, log.NewNop())

	_, err := p.Answer(context.Background(), "q", 0, -1)
	if !errors.Is(err, ErrGeneration) {
		t.Errorf("error = %v, want ErrGeneration", err)
	}
}

func TestAnswer_FreshFeedbackIDs(t *testing.T) {
	p := New(&fakeSearcher{}, &fakeGenerator{answer: "a"}, defaultOpts(), log.NewNop())

	seen := map[string]bool{}
	for range 5 {
		resp, err := p.Answer(context.Background(), "same question", 0, -1)
		if err != nil {
			t.Fatal(err)
		}
		if seen[resp.FeedbackID] {
			t.Fatalf("feedback id %q repeated", resp.FeedbackID)
		}
		seen[resp.FeedbackID] = true
	}
}

func TestFeedback(t *testing.T) {
	p := New(&fakeSearcher{}, &fakeGenerator{}, defaultOpts(), log.NewNop())

	rec, err := p.Feedback(context.Background(), "some-id", "up")
	if err != nil {
		t.Fatalf("Feedback() error = %v", err)
	}
	if rec.FeedbackID != "some-id" || rec.Value != "up" {
		t.Errorf("Feedback() = %+v", rec)
	}
}

func TestFeedback_GeneratesIDWhenMissing(t *testing.T) {
	p := New(&fakeSearcher{}, &fakeGenerator{}, defaultOpts(), log.NewNop())

	rec, err := p.Feedback(context.Background(), "", "down")
	if err != nil {
		t.Fatal(err)
	}
	if rec.FeedbackID == "" {
		t.Error("missing feedback id should be generated")
	}
}

func TestFeedback_EmptyValue(t *testing.T) {
	p := New(&fakeSearcher{}, &fakeGenerator{}, defaultOpts(), log.NewNop())

	if _, err := p.Feedback(context.Background(), "id", "  "); !errors.Is(err, ErrEmptyFeedback) {
		t.Errorf("error = %v, want ErrEmptyFeedback", err)
	}
}
