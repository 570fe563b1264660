package vendors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Octopus-Moneycoach/coaching-ai/assessment"
)

func TestArchiveKey(t *testing.T) {
	at := time.Date(2025, time.March, 9, 23, 30, 0, 0, time.UTC)
	got := ArchiveKey("case-checks", "m-123", at)
	if got != "case-checks/2025/03/m-123/case_check.v1.2.json" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestDisabledClients(t *testing.T) {
	var o *OpenAIClient
	if _, err := o.Complete(context.Background(), "x"); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
	var a *OSSArchiver
	if _, err := a.Archive(context.Background(), "m", time.Now(), nil); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
	var m *MeiliClient
	if err := m.IndexChecks([]CheckDocument{{DocumentID: "x"}}); err != nil {
		t.Errorf("expected no-op, got %v", err)
	}
	if NewOpenAIClient(OpenAIConfig{}) != nil {
		t.Error("expected nil client without an API key")
	}
}

func TestOpenAIComplete(t *testing.T) {
	var got struct {
		Model          string `json:"model"`
		MaxTokens      int    `json:"max_tokens"`
		ResponseFormat struct {
			Type string `json:"type"`
		} `json:"response_format"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","model":"gpt-4o-mini","choices":[{"index":0,"finish_reason":"length","message":{"role":"assistant","content":"{\"results\": [{\"id\": \"a\""}}],"usage":{"prompt_tokens":10,"completion_tokens":8000,"total_tokens":8010}}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1", Model: "gpt-4o-mini", MaxTokens: 8000})
	reply, err := client.Complete(context.Background(), "CHECKS: ...")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != `{"results": [{"id": "a"` {
		t.Errorf("expected truncated reply passed through, got %q", reply)
	}
	if got.Model != "gpt-4o-mini" || got.MaxTokens != 8000 {
		t.Errorf("unexpected request model=%s max_tokens=%d", got.Model, got.MaxTokens)
	}
	if got.ResponseFormat.Type != "json_object" {
		t.Errorf("expected JSON mode, got %q", got.ResponseFormat.Type)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "CHECKS: ..." {
		t.Errorf("unexpected messages %+v", got.Messages)
	}
}

type fakeEmbedder struct {
	calls [][]string
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

type fakeStore struct {
	examples map[string][]assessment.Example
	upserted []assessment.Example
}

func (f *fakeStore) Search(_ context.Context, checkID string, _ []float32, limit int) ([]assessment.Example, error) {
	ex := f.examples[checkID]
	if len(ex) > limit {
		ex = ex[:limit]
	}
	return ex, nil
}

func (f *fakeStore) Upsert(_ context.Context, ex assessment.Example, _ []float32) error {
	f.upserted = append(f.upserted, ex)
	return nil
}

func TestKnowledgeBaseExamples(t *testing.T) {
	store := &fakeStore{examples: map[string][]assessment.Example{
		"fees_charges_explained": {
			{CheckID: "fees_charges_explained", Status: assessment.StatusCompetent, Quote: "the fee is £299"},
			{CheckID: "fees_charges_explained", Status: assessment.StatusFail, Quote: "it's basically free"},
		},
	}}
	embedder := &fakeEmbedder{}
	kb := newKnowledgeBase(store, embedder, map[string]string{"fees_charges_explained": "Were fees explained?"}, 1)

	got, err := kb.Examples(context.Background(), []string{"fees_charges_explained", "will_confirmed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || len(got["fees_charges_explained"]) != 1 {
		t.Errorf("expected one example for one check, got %v", got)
	}
	if embedder.calls[0][0] != "Were fees explained?" || embedder.calls[0][1] != "will_confirmed" {
		t.Errorf("expected questions embedded with id fallback, got %v", embedder.calls[0])
	}

	if err := kb.Promote(context.Background(), assessment.Example{CheckID: "will_confirmed", Quote: "I have a will"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.upserted) != 1 {
		t.Error("expected the example to be stored")
	}
}

func TestKnowledgeBaseEmbedFailure(t *testing.T) {
	kb := newKnowledgeBase(&fakeStore{}, &fakeEmbedder{err: errors.New("rate limited")}, nil, 0)
	if _, err := kb.Examples(context.Background(), []string{"a"}); err == nil {
		t.Error("expected error")
	}

	var disabled *KnowledgeBase
	if got, err := disabled.Examples(context.Background(), []string{"a"}); got != nil || err != nil {
		t.Errorf("expected nil, nil from a disabled knowledge base, got %v, %v", got, err)
	}
}

func TestBuildFilter(t *testing.T) {
	got := buildFilter(MeiliSearchOptions{Status: "Fail", MeetingID: `m"1`})
	if got != `status = "Fail" AND meetingId = "m\"1"` {
		t.Errorf("unexpected filter %q", got)
	}
	if buildFilter(MeiliSearchOptions{}) != "" {
		t.Error("expected empty filter")
	}
}

func TestHitFromMap(t *testing.T) {
	hit := hitFromMap(map[string]interface{}{
		"documentId": "m1_will_confirmed",
		"checkId":    "will_confirmed",
		"confidence": 0.75,
		"_formatted": map[string]interface{}{"evidenceQuote": "<em>will</em>"},
	})
	if hit.CheckID != "will_confirmed" || hit.Confidence != 0.75 || hit.Formatted["evidenceQuote"] != "<em>will</em>" {
		t.Errorf("unexpected hit %+v", hit)
	}
}
