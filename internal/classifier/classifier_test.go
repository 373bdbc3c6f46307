package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-complaints-backend/internal/domain"
)

func TestDefaultCorpus_CoversEveryCategory(t *testing.T) {
	ex := DefaultCorpus()
	if len(ex) < 50 {
		t.Fatalf("expected the full embedded corpus, got %d examples", len(ex))
	}
	seen := map[domain.Category]int{}
	for _, e := range ex {
		seen[e.Category]++
	}
	for _, c := range domain.Categories() {
		if seen[c] == 0 {
			t.Fatalf("category %q has no examples", c)
		}
	}
}

func TestParseCorpus_SkipsHeaderAndProse(t *testing.T) {
	in := `# title

some prose line
| Category | Text |
|:---|---:|
| delivery issue | rider was late |
| App / Technical Issue | app | crashed |
| Food Quality Issue |  |
`
	ex, err := ParseCorpus(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseCorpus: %v", err)
	}
	if len(ex) != 2 {
		t.Fatalf("expected 2 examples, got %+v", ex)
	}
	if ex[0].Category != domain.CategoryDelivery || ex[0].Text != "rider was late" {
		t.Fatalf("unexpected first example: %+v", ex[0])
	}
	if ex[1].Text != "app crashed" {
		t.Fatalf("extra cells should be joined, got %q", ex[1].Text)
	}
}

func TestParseCorpus_UnknownCategory(t *testing.T) {
	_, err := ParseCorpus(strings.NewReader("| Weather | it rained |\n"))
	if !errors.Is(err, domain.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestLoadCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.md")
	if err := os.WriteFile(path, []byte("| Payment / Refund Issue | charged twice |\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	ex, err := LoadCorpus(path)
	if err != nil || len(ex) != 1 || ex[0].Category != domain.CategoryPayment {
		t.Fatalf("LoadCorpus: %+v %v", ex, err)
	}
	if _, err := LoadCorpus(filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLocal_PredictsDefaultCorpus(t *testing.T) {
	l := NewLocal(nil)
	cases := []struct {
		text string
		want domain.Category
	}{
		{"food was cold", domain.CategoryFoodQuality},
		{"The delivery was really late", domain.CategoryDelivery},
		{"I was charged twice for my order", domain.CategoryPayment},
		{"the APP CRASHES on the menu", domain.CategoryApp},
		{"dessert missing from the bag", domain.CategoryWrongItem},
	}
	for _, tc := range cases {
		p, err := l.Predict(context.Background(), PredictRequest{Text: tc.text, SubmitterID: "42"})
		if err != nil {
			t.Fatalf("Predict(%q): %v", tc.text, err)
		}
		if p.Category != string(tc.want) || p.Status != string(domain.StatusPending) {
			t.Fatalf("Predict(%q) = %+v, want %q", tc.text, p, tc.want)
		}
	}
}

func TestLocal_NoMatchAndFallback(t *testing.T) {
	l := NewLocal(nil)
	if _, err := l.Predict(context.Background(), PredictRequest{Text: "zzz qqq"}); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
	if _, err := l.Predict(context.Background(), PredictRequest{Text: "   "}); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}

	fb := NewLocal(nil, WithFallback(domain.CategoryApp), WithTopK(3))
	p, err := fb.Predict(context.Background(), PredictRequest{Text: "zzz qqq"})
	if err != nil || p.Category != string(domain.CategoryApp) {
		t.Fatalf("expected fallback, got %+v %v", p, err)
	}
}

func TestLocal_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLocal(nil).Predict(ctx, PredictRequest{Text: "late"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestVote_TieGoesToFirstCategory(t *testing.T) {
	l := NewLocal([]Example{
		{Category: domain.CategoryApp, Text: "broken thing"},
		{Category: domain.CategoryDelivery, Text: "broken thing"},
	}, WithStopwords(nil))
	p, err := l.Predict(context.Background(), PredictRequest{Text: "broken"})
	if err != nil || p.Category != string(domain.CategoryDelivery) {
		t.Fatalf("expected Delivery Issue on tie, got %+v %v", p, err)
	}
	if got := l.explain("broken"); len(got) != 2 || got[0].Category != domain.CategoryDelivery {
		t.Fatalf("unexpected explain order: %+v", got)
	}
}

func TestTokenize_NormalizesWidthAndCase(t *testing.T) {
	got := tokenize("ＡＰＰ Crashes", nil)
	if _, ok := got["app"]; !ok {
		t.Fatalf("expected fullwidth text folded to ascii: %v", got)
	}
	if _, ok := got["crashes"]; !ok {
		t.Fatalf("expected lowercase token: %v", got)
	}
}

func TestRemote_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var req PredictRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Text != "food was cold" || req.SubmitterID != "42" {
			t.Errorf("unexpected body: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"category": "Food Quality Issue", "status": "Pending"})
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, time.Second)
	p, err := r.Predict(context.Background(), PredictRequest{Text: "food was cold", SubmitterID: "42"})
	if err != nil || p.Category != "Food Quality Issue" || p.Status != "Pending" {
		t.Fatalf("unexpected %+v %v", p, err)
	}
}

func TestRemote_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/err":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"Model not loaded"}`))
		case "/garbage":
			_, _ = w.Write([]byte(`<html>`))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{"category":"x"}`))
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	req := PredictRequest{Text: "x", SubmitterID: "1"}

	if _, err := NewRemote(srv.URL+"/err", time.Second).Predict(ctx, req); err == nil || !strings.Contains(err.Error(), "Model not loaded") {
		t.Fatalf("expected upstream error message, got %v", err)
	}
	if _, err := NewRemote(srv.URL+"/garbage", time.Second).Predict(ctx, req); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := NewRemote(srv.URL+"/slow", 20*time.Millisecond).Predict(ctx, req); err == nil {
		t.Fatalf("expected timeout")
	}
	if _, err := NewRemote(srv.URL, time.Second).Predict(ctx, PredictRequest{Text: " "}); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}
