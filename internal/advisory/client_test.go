package advisory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pairprobe/internal/domain"
)

func summary() domain.EventSummary {
	return domain.EventSummary{
		TokenAddress: common.HexToAddress("0xAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaa"),
		LiquidityUSD: decimal.New(5000, 0),
	}
}

func chatServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("auth header = %q", got)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("messages = %+v", req.Messages)
		}

		resp := chatResponse{}
		resp.Choices = []struct {
			Message chatMessage `json:"message"`
		}{{Message: chatMessage{Role: "assistant", Content: reply}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestDecideVerdicts(t *testing.T) {
	tests := []struct {
		reply   string
		want    bool
		wantErr bool
	}{
		{reply: "BUY", want: true},
		{reply: " buy\n", want: true},
		{reply: "SKIP", want: false},
		{reply: "SKIP.", want: false},
		{reply: "maybe", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			srv := chatServer(t, tt.reply)
			defer srv.Close()

			client := NewClient(srv.URL, "sk-test", "gpt-4o-mini", time.Second)
			got, err := client.Decide(context.Background(), summary())
			if tt.wantErr {
				if err == nil {
					t.Fatal("want error for unrecognized verdict")
				}
				return
			}
			if err != nil {
				t.Fatalf("Decide: %v", err)
			}
			if got != tt.want {
				t.Errorf("accept = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecideServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk-test", "gpt-4o-mini", time.Second)
	if _, err := client.Decide(context.Background(), summary()); err == nil {
		t.Fatal("want error on non-200 response")
	}
}
