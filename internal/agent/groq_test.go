package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func sseChunkServer(t *testing.T, onRequest func(body map[string]any), fragments []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if onRequest != nil {
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode request body: %v", err)
			}
			onRequest(body)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, frag := range fragments {
			payload, _ := json.Marshal(map[string]any{
				"id":      "chatcmpl-test",
				"object":  "chat.completion.chunk",
				"choices": []map[string]any{{"index": 0, "delta": map[string]any{"content": frag}}},
			})
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
}

func TestGroqAgentStreamsFragmentsInOrder(t *testing.T) {
	var gotReq map[string]any
	ts := sseChunkServer(t, func(body map[string]any) { gotReq = body }, []string{"Hel", "lo ", "there."})
	defer ts.Close()

	a, err := NewGroqAgent(GroqConfig{
		APIKey:       "gsk_test",
		BaseURL:      ts.URL,
		Model:        "llama-3.3-70b-versatile",
		SystemPrompt: "be brief",
	})
	if err != nil {
		t.Fatalf("NewGroqAgent error = %v", err)
	}

	var got []string
	reply, err := a.StreamReply(context.Background(), Request{
		Prompt:  "say hello",
		History: []Exchange{{UserText: "hi", AssistantText: "hello"}},
	}, func(delta string) error {
		got = append(got, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamReply error = %v", err)
	}

	if reply.Text != "Hello there." {
		t.Fatalf("reply text = %q, want %q", reply.Text, "Hello there.")
	}
	if strings.Join(got, "") != reply.Text {
		t.Fatalf("concatenated deltas = %q, want %q", strings.Join(got, ""), reply.Text)
	}

	// The request must carry system prompt, history pair, and the new prompt.
	messages, _ := gotReq["messages"].([]any)
	if len(messages) != 4 {
		t.Fatalf("sent %d messages, want 4 (system + history pair + prompt)", len(messages))
	}
	first, _ := messages[0].(map[string]any)
	if first["role"] != "system" {
		t.Fatalf("first message role = %v, want system", first["role"])
	}
	last, _ := messages[3].(map[string]any)
	if last["role"] != "user" {
		t.Fatalf("last message role = %v, want user", last["role"])
	}
}

func TestGroqAgentDeltaErrorReturnsPartial(t *testing.T) {
	ts := sseChunkServer(t, nil, []string{"one ", "two ", "three"})
	defer ts.Close()

	a, err := NewGroqAgent(GroqConfig{APIKey: "gsk_test", BaseURL: ts.URL, Model: "llama-3.3-70b-versatile"})
	if err != nil {
		t.Fatalf("NewGroqAgent error = %v", err)
	}

	stop := errors.New("client gone")
	count := 0
	reply, err := a.StreamReply(context.Background(), Request{Prompt: "count"}, func(delta string) error {
		count++
		if count == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("StreamReply error = %v, want %v", err, stop)
	}
	if reply.Text != "one two " {
		t.Fatalf("partial text = %q, want %q", reply.Text, "one two ")
	}
}

func TestGroqAgentUpstreamFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	a, err := NewGroqAgent(GroqConfig{APIKey: "gsk_test", BaseURL: ts.URL, Model: "llama-3.3-70b-versatile"})
	if err != nil {
		t.Fatalf("NewGroqAgent error = %v", err)
	}

	if _, err := a.StreamReply(context.Background(), Request{Prompt: "hi"}, nil); err == nil {
		t.Fatalf("StreamReply should fail when upstream rejects the call")
	}
}

func TestMockAgentFragmentsConcatenate(t *testing.T) {
	a := NewMockAgent()
	var got strings.Builder
	reply, err := a.StreamReply(context.Background(), Request{Prompt: "hello"}, func(delta string) error {
		got.WriteString(delta)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamReply error = %v", err)
	}
	if got.String() != reply.Text {
		t.Fatalf("deltas = %q, reply = %q", got.String(), reply.Text)
	}
}
