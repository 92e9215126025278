package profiling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/theimaginaryfoundation/chat-profiler/profiling/provider"
)

// fakeGenerator returns canned output and records every request.
type fakeGenerator struct {
	out string
	err error

	mu       sync.Mutex
	requests []provider.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req provider.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.out, f.err
}

func (f *fakeGenerator) calls() []provider.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]provider.Request(nil), f.requests...)
}

type testNode struct {
	Role       string
	Parts      any
	CreateTime any
}

// chatGPTExport builds a ChatGPT-shaped export. Each conversation is a title plus nodes.
func chatGPTExport(t *testing.T, convs ...testConversation) []byte {
	t.Helper()
	out := make([]map[string]any, 0, len(convs))
	for _, c := range convs {
		mapping := make(map[string]any, len(c.Nodes))
		order := make([]string, 0, len(c.Nodes))
		for i, n := range c.Nodes {
			id := "node-" + string(rune('a'+i))
			order = append(order, id)
			msg := map[string]any{
				"author":  map[string]any{"role": n.Role},
				"content": map[string]any{"content_type": "text", "parts": n.Parts},
			}
			if n.CreateTime != nil {
				msg["create_time"] = n.CreateTime
			}
			mapping[id] = map[string]any{"id": id, "message": msg}
		}
		entry := map[string]any{"mapping": orderedObject{keys: order, values: mapping}}
		if c.Title != nil {
			entry["title"] = c.Title
		}
		out = append(out, entry)
	}
	b, err := json.Marshal(out)
	require.NoError(t, err)
	return b
}

type testConversation struct {
	Title any
	Nodes []testNode
}

// orderedObject marshals keys in insertion order; mapping order is significant.
type orderedObject struct {
	keys   []string
	values map[string]any
}

func (o orderedObject) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range o.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	return append(buf, '}'), nil
}

// ollamaServer serves /api/generate with a fixed status and body and counts calls.
func ollamaServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func ollamaResponse(t *testing.T, response string) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{"model": "llama3.2:3b", "response": response, "done": true})
	require.NoError(t, err)
	return string(b)
}
