package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleExport = `[{"title":"Frontend stack","mapping":{
	"a":{"message":{"author":{"role":"user"},"content":{"parts":["I love Python and React"]},"create_time":2}},
	"b":{"message":{"author":{"role":"assistant"},"content":{"parts":["Great choices!"]},"create_time":1}}
}}]`

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func runCLI(t *testing.T, env map[string]string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr, envFrom(env))
	return code, stdout.String(), stderr.String()
}

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func decodeProfile(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("stdout is not a JSON object: %v\n%s", err, s)
	}
	return m
}

func interestsOf(t *testing.T, m map[string]any) []string {
	t.Helper()
	raw, ok := m["interests"].([]any)
	if !ok {
		t.Fatalf("interests missing: %#v", m)
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		out = append(out, v.(string))
	}
	return out
}

func TestExtract_KeywordFallbackWithoutBackend(t *testing.T) {
	t.Parallel()

	p := writeTemp(t, t.TempDir(), "conversations.json", sampleExport)
	code, stdout, stderr := runCLI(t, nil, "extract", "--backend", "none", "--json-file", p)
	if code != 0 {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
	got := interestsOf(t, decodeProfile(t, stdout))
	if strings.Join(got, ",") != "Python,React" {
		t.Fatalf("interests=%v", got)
	}
	if !strings.Contains(stderr, "run_id=") {
		t.Fatalf("expected structured logs on stderr, got %q", stderr)
	}
}

func TestExtract_UsesOllamaEndpoint(t *testing.T) {
	t.Parallel()

	model := `{"identityTraits":{"profession":"Engineer"},"preferences":{"topics":["Go"]}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path=%s", r.URL.Path)
		}
		b, _ := json.Marshal(map[string]any{"response": "Here: " + model, "done": true})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	}))
	defer srv.Close()

	p := writeTemp(t, t.TempDir(), "conversations.json", sampleExport)
	code, stdout, stderr := runCLI(t, map[string]string{"CHAT_PROFILER_ENDPOINT": srv.URL}, "extract", "--json-file", p)
	if code != 0 {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
	got := decodeProfile(t, stdout)
	traits := got["identityTraits"].(map[string]any)
	if traits["profession"] != "Engineer" {
		t.Fatalf("profile=%v", got)
	}
	if _, ok := got["factualMemory"]; ok {
		t.Fatalf("model profile should be passed through untouched: %v", got)
	}
}

func TestExtract_MissingFilePrintsMinimalProfile(t *testing.T) {
	t.Parallel()

	code, stdout, stderr := runCLI(t, nil, "extract", "--backend", "none", "--json-file", filepath.Join(t.TempDir(), "missing.json"))
	if code != 1 {
		t.Fatalf("code=%d", code)
	}
	got := interestsOf(t, decodeProfile(t, stdout))
	if strings.Join(got, ",") != "Learning,Technology" {
		t.Fatalf("interests=%v", got)
	}
	if !strings.Contains(stderr, "missing.json") {
		t.Fatalf("stderr=%q", stderr)
	}
}

func TestExtract_InvalidJSONIsMinimalAndSucceeds(t *testing.T) {
	t.Parallel()

	p := writeTemp(t, t.TempDir(), "broken.json", `[{"mapping":`)
	code, stdout, _ := runCLI(t, nil, "extract", "--backend", "none", "--json-file", p)
	if code != 0 {
		t.Fatalf("code=%d", code)
	}
	traits := decodeProfile(t, stdout)["identityTraits"].(map[string]any)
	if traits["profession"] != "Unknown" {
		t.Fatalf("traits=%v", traits)
	}
}

func TestUsageErrorsExit2(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing json-file", args: []string{"extract"}},
		{name: "unknown flag", args: []string{"extract", "--nope"}},
		{name: "bad backend", args: []string{"extract", "--backend", "gpt", "--json-file", "x.json"}},
		{name: "bad timeout", args: []string{"extract", "--backend", "none", "--timeout", "0", "--json-file", "x.json"}},
		{name: "openai without key", args: []string{"extract", "--backend", "openai", "--json-file", "x.json"}},
		{name: "missing config", args: []string{"extract", "--config", "/nonexistent/config.toml", "--json-file", "x.json"}},
		{name: "unknown target", args: []string{"prompt", "--profile", "x.json", "--target", "clippy"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			args := tt.args
			if tt.name == "unknown target" {
				p := writeTemp(t, t.TempDir(), "profile.json", `{"identityTraits":{},"preferences":{}}`)
				args = []string{"prompt", "--profile", p, "--target", "clippy"}
			}
			code, stdout, stderr := runCLI(t, nil, args...)
			if code != 2 {
				t.Fatalf("code=%d stdout=%q stderr=%q", code, stdout, stderr)
			}
			if strings.TrimSpace(stderr) == "" {
				t.Fatalf("expected an error on stderr")
			}
		})
	}
}

func TestAggregate_WritesProfiles(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	writeTemp(t, in, "one.json", sampleExport)
	writeTemp(t, in, "empty.json", `[]`)
	writeTemp(t, in, "readme.md", "python")
	out := filepath.Join(t.TempDir(), "user_profiles.json")

	code, stdout, stderr := runCLI(t, nil, "aggregate", "--backend", "none", "--folder", in, "--output", out)
	if code != 0 {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
	if strings.TrimSpace(stdout) != "Extracted 1 profiles and saved to "+out {
		t.Fatalf("stdout=%q", stdout)
	}

	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var profiles []map[string]any
	if err := json.Unmarshal(b, &profiles); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("profiles=%d", len(profiles))
	}
}

func TestAggregate_MissingFolderExit1(t *testing.T) {
	t.Parallel()

	code, _, stderr := runCLI(t, nil, "aggregate", "--backend", "none", "--folder", filepath.Join(t.TempDir(), "nope"))
	if code != 1 {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
}

func TestPrompt_RendersFromAggregateOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := writeTemp(t, dir, "profiles.json", `[
		{"identityTraits":{"profession":"Designer","location":"Oslo"},"preferences":{"topics":["Figma"]},"interests":["Branding"]},
		{"identityTraits":{"profession":"Engineer"},"preferences":{}}
	]`)

	code, stdout, stderr := runCLI(t, nil, "prompt", "--profile", p, "--target", "claude")
	if code != 0 {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
	if !strings.Contains(stdout, "- **Role:** Designer") || !strings.Contains(stdout, "• Branding") {
		t.Fatalf("stdout=%s", stdout)
	}

	code, stdout, _ = runCLI(t, nil, "prompt", "--profile", p, "--index", "1", "--card")
	if code != 0 {
		t.Fatalf("code=%d", code)
	}
	var card map[string]any
	if err := json.Unmarshal([]byte(stdout), &card); err != nil {
		t.Fatalf("card: %v", err)
	}
	if card["role"] != "Engineer" || card["location"] != "Unknown" {
		t.Fatalf("card=%v", card)
	}

	code, _, _ = runCLI(t, nil, "prompt", "--profile", p, "--index", "5")
	if code != 1 {
		t.Fatalf("out of range index code=%d", code)
	}
}

func TestConfigFile_VocabularyOverride(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeTemp(t, dir, "config.toml", `
backend = "none"
max_conversations = 10

[vocabulary]
technology = ["rust", "zig"]
business = []
design = []

[[vocabulary.professions]]
profession = "Systems Programmer"
terms = ["rust", "zig"]
`)
	export := writeTemp(t, dir, "conversations.json", `[{"title":"t","mapping":{
		"a":{"message":{"author":{"role":"user"},"content":{"parts":["Porting Python to Rust"]}}}
	}}]`)

	code, stdout, stderr := runCLI(t, nil, "extract", "--config", cfgPath, "--json-file", export)
	if code != 0 {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
	got := decodeProfile(t, stdout)
	if strings.Join(interestsOf(t, got), ",") != "Rust" {
		t.Fatalf("interests=%v", got["interests"])
	}
	if got["identityTraits"].(map[string]any)["profession"] != "Systems Programmer" {
		t.Fatalf("identityTraits=%v", got["identityTraits"])
	}
}

func TestLoadConfigFile_KeepsDefaultProfessions(t *testing.T) {
	t.Parallel()

	p := writeTemp(t, t.TempDir(), "config.toml", "model = \"llama3.1:8b\"\ntimeout_seconds = 5\n")
	cfg := defaultConfig()
	if err := loadConfigFile(&cfg, p); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model != "llama3.1:8b" || cfg.TimeoutSeconds != 5 {
		t.Fatalf("cfg=%+v", cfg)
	}
	if len(cfg.Vocabulary.Professions) != 3 {
		t.Fatalf("professions=%v", cfg.Vocabulary.Professions)
	}
}

func TestLoadConfigFile_RejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	p := writeTemp(t, t.TempDir(), "config.toml", "modle = \"typo\"\n")
	cfg := defaultConfig()
	err := loadConfigFile(&cfg, p)
	if err == nil || !strings.Contains(err.Error(), "modle") {
		t.Fatalf("err=%v", err)
	}
}

func TestApplyEnvAndResolveDefaults(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	applyEnv(&cfg, envFrom(map[string]string{
		"CHAT_PROFILER_BACKEND": " OpenAI ",
		"OPENAI_API_KEY":        "k",
	}))
	cfg.resolveDefaults()
	if cfg.Backend != backendOpenAI || cfg.Model != defaultOpenAIModel || cfg.APIKey != "k" {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.Endpoint != "" {
		t.Fatalf("openai endpoint should stay empty, got %q", cfg.Endpoint)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	cfg = defaultConfig()
	cfg.resolveDefaults()
	if cfg.Model != defaultOllamaModel || cfg.Endpoint != "http://localhost:11434" {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.newGenerator() == nil {
		t.Fatalf("expected an ollama generator")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	t.Parallel()

	if got := defaultConfigPath(envFrom(map[string]string{"HOME": "/home/u"})); got != filepath.Join("/home/u", ".config", "chat-profiler", "config.toml") {
		t.Fatalf("got=%q", got)
	}
	if got := defaultConfigPath(envFrom(map[string]string{"XDG_CONFIG_HOME": "/xdg", "HOME": "/home/u"})); got != filepath.Join("/xdg", "chat-profiler", "config.toml") {
		t.Fatalf("got=%q", got)
	}
	if got := defaultConfigPath(envFrom(nil)); got != "" {
		t.Fatalf("got=%q", got)
	}
}

func TestFlatten_PrintsOrderedMessages(t *testing.T) {
	t.Parallel()

	p := writeTemp(t, t.TempDir(), "conversations.json", sampleExport)
	code, stdout, stderr := runCLI(t, nil, "flatten", "--backend", "none", "--json-file", p)
	if code != 0 {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
	var convs []flatConversation
	if err := json.Unmarshal([]byte(stdout), &convs); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if len(convs) != 1 || len(convs[0].Messages) != 2 {
		t.Fatalf("convs=%+v", convs)
	}
	if convs[0].Messages[0].Role != "assistant" || convs[0].Messages[1].Content != "I love Python and React" {
		t.Fatalf("messages=%+v", convs[0].Messages)
	}
	if convs[0].Messages[0].CreatedAt != "1970-01-01T00:00:01Z" {
		t.Fatalf("created_at=%q", convs[0].Messages[0].CreatedAt)
	}
}
