// ABOUTME: Model-backed gateway: builds strict-JSON prompts, sends them through a Completer, parses replies.
// ABOUTME: Unparseable replies become fallback entries; transport failures are returned as errors.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	// SystemPrompt is sent as the system message on every classification call.
	SystemPrompt = "You are a strict file-metadata classifier."

	maxRulesContext  = 12000
	truncationMarker = "...[truncated]"
	maxDirectoryHint = 20
)

var (
	// ErrEmptyResponse is returned when the model produced no content.
	ErrEmptyResponse = errors.New("empty model response")
	// ErrMalformedResponse is returned when no JSON object can be extracted.
	ErrMalformedResponse = errors.New("malformed model response")
)

// Completer sends one prompt and returns the raw reply text.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// LLM is a Gateway backed by a chat model.
type LLM struct {
	completer    Completer
	rulesContext string
}

var _ Gateway = (*LLM)(nil)

// NewLLM wraps completer. rulesContext is optional preference text appended to
// every prompt as hints.
func NewLLM(completer Completer, rulesContext string) *LLM {
	return &LLM{completer: completer, rulesContext: normalizeRulesContext(rulesContext)}
}

type batchItem struct {
	Key        string   `json:"key"`
	Suffix     string   `json:"suffix"`
	Ext        string   `json:"ext"`
	Path       string   `json:"path"`
	Decision   string   `json:"decision"`
	Score      *float64 `json:"score"`
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason"`
}

type batchReply struct {
	Items []batchItem `json:"items"`
}

// ClassifySuffixes asks the model for a keep/drop/not_sure decision per
// extension and converts each to a risk label.
func (g *LLM) ClassifySuffixes(ctx context.Context, exts []string) (map[string]SuffixRisk, error) {
	if len(exts) == 0 {
		return map[string]SuffixRisk{}, nil
	}
	input, _ := json.Marshal(uniqueSorted(exts))
	prompt := g.compose(
		`Return strict JSON only. Schema: {"items":[{"key":".ext","decision":"keep|drop|not_sure","confidence":0.0,"reason":"..."}]}.`,
		"Input suffixes: "+string(input),
	)
	raw, err := g.completer.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("classify suffixes: %w", err)
	}

	out := FallbackSuffixes(exts)
	var reply batchReply
	if parseJSON(raw, &reply) != nil {
		return out, nil
	}
	for _, item := range reply.Items {
		key := firstNonEmpty(item.Key, item.Suffix, item.Ext)
		if _, ok := out[key]; !ok {
			continue
		}
		out[key] = SuffixRisk{
			Risk:       RiskFor(NormalizeDecision(item.Decision)),
			Confidence: item.Confidence,
			Reason:     item.Reason,
		}
	}
	return out, nil
}

// ClassifyPaths asks the model for a decision and score per path key.
func (g *LLM) ClassifyPaths(ctx context.Context, keys []string) (map[string]PathRisk, error) {
	if len(keys) == 0 {
		return map[string]PathRisk{}, nil
	}
	input, _ := json.Marshal(keys)
	prompt := g.compose(
		`Return strict JSON only. Schema: {"items":[{"key":"path","decision":"keep|drop|not_sure","score":0.0,"confidence":0.0,"reason":"..."}]}.`,
		"Input paths: "+string(input),
	)
	raw, err := g.completer.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("classify paths: %w", err)
	}

	out := FallbackPaths(keys)
	var reply batchReply
	if parseJSON(raw, &reply) != nil {
		return out, nil
	}
	for _, item := range reply.Items {
		key := firstNonEmpty(item.Key, item.Path)
		if _, ok := out[key]; !ok {
			continue
		}
		decision := NormalizeDecision(item.Decision)
		score := ScoreFor(decision)
		if item.Score != nil {
			score = *item.Score
		}
		out[key] = PathRisk{
			Risk:       RiskFor(decision),
			Score:      score,
			Confidence: item.Confidence,
			Reason:     item.Reason,
		}
	}
	return out, nil
}

// ClassifyDirectory asks for one keep/drop/not_sure verdict, sending at most
// twenty child directories and twenty sample files.
func (g *LLM) ClassifyDirectory(ctx context.Context, dir string, childDirs, sampleFiles []string) (DirectoryVerdict, error) {
	children, _ := json.Marshal(head(childDirs, maxDirectoryHint))
	samples, _ := json.Marshal(head(sampleFiles, maxDirectoryHint))
	prompt := g.compose(
		`Return strict JSON only. Schema: {"decision":"keep|drop|not_sure","confidence":0.0,"reason":"..."}.`,
		fmt.Sprintf("Directory: %s. Child directories: %s. Sample files: %s.", dir, children, samples),
	)
	raw, err := g.completer.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		return DirectoryVerdict{}, fmt.Errorf("classify directory %s: %w", dir, err)
	}

	var reply struct {
		Decision   string  `json:"decision"`
		Confidence float64 `json:"confidence"`
		Reason     string  `json:"reason"`
	}
	if parseJSON(raw, &reply) != nil {
		return FallbackDirectory(), nil
	}
	return DirectoryVerdict{
		Decision:   NormalizeDecision(reply.Decision),
		Confidence: reply.Confidence,
		Reason:     reply.Reason,
	}, nil
}

// CheckConnectivity sends a minimal prompt and reports whether the model
// answered with any text.
func CheckConnectivity(ctx context.Context, c Completer) error {
	raw, err := c.Complete(ctx, SystemPrompt, `Reply with {"ok":true}.`)
	if err != nil {
		return fmt.Errorf("model unreachable: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return ErrEmptyResponse
	}
	return nil
}

func (g *LLM) compose(schema, input string) string {
	prompt := schema + " " + input
	if g.rulesContext == "" {
		return prompt
	}
	return prompt + "\n\n" +
		"Preference rules from runtime rules.md (hints only). " +
		"Do not change the required output JSON schema, keys, or value types.\n" +
		g.rulesContext
}

func normalizeRulesContext(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r", "\n"))
	if len(text) <= maxRulesContext {
		return text
	}
	return strings.TrimRight(text[:maxRulesContext], " \t\n") + "\n" + truncationMarker
}

// parseJSON decodes the first JSON object in raw into v. Markdown code fences
// and leading prose are skipped; trailing text after the object is ignored.
func parseJSON(raw string, v any) error {
	candidate := extractJSON(strings.TrimSpace(raw))
	if candidate == "" {
		return ErrEmptyResponse
	}
	if !strings.HasPrefix(candidate, "{") {
		return ErrMalformedResponse
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(candidate)))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func extractJSON(text string) string {
	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		lines = lines[1:]
		if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "```" {
			lines = lines[:n-1]
		}
		text = strings.TrimSpace(strings.Join(lines, "\n"))
	}
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return text
	}
	obj := strings.Index(text, "{")
	arr := strings.Index(text, "[")
	switch {
	case obj < 0 && arr < 0:
		return text
	case obj < 0:
		return text[arr:]
	case arr < 0 || obj < arr:
		return text[obj:]
	default:
		return text[arr:]
	}
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func head(in []string, n int) []string {
	if in == nil {
		return []string{}
	}
	if len(in) > n {
		return in[:n]
	}
	return in
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
