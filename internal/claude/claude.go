package claude

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joshharrison/crashpath/internal/graph"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5"

// ActivitySummary is the minimal activity info sent to Claude for dependency inference.
type ActivitySummary struct {
	ID             string   `json:"id"`
	Predecessors   []string `json:"predecessors,omitempty"`
	NormalDuration float64  `json:"normal_duration"`
}

// Edge is a single inferred precedence relation.
type Edge struct {
	ActivityID  string `json:"activity_id"` // activity that waits
	Predecessor string `json:"predecessor"` // activity that must finish first
	Reason      string `json:"reason"`
}

// InferResult holds the full response from Claude.
type InferResult struct {
	Edges   []Edge `json:"edges"`
	Summary string `json:"summary"`
}

// completer sends one prompt and returns the text of the reply.
type completer interface {
	complete(ctx context.Context, system, prompt string) (string, error)
}

// Client wraps the Anthropic SDK for Claude API calls.
type Client struct {
	c completer
}

type sdkCompleter struct {
	inner anthropic.Client
	model anthropic.Model
}

// NewClient creates a Claude client. apiKey defaults to ANTHROPIC_API_KEY env.
// model defaults to DefaultModel.
func NewClient(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	inner := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	m := anthropic.Model(DefaultModel)
	if model != "" {
		m = anthropic.Model(model)
	}

	return &Client{c: &sdkCompleter{inner: inner, model: m}}, nil
}

func (s *sdkCompleter) complete(ctx context.Context, system, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     s.model,
		MaxTokens: int64(4096),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := s.inner.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude API call: %w", err)
	}

	// Extract text from response
	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}

const inferPredecessorsPrompt = `You are an experienced project planner. Given the activities of a project network, infer which activities must finish before others can start.

Rules:
- Only add a precedence when there is a strong causal reason (activity B cannot start until activity A is complete).
- Prefer fewer edges — do not add transitive or speculative precedences.
- Keep the precedences the activities already have; only propose new ones.
- Do not create cycles.
- Only use activity IDs from the provided list.
- An activity cannot precede itself.

Return your answer as JSON with this exact structure:
{
  "edges": [
    {"activity_id": "<activity that waits>", "predecessor": "<activity that must finish first>", "reason": "<short explanation>"}
  ],
  "summary": "<one paragraph summary of the precedence structure>"
}

Return ONLY the JSON object. No markdown fences, no commentary outside the JSON.

Here are the activities:
`

// buildPrompt constructs the full prompt for predecessor inference.
func buildPrompt(activities []ActivitySummary) (string, error) {
	data, err := json.MarshalIndent(activities, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal activities: %w", err)
	}
	return inferPredecessorsPrompt + string(data), nil
}

// Summaries describes every activity of g in topological order.
func Summaries(g *graph.ActivityGraph) []ActivitySummary {
	var out []ActivitySummary
	for _, r := range g.Records() {
		s := ActivitySummary{ID: string(r.ID), NormalDuration: r.NormalDuration}
		for _, p := range r.Predecessors {
			s.Predecessors = append(s.Predecessors, string(p))
		}
		out = append(out, s)
	}
	return out
}

// InferPredecessors asks Claude which precedences the network is missing.
func (c *Client) InferPredecessors(ctx context.Context, activities []ActivitySummary) (*InferResult, error) {
	prompt, err := buildPrompt(activities)
	if err != nil {
		return nil, err
	}

	text, err := c.c.complete(ctx, "", prompt)
	if err != nil {
		return nil, err
	}
	text = stripJSONFences(text)

	var result InferResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("parse claude response: %w\nraw: %s", err, text)
	}

	return &result, nil
}

// SkippedEdge is an inferred edge the graph refused.
type SkippedEdge struct {
	Edge
	Err error
}

// ApplyEdges adds each edge to g as a predecessor. Edges that name unknown
// activities or would close a cycle are rejected by the graph and returned
// as skipped; the graph is unchanged by them.
func ApplyEdges(g *graph.ActivityGraph, edges []Edge) (applied []Edge, skipped []SkippedEdge) {
	for _, e := range edges {
		id := graph.ActivityID(e.ActivityID)
		pred := graph.ActivityID(e.Predecessor)

		if !g.Has(id) {
			skipped = append(skipped, SkippedEdge{Edge: e, Err: &graph.UnknownReferenceError{ID: id}})
			continue
		}
		preds := g.Predecessors(id)
		if containsID(preds, pred) {
			continue
		}
		err := g.UpdatePredecessors(id, append(preds, pred))
		if err != nil {
			skipped = append(skipped, SkippedEdge{Edge: e, Err: err})
			continue
		}
		applied = append(applied, e)
	}
	return applied, skipped
}

// Cyclic reports whether a skipped edge was refused for closing a cycle.
func (s SkippedEdge) Cyclic() bool {
	return errors.Is(s.Err, graph.ErrCycle)
}

func containsID(ids []graph.ActivityID, id graph.ActivityID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

const explainPlanPrompt = `You are a project controls analyst explaining a schedule compression ("crashing") result to a project manager.

You will receive a text report of a critical path analysis and the crash plan computed for it: the activities shortened in order, the amount and marginal cost of each step, and the resulting duration and cost.

Produce a concise narrative covering:
- Why the chosen activities were shortened, and in what order.
- Where the project became limited by parallel critical paths, if it did.
- Whether the target was reached, and if not what bounds the project duration.
- The cost trade-off overall.

Keep it short — a few sentences per point. Do not repeat the report's tables verbatim.
`

// ExplainPlan sends a plan report to Claude and returns a narrative of it.
func (c *Client) ExplainPlan(ctx context.Context, report string) (string, error) {
	text, err := c.c.complete(ctx, explainPlanPrompt, report)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// stripJSONFences removes markdown code fences that Claude sometimes adds.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	// Remove ```json ... ``` or ``` ... ```
	if strings.HasPrefix(s, "```") {
		// Strip opening fence line
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		// Strip closing fence
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
