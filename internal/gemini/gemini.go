// Package gemini implements the semantic-grouping oracle on top of Google
// Gemini. The model is forced into a fixed JSON shape; anything that does
// not unmarshal into it is rejected as a parse failure so the caller can
// fall back to embedding clustering.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/trendscope/trendscope/internal/group"
	"github.com/trendscope/trendscope/internal/ratelimit"
)

const defaultModel = "gemini-1.5-flash"

// Client wraps a genai client as a group.Oracle.
type Client struct {
	client  *genai.Client
	model   string
	limiter *ratelimit.Limiter
}

// NewClient dials Gemini. limiter may be nil to run without a call budget.
func NewClient(ctx context.Context, apiKey string, limiter *ratelimit.Limiter) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: client, model: defaultModel, limiter: limiter}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// unavailable marks an API failure while keeping the cause in the chain, so
// retry classification can still see timeouts and network errors underneath.
func unavailable(err error) error {
	return fmt.Errorf("%w: %w", group.ErrOracleUnavailable, err)
}

// groupingResponse is the only response shape the oracle accepts.
type groupingResponse struct {
	Groups [][]int `json:"groups"`
}

// GroupSimilar asks the model which candidates denote the same entity across
// different origins. Schema violations return group.ErrOracleParse; network
// or budget failures return group.ErrOracleUnavailable.
func (c *Client) GroupSimilar(ctx context.Context, candidates []group.Candidate) ([][]int, error) {
	if c.limiter != nil && !c.limiter.Allow("oracle") {
		return nil, fmt.Errorf("%w: daily call budget exhausted", group.ErrOracleUnavailable)
	}

	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(buildPrompt(candidates)))
	if err != nil {
		return nil, unavailable(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty response", group.ErrOracleParse)
	}

	text := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	return ParseGroups(text)
}

// buildPrompt lists the candidates as "index: 'text' (origin)" lines plus
// the grouping rules.
func buildPrompt(candidates []group.Candidate) string {
	var b strings.Builder
	for _, c := range candidates {
		fmt.Fprintf(&b, "%d: '%s' (%s)\n", c.Index, c.Text, c.Origin)
	}

	return fmt.Sprintf(`Here is a list of trending items from different origins.
Identify items from DIFFERENT origins that refer to the SAME entity, even when
they are written in different languages or slightly different forms.

Item list:
%s
Rules:
- Never group items that share the same origin.
- Only group items that refer to the exact same entity (brand, company,
  person, product). An entity name combined with words like 'stock' or
  'shares' still counts as the same entity.
- Do not group items that are merely thematically related.

Respond ONLY with JSON of this exact shape:
{"groups": [[0, 5, 12], [3, 8]]}
Respond with {"groups": []} when nothing is shared.`, b.String())
}

// ParseGroups strictly decodes the model output. Markdown code fences are
// stripped first since models wrap JSON in them even when told not to.
func ParseGroups(text string) ([][]int, error) {
	text = strings.TrimSpace(text)
	if strings.Contains(text, "```") {
		parts := strings.Split(text, "```")
		if len(parts) < 2 {
			return nil, fmt.Errorf("%w: unbalanced code fence", group.ErrOracleParse)
		}
		text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[1]), "json"))
	}

	var parsed groupingResponse
	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", group.ErrOracleParse, err)
	}
	if parsed.Groups == nil {
		return nil, fmt.Errorf("%w: missing groups field", group.ErrOracleParse)
	}
	return parsed.Groups, nil
}
