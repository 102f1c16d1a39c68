// Package classify maps a free-form instruction to an agent category.
//
// The primary path asks the text-completion service to pick a category from
// the closed enum and report its confidence; the reply is JSON and is
// validated against a compiled schema before anything in it is trusted. A
// category outside the enum, an unreachable service or an unusable reply all
// collapse into contracts.ErrClassificationUnavailable so the dispatcher can
// fall back to the keyword table.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/contracts"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/llm"
)

// DefaultConfidenceThreshold routes low-confidence verdicts to the
// clarification pseudo-category instead of guessing.
const DefaultConfidenceThreshold = 0.4

const replySchema = `{
	"type": "object",
	"required": ["category", "confidence"],
	"properties": {
		"category": {"type": "string"},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1}
	}
}`

const promptTemplate = `You are the intent router for a Proxmox VE assistant.
Classify the instruction below into exactly one of these categories:
%s

Reply with a single JSON object and nothing else:
{"category": "<one of the categories>", "confidence": <0.0 to 1.0>}

Instruction: %s`

// Classifier turns instruction text into an Intent.
type Classifier struct {
	client    llm.Client
	schema    *jsonschema.Schema
	threshold float64
	sampling  llm.SamplingOptions
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithThreshold overrides the confidence threshold.
func WithThreshold(t float64) Option {
	return func(c *Classifier) { c.threshold = t }
}

// WithSampling overrides the sampling options sent to the model.
func WithSampling(s llm.SamplingOptions) Option {
	return func(c *Classifier) { c.sampling = s }
}

// New creates a Classifier over the given completion client.
func New(client llm.Client, opts ...Option) (*Classifier, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	const schemaURL = "https://proxmox-ai.schemas.local/classify/reply.schema.json"
	if err := compiler.AddResource(schemaURL, strings.NewReader(replySchema)); err != nil {
		return nil, fmt.Errorf("classify: load reply schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("classify: compile reply schema: %w", err)
	}

	c := &Classifier{
		client:    client,
		schema:    schema,
		threshold: DefaultConfidenceThreshold,
		// Routing wants determinism, not creativity.
		sampling: llm.SamplingOptions{Temperature: 0.1, TopP: 0.9, MaxTokens: 128},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Classify maps text to an Intent. Empty text (after trimming) fails with
// ErrEmptyInstruction; every service-side problem is reported as
// ErrClassificationUnavailable.
func (c *Classifier) Classify(ctx context.Context, text string) (contracts.Intent, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return contracts.Intent{}, contracts.ErrEmptyInstruction
	}

	prompt := fmt.Sprintf(promptTemplate, categoryList(), trimmed)
	reply, err := c.client.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, &c.sampling)
	if err != nil {
		return contracts.Intent{}, fmt.Errorf("%w: %v", contracts.ErrClassificationUnavailable, err)
	}

	verdict, err := c.parseReply(reply)
	if err != nil {
		return contracts.Intent{}, fmt.Errorf("%w: %v", contracts.ErrClassificationUnavailable, err)
	}

	category := contracts.Category(verdict.Category)
	if !category.Valid() {
		// The model invented a category. Treated the same as an unreachable
		// service: the keyword fallback decides, not a guess.
		return contracts.Intent{}, fmt.Errorf("%w: category %q not in enum", contracts.ErrClassificationUnavailable, verdict.Category)
	}

	intent := contracts.Intent{
		Category:   category,
		Parameters: ExtractParams(trimmed),
		Confidence: verdict.Confidence,
	}
	if verdict.Confidence < c.threshold {
		intent.Category = contracts.CategoryClarification
	}
	return intent, nil
}

type replyVerdict struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// parseReply extracts and validates the first JSON object in the model
// reply. Models wrap JSON in prose often enough that scanning for the
// braces is the pragmatic choice.
func (c *Classifier) parseReply(reply string) (replyVerdict, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return replyVerdict{}, fmt.Errorf("no JSON object in reply")
	}
	raw := reply[start : end+1]

	var generic any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return replyVerdict{}, fmt.Errorf("malformed reply: %v", err)
	}
	if err := c.schema.Validate(generic); err != nil {
		return replyVerdict{}, fmt.Errorf("reply failed schema validation: %v", err)
	}

	var verdict replyVerdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return replyVerdict{}, fmt.Errorf("malformed reply: %v", err)
	}
	verdict.Category = strings.ToLower(strings.TrimSpace(verdict.Category))
	return verdict, nil
}

func categoryList() string {
	cats := contracts.Categories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
