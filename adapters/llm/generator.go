// Package llm implements the generation and enhancement collaborators over
// an OpenAI-compatible chat-completion service.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"regexp"
	"sort"
	"strings"
	"time"

	"hypogate/domain/artifacts"
	"hypogate/domain/core"
	"hypogate/domain/experiment"
	"hypogate/internal"
	"hypogate/ports"
)

// Config holds LLM adapter configuration
type Config struct {
	Model       string
	APIKey      string
	BaseURL     string // default: https://api.openai.com/v1
	Temperature float64
	MaxTokens   int
}

// Generator implements ports.Generator and ports.Enhancer.
type Generator struct {
	client ChatClient
	config Config
	logger *internal.Logger
	now    func() time.Time
}

var (
	_ ports.Generator = (*Generator)(nil)
	_ ports.Enhancer  = (*Generator)(nil)
)

// NewGenerator creates a generator that talks to the configured service.
func NewGenerator(cfg Config, logger *internal.Logger) (*Generator, error) {
	client, err := NewOpenAIClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion client: %w", err)
	}
	return NewGeneratorWithClient(client, cfg, logger), nil
}

// NewGeneratorWithClient wraps an existing client.
func NewGeneratorWithClient(client ChatClient, cfg Config, logger *internal.Logger) *Generator {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DEFAULT_MAX_TOKENS
	}
	return &Generator{client: client, config: cfg, logger: logger.Named("llm"), now: time.Now}
}

// Generate asks the service for the deliverable document. Declared claims
// are read from the trailing json block when present.
func (g *Generator) Generate(ctx context.Context, req ports.GenerationRequest) (*artifacts.Artifact, error) {
	prompt := generationPrompt(req)
	g.logger.Debug("generation prompt for %s attempt %d (%d bytes)", req.ExperimentID, req.Attempt, len(prompt))

	content, err := g.client.ChatCompletion(ctx, GENERATION_SYSTEM_PROMPT, prompt)
	if err != nil {
		return nil, classify("generator", err)
	}
	if strings.TrimSpace(content) == "" {
		return nil, ports.Retryable("generator", ErrEmptyCompletion)
	}

	claims, body, err := splitClaims(content)
	if err != nil {
		g.logger.Warn("claims block for %s unreadable, falling back to text claims: %v", req.ExperimentID, err)
	}

	return &artifacts.Artifact{
		ID:           core.NewArtifactID(),
		ExperimentID: req.ExperimentID,
		Kind:         artifacts.KindMarkdown,
		Content:      body,
		Claims:       claims,
		Audit: artifacts.GenerationAudit{
			GeneratorType: GENERATOR_TYPE,
			Model:         g.config.Model,
			Temperature:   g.config.Temperature,
			MaxTokens:     g.config.MaxTokens,
			PromptHash:    core.NewHash([]byte(prompt)),
			ResponseHash:  core.NewHash([]byte(content)),
			Attempt:       req.Attempt,
		},
		CreatedAt: g.now().UTC(),
	}, nil
}

// Enhance asks the service to sharpen the hypothesis and, optionally,
// revise parameters.
func (g *Generator) Enhance(ctx context.Context, exp *experiment.Experiment) (*ports.Enhancement, error) {
	prompt := enhancementPrompt(exp)
	content, err := g.client.ChatCompletion(ctx, ENHANCEMENT_SYSTEM_PROMPT, prompt)
	if err != nil {
		return nil, classify("enhancer", err)
	}

	var enh ports.Enhancement
	if err := json.Unmarshal([]byte(stripFence(content)), &enh); err != nil {
		return nil, ports.Permanent("enhancer", fmt.Errorf("unmarshal enhancement: %w", err))
	}
	g.logger.Debug("enhancement for %s: %d parameter changes", exp.ID, len(enh.Parameters))
	return &enh, nil
}

// classify tags err for the orchestrator: throttling, server errors and
// network failures are retryable; everything else is permanent.
func classify(collaborator string, err error) error {
	var status *StatusError
	if errors.As(err, &status) {
		if status.Transient() {
			return ports.Retryable(collaborator, err)
		}
		return ports.Permanent(collaborator, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, ErrEmptyCompletion) {
		return ports.Retryable(collaborator, err)
	}
	return ports.Permanent(collaborator, err)
}

func generationPrompt(req ports.GenerationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Domain: %s\n", req.Domain)
	fmt.Fprintf(&b, "Hypothesis: %s\n\n", req.Hypothesis)
	b.WriteString("Certified parameters:\n")
	for _, name := range sortedKeys(req.Parameters) {
		fmt.Fprintf(&b, "- %s = %g\n", name, req.Parameters[name])
	}
	if len(req.Feedback) > 0 {
		b.WriteString("\nThe previous draft was rejected. Fix the following:\n")
		for _, f := range req.Feedback {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	return b.String()
}

func enhancementPrompt(exp *experiment.Experiment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hypothesis: %s\n", exp.Hypothesis)
	b.WriteString("Parameters:\n")
	for _, name := range sortedKeys(exp.Parameters) {
		fmt.Fprintf(&b, "- %s = %g\n", name, exp.Parameters[name])
	}
	for _, ds := range exp.Datasets {
		fmt.Fprintf(&b, "Dataset: %s (%s)\n", ds.Source, ds.Variable)
	}
	return b.String()
}

var claimsBlock = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```\\s*$")

// splitClaims removes the trailing fenced claims block from content and
// decodes it. Without a block, claims is nil and the body is unchanged.
func splitClaims(content string) (map[string]float64, string, error) {
	trimmed := strings.TrimSpace(content)
	loc := claimsBlock.FindStringSubmatchIndex(trimmed)
	if loc == nil {
		return nil, trimmed, nil
	}
	var block struct {
		Claims map[string]float64 `json:"claims"`
	}
	if err := json.Unmarshal([]byte(trimmed[loc[2]:loc[3]]), &block); err != nil {
		return nil, trimmed, err
	}
	return block.Claims, strings.TrimSpace(trimmed[:loc[0]]), nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
