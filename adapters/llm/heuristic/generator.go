// Package heuristic provides an offline generator that renders the certified
// parameters into a markdown document without calling a model.
package heuristic

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"hypogate/domain/artifacts"
	"hypogate/domain/core"
	"hypogate/ports"
)

// Generator writes a deterministic report from the generation request.
type Generator struct {
	now func() time.Time
}

var _ ports.Generator = (*Generator)(nil)

// NewGenerator creates a new heuristic generator
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// Generate renders the hypothesis, the parameter list and any feedback
// from previous attempts. Every parameter is declared as a claim.
func (g *Generator) Generate(ctx context.Context, req ports.GenerationRequest) (*artifacts.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(req.Parameters))
	for name := range req.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title(req.Hypothesis))
	fmt.Fprintf(&b, "Domain: %s\n\n## Parameters\n\n", req.Domain)
	claims := make(map[string]float64, len(names))
	for _, name := range names {
		fmt.Fprintf(&b, "- %s = %g\n", name, req.Parameters[name])
		claims[name] = req.Parameters[name]
	}
	if len(req.Feedback) > 0 {
		b.WriteString("\n## Revision notes\n\n")
		for _, f := range req.Feedback {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	content := b.String()

	return &artifacts.Artifact{
		ID:           core.NewArtifactID(),
		ExperimentID: req.ExperimentID,
		Kind:         artifacts.KindMarkdown,
		Content:      content,
		Claims:       claims,
		Audit: artifacts.GenerationAudit{
			GeneratorType: "heuristic",
			ResponseHash:  core.NewHash([]byte(content)),
			Attempt:       req.Attempt,
		},
		CreatedAt: g.now().UTC(),
	}, nil
}

func title(hypothesis string) string {
	h := strings.TrimSpace(hypothesis)
	if h == "" {
		return "Experiment report"
	}
	return h
}
