// Package artifacts describes documents returned by the generation collaborator.
package artifacts

import (
	"fmt"
	"strings"
	"time"

	"hypogate/domain/core"
)

// Kind is the document format of an artifact.
type Kind string

const (
	KindMarkdown Kind = "markdown"
	KindText     Kind = "text"
	KindReport   Kind = "report"
)

// GenerationAudit is metadata about the generation call that produced an artifact.
type GenerationAudit struct {
	GeneratorType string    `json:"generator_type"`
	Model         string    `json:"model,omitempty"`
	Temperature   float64   `json:"temperature,omitempty"`
	MaxTokens     int       `json:"max_tokens,omitempty"`
	PromptHash    core.Hash `json:"prompt_hash,omitempty"`
	ResponseHash  core.Hash `json:"response_hash,omitempty"`
	Attempt       int       `json:"attempt"`
}

// Artifact is a generated document plus the numeric claims it embeds.
type Artifact struct {
	ID           core.ArtifactID    `json:"id"`
	ExperimentID core.ExperimentID  `json:"experiment_id"`
	Kind         Kind               `json:"kind"`
	Content      string             `json:"content"`
	Claims       map[string]float64 `json:"claims"`
	Audit        GenerationAudit    `json:"audit"`
	CreatedAt    time.Time          `json:"created_at"`
}

// Schema defines how an artifact kind is keyed and validated
type Schema struct {
	Kind         Kind
	KeyFunc      func(*Artifact) string
	ValidateFunc func(*Artifact) error
}

// Registry maps artifact kinds to their schemas
var Registry = map[Kind]Schema{
	KindMarkdown: {Kind: KindMarkdown, KeyFunc: documentKey, ValidateFunc: validateDocument},
	KindText:     {Kind: KindText, KeyFunc: documentKey, ValidateFunc: validateDocument},
	KindReport:   {Kind: KindReport, KeyFunc: reportKey, ValidateFunc: validateReport},
}

// Validate checks the artifact against its kind's schema.
func (a *Artifact) Validate() error {
	schema, ok := Registry[a.Kind]
	if !ok {
		return fmt.Errorf("unknown artifact kind %q", a.Kind)
	}
	if a.ExperimentID == "" {
		return fmt.Errorf("artifact %s has no experiment id", a.ID)
	}
	return schema.ValidateFunc(a)
}

// Key returns the stable identifier for the artifact.
func (a *Artifact) Key() string {
	if schema, ok := Registry[a.Kind]; ok {
		return schema.KeyFunc(a)
	}
	return a.ID.String()
}

// ContentHash hashes the artifact body.
func (a *Artifact) ContentHash() core.Hash {
	return core.NewHash([]byte(a.Content))
}

func documentKey(a *Artifact) string {
	return fmt.Sprintf("%s:%s:%d", a.ExperimentID, a.Kind, a.Audit.Attempt)
}

func reportKey(a *Artifact) string {
	return fmt.Sprintf("%s:report", a.ExperimentID)
}

func validateDocument(a *Artifact) error {
	if strings.TrimSpace(a.Content) == "" {
		return fmt.Errorf("artifact %s is empty", a.ID)
	}
	for name, v := range a.Claims {
		if v != v {
			return fmt.Errorf("artifact %s claim %s is NaN", a.ID, name)
		}
	}
	return nil
}

func validateReport(a *Artifact) error {
	if strings.TrimSpace(a.Content) == "" {
		return fmt.Errorf("report for %s is empty", a.ExperimentID)
	}
	return nil
}
