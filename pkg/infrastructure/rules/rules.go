// Package rules reads and writes the compatibility rule table as YAML:
//
//	rules:
//	  - a: Glyphosate
//	    b: 2,4-D
//	    relation: caution
//	    notes: jar test first
package rules

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vsinha/agrostock/pkg/application/dto"
)

// File is the document layout
type File struct {
	Rules []dto.RuleRequest `yaml:"rules"`
}

// Saver stores one rule; MixService satisfies it
type Saver interface {
	SaveRule(ctx context.Context, req dto.RuleRequest) (*dto.PairCheck, error)
}

var relations = map[string]bool{"allowed": true, "caution": true, "forbidden": true}

// Parse decodes and checks a rule document. Unknown keys are rejected.
func Parse(r io.Reader) ([]dto.RuleRequest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc File
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return []dto.RuleRequest{}, nil
		}
		return nil, fmt.Errorf("decode rules: %w", err)
	}

	for i := range doc.Rules {
		rule := &doc.Rules[i]
		rule.A = strings.TrimSpace(rule.A)
		rule.B = strings.TrimSpace(rule.B)
		rule.Relation = strings.ToLower(strings.TrimSpace(rule.Relation))
		switch {
		case rule.A == "" || rule.B == "":
			return nil, fmt.Errorf("rule %d: both a and b are required", i+1)
		case !relations[rule.Relation]:
			return nil, fmt.Errorf("rule %d: relation %q must be allowed, caution or forbidden", i+1, rule.Relation)
		}
	}
	if doc.Rules == nil {
		doc.Rules = []dto.RuleRequest{}
	}
	return doc.Rules, nil
}

// LoadFile parses the rule file at path
func LoadFile(path string) ([]dto.RuleRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Apply saves every rule in order and stops at the first refusal.
// A later rule for the same pair replaces an earlier one.
func Apply(ctx context.Context, saver Saver, rules []dto.RuleRequest) (int, error) {
	for i, rule := range rules {
		if _, err := saver.SaveRule(ctx, rule); err != nil {
			return i, fmt.Errorf("rule %d (%s + %s): %w", i+1, rule.A, rule.B, err)
		}
	}
	return len(rules), nil
}

// Write encodes the rule table in the layout Parse reads
func Write(w io.Writer, rules []dto.PairCheck) error {
	doc := File{Rules: make([]dto.RuleRequest, 0, len(rules))}
	for _, r := range rules {
		doc.Rules = append(doc.Rules, dto.RuleRequest{A: r.A, B: r.B, Relation: r.Relation, Notes: r.Notes})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	return enc.Close()
}
