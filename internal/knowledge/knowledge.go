// Package knowledge resolves predicted class labels to disease advisories.
// The advisory tables are a static data asset compiled into the binary.
package knowledge

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/timmy/cropguard/internal/domain"
)

//go:embed diseases.yaml
var diseasesYAML []byte

// Advisory is the structured guidance attached to a predicted label.
type Advisory struct {
	Type            string   `yaml:"type" json:"type"`
	Pathogen        string   `yaml:"pathogen,omitempty" json:"pathogen,omitempty"`
	Severity        string   `yaml:"severity" json:"severity"`
	EconomicImpact  string   `yaml:"economic_impact,omitempty" json:"economic_impact,omitempty"`
	Description     string   `yaml:"description" json:"description"`
	Symptoms        []string `yaml:"symptoms" json:"symptoms"`
	Remedies        []string `yaml:"remedies" json:"remedies"`
	Prevention      []string `yaml:"prevention" json:"prevention"`
	OrganicRemedies []string `yaml:"organic_remedies,omitempty" json:"organic_remedies,omitempty"`
	Maintenance     []string `yaml:"maintenance,omitempty" json:"maintenance,omitempty"`
	BestPractices   []string `yaml:"best_practices,omitempty" json:"best_practices,omitempty"`
}

type key struct {
	kind  domain.ModelKind
	label string
}

// Resolver is a read-only lookup keyed by (model kind, label).
type Resolver struct {
	table map[key]Advisory
}

// Load parses the embedded advisory tables.
func Load() (*Resolver, error) {
	return Parse(diseasesYAML)
}

// Parse builds a resolver from YAML of the form kind -> label -> advisory.
func Parse(data []byte) (*Resolver, error) {
	var raw map[string]map[string]Advisory
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse advisory tables: %w", err)
	}

	table := make(map[key]Advisory)
	for kind, entries := range raw {
		for label, adv := range entries {
			if adv.Type == "" {
				return nil, fmt.Errorf("advisory %s/%s: type is required", kind, label)
			}
			table[key{domain.ParseModelKind(kind), label}] = adv
		}
	}
	return &Resolver{table: table}, nil
}

// Resolve returns the advisory for label under kind, or Fallback when none is recorded.
func (r *Resolver) Resolve(kind domain.ModelKind, label string, confidence float64) Advisory {
	if adv, ok := r.table[key{kind, label}]; ok {
		return adv
	}
	return Fallback(kind, label, confidence)
}

// Count returns the number of advisories recorded for kind.
func (r *Resolver) Count(kind domain.ModelKind) int {
	return len(r.Labels(kind))
}

// Labels returns the sorted labels that have an advisory under kind.
func (r *Resolver) Labels(kind domain.ModelKind) []string {
	labels := make([]string, 0)
	for k := range r.table {
		if k.kind == kind {
			labels = append(labels, k.label)
		}
	}
	sort.Strings(labels)
	return labels
}

// Fallback is the advisory for a label with no recorded entry. It names the
// label and the observed confidence so a mapping or model mismatch is visible.
func Fallback(kind domain.ModelKind, label string, confidence float64) Advisory {
	return Advisory{
		Type:        "Unknown Classification",
		Severity:    "Requires Investigation",
		Description: fmt.Sprintf("The classification %q is not recognized in the %s disease database.", label, kind),
		Symptoms: []string{
			fmt.Sprintf("AI classified this as %q with %.1f%% confidence", label, confidence*100),
			"Consult agricultural expert for proper identification",
		},
		Remedies: []string{
			fmt.Sprintf("Verify the %s class mapping file contains correct disease names", kind),
			"Upload a clearer image showing disease symptoms or healthy tissue",
			"Seek professional agricultural consultation",
		},
		Prevention: []string{
			"Ensure mapping files match the model training classes",
			"Follow general crop protection practices",
		},
	}
}
