package graph

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hireloop/talentsearch/internal/models"
)

// TaxonomyDocument is the versioned sync file format. Versions are
// append-only: a new version is synced and flipped active, never mutated.
type TaxonomyDocument struct {
	Version          int               `json:"version"`
	Skills           []TaxonomySkill   `json:"skills"`
	Roles            []TaxonomyRole    `json:"roles"`
	Aliases          []TaxonomyAlias   `json:"aliases"`
	RoleRequirements []RoleRequirement `json:"roleRequirements"`
	SkillRelations   []SkillRelation   `json:"skillRelations"`
}

// TaxonomySkill is one skill node.
type TaxonomySkill struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TaxonomyRole is one role node.
type TaxonomyRole struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// TaxonomyAlias maps an alternative spelling to a skill or role.
type TaxonomyAlias struct {
	ID    string `json:"id"`
	Alias string `json:"alias"`
	OfID  string `json:"ofId"`
}

// RoleRequirement is a REQUIRES edge from a role to a skill.
type RoleRequirement struct {
	RoleID  string  `json:"roleId"`
	SkillID string  `json:"skillId"`
	Weight  float64 `json:"weight"`
}

// SkillRelation is a RELATED_TO or REQUIRES edge between skills.
type SkillRelation struct {
	FromID string  `json:"fromId"`
	ToID   string  `json:"toId"`
	Type   string  `json:"type"`
	Weight float64 `json:"weight"`
}

// LoadTaxonomyFile reads and parses a taxonomy document from path.
func LoadTaxonomyFile(path string) (*TaxonomyDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy file: %w", err)
	}
	var doc TaxonomyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse taxonomy file: %w", err)
	}
	return &doc, nil
}

// Validate checks the document for unknown-id references and directional
// cycles in REQUIRES relations. Sync must not proceed on error.
func (d *TaxonomyDocument) Validate() error {
	if d.Version <= 0 {
		return fmt.Errorf("taxonomy version must be positive, got %d", d.Version)
	}
	known := make(map[string]bool, len(d.Skills)+len(d.Roles))
	for _, s := range d.Skills {
		if s.ID == "" || s.Name == "" {
			return fmt.Errorf("skill with empty id or name")
		}
		if known[s.ID] {
			return fmt.Errorf("duplicate node id %q", s.ID)
		}
		known[s.ID] = true
	}
	for _, r := range d.Roles {
		if r.ID == "" || r.Title == "" {
			return fmt.Errorf("role with empty id or title")
		}
		if known[r.ID] {
			return fmt.Errorf("duplicate node id %q", r.ID)
		}
		known[r.ID] = true
	}
	for _, a := range d.Aliases {
		if !known[a.OfID] {
			return fmt.Errorf("alias %q references unknown id %q", a.Alias, a.OfID)
		}
	}
	requires := make(map[string][]string)
	for _, rr := range d.RoleRequirements {
		if !known[rr.RoleID] {
			return fmt.Errorf("role requirement references unknown role %q", rr.RoleID)
		}
		if !known[rr.SkillID] {
			return fmt.Errorf("role requirement references unknown skill %q", rr.SkillID)
		}
	}
	for _, sr := range d.SkillRelations {
		if !known[sr.FromID] {
			return fmt.Errorf("skill relation references unknown id %q", sr.FromID)
		}
		if !known[sr.ToID] {
			return fmt.Errorf("skill relation references unknown id %q", sr.ToID)
		}
		switch sr.Type {
		case models.RelationRelatedTo, models.RelationRequires:
		default:
			return fmt.Errorf("skill relation %s->%s has invalid type %q", sr.FromID, sr.ToID, sr.Type)
		}
		if sr.Weight < 0 {
			return fmt.Errorf("skill relation %s->%s has negative weight", sr.FromID, sr.ToID)
		}
		if sr.Type == models.RelationRequires {
			requires[sr.FromID] = append(requires[sr.FromID], sr.ToID)
		}
	}
	if cycle := findCycle(requires); cycle != "" {
		return fmt.Errorf("directional cycle in REQUIRES relations at %q", cycle)
	}
	return nil
}

// findCycle returns a node id on a cycle in the directed adjacency, or "".
func findCycle(adj map[string][]string) string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(adj))
	var visit func(string) string
	visit = func(n string) string {
		color[n] = gray
		for _, next := range adj[n] {
			switch color[next] {
			case gray:
				return next
			case white:
				if c := visit(next); c != "" {
					return c
				}
			}
		}
		color[n] = black
		return ""
	}
	for n := range adj {
		if color[n] == white {
			if c := visit(n); c != "" {
				return c
			}
		}
	}
	return ""
}
