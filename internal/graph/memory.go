package graph

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hireloop/talentsearch/internal/models"
	"github.com/hireloop/talentsearch/internal/normalize"
)

// Node kinds in the taxonomy arena.
const (
	kindSkill = "skill"
	kindRole  = "role"
)

const containsMatchWeight = 0.9

type node struct {
	kind       string
	name       string
	normalized string
}

type edge struct {
	to       int
	relation string
	weight   float64
}

// arena is one immutable taxonomy version as an adjacency structure keyed by
// integer node indexes. Nodes never hold pointers to each other; traversal is
// id-based, matching how a graph store is queried.
type arena struct {
	version      int
	nodes        []node
	byNormalized map[string]int
	aliasTo      map[string]int
	out          [][]edge
}

func buildArena(doc *TaxonomyDocument) *arena {
	a := &arena{
		version:      doc.Version,
		byNormalized: make(map[string]int),
		aliasTo:      make(map[string]int),
	}
	idToIdx := make(map[string]int, len(doc.Skills)+len(doc.Roles))
	add := func(kind, id, name string) {
		idx := len(a.nodes)
		a.nodes = append(a.nodes, node{kind: kind, name: name, normalized: normalize.Skill(name)})
		a.out = append(a.out, nil)
		idToIdx[id] = idx
		a.byNormalized[a.nodes[idx].normalized] = idx
	}
	for _, s := range doc.Skills {
		add(kindSkill, s.ID, s.Name)
	}
	for _, r := range doc.Roles {
		add(kindRole, r.ID, r.Title)
	}
	for _, al := range doc.Aliases {
		if idx, ok := idToIdx[al.OfID]; ok {
			a.aliasTo[normalize.Skill(al.Alias)] = idx
		}
	}
	for _, sr := range doc.SkillRelations {
		from, okF := idToIdx[sr.FromID]
		to, okT := idToIdx[sr.ToID]
		if !okF || !okT {
			continue
		}
		a.out[from] = append(a.out[from], edge{to: to, relation: sr.Type, weight: sr.Weight})
		if sr.Type == models.RelationRelatedTo {
			// RELATED_TO is symmetric
			a.out[to] = append(a.out[to], edge{to: from, relation: sr.Type, weight: sr.Weight})
		}
	}
	for _, rr := range doc.RoleRequirements {
		from, okF := idToIdx[rr.RoleID]
		to, okT := idToIdx[rr.SkillID]
		if !okF || !okT {
			continue
		}
		a.out[from] = append(a.out[from], edge{to: to, relation: models.RelationRequires, weight: rr.Weight})
	}
	return a
}

type candidateEdge struct {
	name       string
	confidence float64
	source     string
}

// MemoryStore is the in-process graph backend: versioned taxonomy arenas plus
// candidate HAS_SKILL edges.
type MemoryStore struct {
	mu         sync.RWMutex
	versions   map[int]*arena
	active     int
	candidates map[string]map[string]candidateEdge
}

// NewMemoryStore creates an empty graph store with no active taxonomy.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		versions:   make(map[int]*arena),
		candidates: make(map[string]map[string]candidateEdge),
	}
}

func (s *MemoryStore) Enabled() bool { return true }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) ActiveVersion(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == 0 {
		return 0, ErrNoActiveVersion
	}
	return s.active, nil
}

// SyncTaxonomy installs doc as a new version and flips it active. The arena
// is built fully before the flip, so readers see either the old or the new
// version, never a partial one.
func (s *MemoryStore) SyncTaxonomy(ctx context.Context, doc *TaxonomyDocument) error {
	a := buildArena(doc)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[doc.Version] = a
	s.active = doc.Version
	return nil
}

func (s *MemoryStore) activeArena() *arena {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[s.active]
}

func (s *MemoryStore) ExpandStrict(ctx context.Context, seedList []string, opts TraversalOptions) ([]TraversalRow, error) {
	a := s.activeArena()
	if a == nil {
		return nil, ErrNoActiveVersion
	}
	var rows []TraversalRow
	for _, seed := range seedList {
		if opts.GlobalLimit > 0 && len(rows) >= opts.GlobalLimit {
			break
		}
		rows = a.traverseFromSeed(seed, rows, opts)
	}
	return rows, nil
}

func (s *MemoryStore) ExpandContains(ctx context.Context, seedList []string, opts TraversalOptions) ([]TraversalRow, error) {
	a := s.activeArena()
	if a == nil {
		return nil, ErrNoActiveVersion
	}
	var rows []TraversalRow
	for _, seed := range seedList {
		if opts.GlobalLimit > 0 && len(rows) >= opts.GlobalLimit {
			break
		}
		rows = a.traverseContains(seed, rows, opts)
	}
	return rows, nil
}

// traverseFromSeed resolves seed by exact normalized name (including aliases)
// and walks outgoing edges breadth-first up to opts.MaxDepth. Multi-hop rows
// carry the product of edge weights.
func (a *arena) traverseFromSeed(seed string, rows []TraversalRow, opts TraversalOptions) []TraversalRow {
	start, viaAlias := a.resolve(seed)
	if start < 0 {
		return rows
	}
	perSeed := 0
	emit := func(row TraversalRow) bool {
		if opts.PerSeedLimit > 0 && perSeed >= opts.PerSeedLimit {
			return false
		}
		if opts.GlobalLimit > 0 && len(rows) >= opts.GlobalLimit {
			return false
		}
		rows = append(rows, row)
		perSeed++
		return true
	}
	if viaAlias {
		if !emit(TraversalRow{
			SeedSkill:       seed,
			MatchedSkill:    a.nodes[start].name,
			NormalizedSkill: a.nodes[start].normalized,
			Depth:           1,
			RelationType:    models.RelationAliasOf,
			RelationWeight:  1.0,
			Path:            []string{seed, a.nodes[start].name},
		}) {
			return rows
		}
	}
	a.walk(seed, start, opts.MaxDepth, emit)
	return rows
}

// traverseContains matches nodes whose normalized name contains seed and
// emits each match plus its neighborhood, at a shallower depth than strict.
func (a *arena) traverseContains(seed string, rows []TraversalRow, opts TraversalOptions) []TraversalRow {
	perSeed := 0
	emit := func(row TraversalRow) bool {
		if opts.PerSeedLimit > 0 && perSeed >= opts.PerSeedLimit {
			return false
		}
		if opts.GlobalLimit > 0 && len(rows) >= opts.GlobalLimit {
			return false
		}
		rows = append(rows, row)
		perSeed++
		return true
	}
	// Deterministic match order
	var matched []int
	for idx, n := range a.nodes {
		if n.normalized != seed && strings.Contains(n.normalized, seed) {
			matched = append(matched, idx)
		}
	}
	sort.Ints(matched)
	for _, idx := range matched {
		if !emit(TraversalRow{
			SeedSkill:       seed,
			MatchedSkill:    a.nodes[idx].name,
			NormalizedSkill: a.nodes[idx].normalized,
			Depth:           1,
			RelationType:    "CONTAINS",
			RelationWeight:  containsMatchWeight,
			Path:            []string{seed, a.nodes[idx].name},
		}) {
			return rows
		}
		a.walk(seed, idx, opts.MaxDepth, emit)
	}
	return rows
}

// walk runs the BFS from start. emit is the only appender: it owns the rows
// slice through the closure and reports whether the walk may continue.
func (a *arena) walk(seed string, start int, maxDepth int, emit func(TraversalRow) bool) {
	if maxDepth < 1 {
		return
	}
	type frontier struct {
		idx    int
		depth  int
		weight float64
		path   []string
	}
	visited := map[int]bool{start: true}
	queue := []frontier{{idx: start, depth: 0, weight: 1.0, path: []string{a.nodes[start].name}}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth == maxDepth {
			continue
		}
		for _, e := range a.out[cur.idx] {
			if visited[e.to] {
				continue
			}
			visited[e.to] = true
			path := append(append([]string{}, cur.path...), a.nodes[e.to].name)
			weight := cur.weight * e.weight
			if !emit(TraversalRow{
				SeedSkill:       seed,
				MatchedSkill:    a.nodes[e.to].name,
				NormalizedSkill: a.nodes[e.to].normalized,
				Depth:           cur.depth + 1,
				RelationType:    e.relation,
				RelationWeight:  weight,
				Path:            path,
			}) {
				return
			}
			queue = append(queue, frontier{idx: e.to, depth: cur.depth + 1, weight: weight, path: path})
		}
	}
}

// resolve finds a node by exact normalized name, following aliases.
func (a *arena) resolve(seed string) (int, bool) {
	if idx, ok := a.byNormalized[seed]; ok {
		return idx, false
	}
	if idx, ok := a.aliasTo[seed]; ok {
		return idx, true
	}
	return -1, false
}

// UpsertCandidate replaces the candidate's HAS_SKILL edges with the evidence
// set. Replaying with identical evidence is a no-op.
func (s *MemoryStore) UpsertCandidate(ctx context.Context, candidateID string, evidence []models.SkillEvidence) error {
	edges := make(map[string]candidateEdge, len(evidence))
	for _, ev := range evidence {
		norm := ev.NormalizedName
		if norm == "" {
			norm = normalize.Skill(ev.Name)
		}
		existing, ok := edges[norm]
		if ok && existing.source == models.EvidenceSourceProfile {
			continue // profile evidence wins
		}
		if !ok || ev.Source == models.EvidenceSourceProfile || ev.Confidence > existing.confidence {
			edges[norm] = candidateEdge{name: ev.Name, confidence: ev.Confidence, source: ev.Source}
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates[candidateID] = edges
	return nil
}

func (s *MemoryStore) CandidateSkills(ctx context.Context, candidateID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edges := s.candidates[candidateID]
	out := make([]string, 0, len(edges))
	for norm := range edges {
		out = append(out, norm)
	}
	sort.Strings(out)
	return out, nil
}
