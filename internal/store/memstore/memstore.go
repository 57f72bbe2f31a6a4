// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

// Package memstore is an in-process store backend. It enforces the same
// invariants as the sqlite backend (unique slugs per user, edge validity,
// cascading node deletes, unique ledger keys) and is used for tests and
// ephemeral runs.
package memstore

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/arc-dev/mos/internal/store"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

func init() {
	store.RegisterBackend("memory", func(_ *store.StorageConfig) (store.Store, error) {
		return New(), nil
	})
}

// Compile-time interface checks.
var (
	_ store.Store       = (*Store)(nil)
	_ store.NodeStore   = (*nodeStore)(nil)
	_ store.EdgeStore   = (*edgeStore)(nil)
	_ store.VectorStore = (*vectorStore)(nil)
	_ store.LedgerStore = (*ledgerStore)(nil)
)

type embeddingKey struct{ nodeID, model string }

type ledgerKey struct {
	sessionID  string
	sourceType store.SourceType
	sourceKey  string
}

// Store holds every table behind one lock.
type Store struct {
	mu sync.RWMutex

	nodes      map[string]*store.Node
	slugs      map[string]string // user_id + "\x00" + slug -> node id
	edges      map[string]*store.Edge
	edgeOrder  []string
	embeddings map[embeddingKey]*store.Embedding
	ledger     map[ledgerKey]*store.LedgerEntry
	ledgerSeq  []ledgerKey
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		nodes:      make(map[string]*store.Node),
		slugs:      make(map[string]string),
		edges:      make(map[string]*store.Edge),
		embeddings: make(map[embeddingKey]*store.Embedding),
		ledger:     make(map[ledgerKey]*store.LedgerEntry),
	}
}

func (s *Store) Nodes() store.NodeStore     { return &nodeStore{s} }
func (s *Store) Edges() store.EdgeStore     { return &edgeStore{s} }
func (s *Store) Vectors() store.VectorStore { return &vectorStore{s} }
func (s *Store) Ledger() store.LedgerStore  { return &ledgerStore{s} }
func (s *Store) Close() error               { return nil }

func slugKey(userID, slug string) string { return userID + "\x00" + slug }

func cloneNode(n *store.Node) *store.Node {
	c := *n
	c.Metadata = maps.Clone(n.Metadata)
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}
	return &c
}

func cloneEdge(e *store.Edge) *store.Edge {
	c := *e
	c.Metadata = maps.Clone(e.Metadata)
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}
	if e.CustomLabel != nil {
		label := *e.CustomLabel
		c.CustomLabel = &label
	}
	return &c
}

// ---------------------------------------------------------------------------
// Nodes
// ---------------------------------------------------------------------------

type nodeStore struct{ s *Store }

func (n *nodeStore) UpsertNode(ctx context.Context, node *store.Node) (*store.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := node.Validate(); err != nil {
		return nil, err
	}

	n.s.mu.Lock()
	defer n.s.mu.Unlock()

	key := slugKey(node.UserID, node.Slug)
	if id, ok := n.s.slugs[key]; ok {
		existing := n.s.nodes[id]
		existing.Type = node.Type
		existing.Title = node.Title
		existing.Content = node.Content
		existing.Summary = node.Summary
		existing.Metadata = maps.Clone(node.Metadata)
		existing.UpdatedAt = node.UpdatedAt
		return cloneNode(existing), nil
	}

	stored := cloneNode(node)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = stored.UpdatedAt
	}
	n.s.nodes[stored.ID] = stored
	n.s.slugs[key] = stored.ID
	return cloneNode(stored), nil
}

func (n *nodeStore) UpdateNode(ctx context.Context, id string, upd store.NodeUpdate, now time.Time) (*store.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if upd.Type != nil && !upd.Type.Valid() {
		return nil, moserr.Errorf(moserr.CodeStoreNodeWriteInvalid, "node: invalid type %q", *upd.Type)
	}
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return nil, moserr.New(moserr.CodeStoreNodeWriteInvalid, "node: Title must not be empty", moserr.FieldNodeID(id))
	}

	n.s.mu.Lock()
	defer n.s.mu.Unlock()

	existing, ok := n.s.nodes[id]
	if !ok {
		return nil, moserr.New(moserr.CodeStoreNodeUpdateNotFound, "node not found", moserr.FieldNodeID(id))
	}
	if upd.Type != nil {
		existing.Type = *upd.Type
	}
	if upd.Title != nil {
		existing.Title = *upd.Title
	}
	if upd.Content != nil {
		existing.Content = *upd.Content
	}
	if upd.Summary != nil {
		existing.Summary = *upd.Summary
	}
	if upd.Metadata != nil {
		existing.Metadata = maps.Clone(upd.Metadata)
	}
	existing.UpdatedAt = now
	return cloneNode(existing), nil
}

func (n *nodeStore) GetNode(ctx context.Context, id string) (*store.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.s.mu.RLock()
	defer n.s.mu.RUnlock()

	node, ok := n.s.nodes[id]
	if !ok {
		return nil, store.NodeNotFound(id)
	}
	return cloneNode(node), nil
}

func (n *nodeStore) GetNodeBySlug(ctx context.Context, userID, slug string) (*store.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.s.mu.RLock()
	defer n.s.mu.RUnlock()

	id, ok := n.s.slugs[slugKey(userID, slug)]
	if !ok {
		return nil, moserr.New(moserr.CodeStoreNodeGetNotFound, "node not found", moserr.FieldUserID(userID), moserr.FieldSlug(slug))
	}
	return cloneNode(n.s.nodes[id]), nil
}

func (n *nodeStore) GetNodes(ctx context.Context, ids []string) ([]*store.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.s.mu.RLock()
	defer n.s.mu.RUnlock()

	out := make([]*store.Node, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if node, ok := n.s.nodes[id]; ok {
			out = append(out, cloneNode(node))
		}
	}
	return out, nil
}

func (n *nodeStore) ListNodes(ctx context.Context, q store.NodeQuery) ([]*store.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.s.mu.RLock()
	defer n.s.mu.RUnlock()

	needle := strings.ToLower(q.Search)
	matched := make([]*store.Node, 0)
	for _, node := range n.s.nodes {
		if q.UserID != "" && node.UserID != q.UserID {
			continue
		}
		if q.Type != "" && node.Type != q.Type {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(node.Title), needle) &&
			!strings.Contains(strings.ToLower(node.Content), needle) {
			continue
		}
		matched = append(matched, node)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			if q.Ascending {
				return a.UpdatedAt.Before(b.UpdatedAt)
			}
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID < b.ID
	})

	paged := page(matched, q.Offset, q.Limit)
	out := make([]*store.Node, 0, len(paged))
	for _, node := range paged {
		out = append(out, cloneNode(node))
	}
	return out, nil
}

// SearchNodes approximates the sqlite FTS5 ranking: every query term must
// appear, and hits are weighted title 10, content 5, summary 1.
func (n *nodeStore) SearchNodes(ctx context.Context, userID, query string, limit int) ([]*store.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	terms := tokenize(query)
	if len(terms) == 0 {
		return []*store.Node{}, nil
	}

	n.s.mu.RLock()
	defer n.s.mu.RUnlock()

	type hit struct {
		node  *store.Node
		score int
	}
	var hits []hit
	for _, node := range n.s.nodes {
		if node.UserID != userID {
			continue
		}
		title, content, summary := tokenSet(node.Title), tokenSet(node.Content), tokenSet(node.Summary)
		score := 0
		all := true
		for _, term := range terms {
			s := 0
			if title[term] {
				s += 10
			}
			if content[term] {
				s += 5
			}
			if summary[term] {
				s++
			}
			if s == 0 {
				all = false
				break
			}
			score += s
		}
		if all {
			hits = append(hits, hit{node: node, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		if !hits[i].node.UpdatedAt.Equal(hits[j].node.UpdatedAt) {
			return hits[i].node.UpdatedAt.After(hits[j].node.UpdatedAt)
		}
		return hits[i].node.ID < hits[j].node.ID
	})

	out := make([]*store.Node, 0, len(hits))
	for _, h := range hits {
		out = append(out, cloneNode(h.node))
	}
	return page(out, 0, limit), nil
}

func (n *nodeStore) DeleteNode(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.s.mu.Lock()
	defer n.s.mu.Unlock()

	node, ok := n.s.nodes[id]
	if !ok {
		return nil
	}
	delete(n.s.nodes, id)
	delete(n.s.slugs, slugKey(node.UserID, node.Slug))

	kept := n.s.edgeOrder[:0]
	for _, eid := range n.s.edgeOrder {
		e := n.s.edges[eid]
		if e.SourceID == id || e.TargetID == id {
			delete(n.s.edges, eid)
			continue
		}
		kept = append(kept, eid)
	}
	n.s.edgeOrder = kept

	for key := range n.s.embeddings {
		if key.nodeID == id {
			delete(n.s.embeddings, key)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Edges
// ---------------------------------------------------------------------------

type edgeStore struct{ s *Store }

func (e *edgeStore) CreateEdge(ctx context.Context, edge *store.Edge) (*store.Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := edge.Validate(); err != nil {
		return nil, err
	}

	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	for _, id := range []string{edge.SourceID, edge.TargetID} {
		if _, ok := e.s.nodes[id]; !ok {
			return nil, moserr.New(moserr.CodeStoreEdgeCreateInvalid, "edge: endpoint does not exist", moserr.FieldNodeID(id))
		}
	}

	stored := cloneEdge(edge)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if _, dup := e.s.edges[stored.ID]; dup {
		return nil, moserr.New(moserr.CodeStoreConflict, "edge id already exists", moserr.FieldEdgeID(stored.ID))
	}
	e.s.edges[stored.ID] = stored
	e.s.edgeOrder = append(e.s.edgeOrder, stored.ID)
	return cloneEdge(stored), nil
}

func (e *edgeStore) GetEdge(ctx context.Context, id string) (*store.Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()

	edge, ok := e.s.edges[id]
	if !ok {
		return nil, store.EdgeNotFound(id)
	}
	return cloneEdge(edge), nil
}

func (e *edgeStore) DeleteEdge(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	if _, ok := e.s.edges[id]; !ok {
		return nil
	}
	delete(e.s.edges, id)
	for i, eid := range e.s.edgeOrder {
		if eid == id {
			e.s.edgeOrder = append(e.s.edgeOrder[:i], e.s.edgeOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (e *edgeStore) EdgesFrom(ctx context.Context, nodeIDs []string) ([]*store.Edge, error) {
	return e.filter(ctx, nodeIDs, func(edge *store.Edge) string { return edge.SourceID })
}

func (e *edgeStore) EdgesTo(ctx context.Context, nodeIDs []string) ([]*store.Edge, error) {
	return e.filter(ctx, nodeIDs, func(edge *store.Edge) string { return edge.TargetID })
}

func (e *edgeStore) filter(ctx context.Context, nodeIDs []string, endpoint func(*store.Edge) string) ([]*store.Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		want[id] = true
	}

	e.s.mu.RLock()
	defer e.s.mu.RUnlock()

	out := make([]*store.Edge, 0)
	for _, id := range e.s.edgeOrder {
		edge := e.s.edges[id]
		if want[endpoint(edge)] {
			out = append(out, cloneEdge(edge))
		}
	}
	return out, nil
}

func (e *edgeStore) ListEdges(ctx context.Context, q store.EdgeQuery) ([]*store.Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()

	out := make([]*store.Edge, 0)
	for _, id := range e.s.edgeOrder {
		edge := e.s.edges[id]
		if q.UserID != "" && edge.UserID != q.UserID {
			continue
		}
		if q.EdgeType != "" && edge.EdgeType != q.EdgeType {
			continue
		}
		out = append(out, cloneEdge(edge))
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Vectors
// ---------------------------------------------------------------------------

type vectorStore struct{ s *Store }

func (v *vectorStore) PutEmbedding(ctx context.Context, emb *store.Embedding) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := emb.Validate(); err != nil {
		return err
	}

	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	if _, ok := v.s.nodes[emb.NodeID]; !ok {
		return moserr.New(moserr.CodeStoreEmbeddingWriteInvalid, "embedding: node does not exist", moserr.FieldNodeID(emb.NodeID))
	}
	stored := *emb
	stored.Vector = store.Normalize(emb.Vector)
	v.s.embeddings[embeddingKey{emb.NodeID, emb.Model}] = &stored
	return nil
}

func (v *vectorStore) GetEmbedding(ctx context.Context, nodeID, model string) (*store.Embedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	emb, ok := v.s.embeddings[embeddingKey{nodeID, model}]
	if !ok {
		return nil, moserr.New(moserr.CodeStoreEmbeddingGetNotFound, "embedding not found", moserr.FieldNodeID(nodeID))
	}
	c := *emb
	c.Vector = append([]float32(nil), emb.Vector...)
	return &c, nil
}

func (v *vectorStore) NearestNodes(ctx context.Context, userID string, query []float32, threshold float64, limit int) ([]store.VectorMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	best := make(map[string]float64)
	for key, emb := range v.s.embeddings {
		if emb.UserID != userID {
			continue
		}
		sim := store.CosineSimilarity(emb.Vector, query)
		if sim <= threshold {
			continue
		}
		if cur, ok := best[key.nodeID]; !ok || sim > cur {
			best[key.nodeID] = sim
		}
	}

	matches := make([]store.VectorMatch, 0, len(best))
	for id, sim := range best {
		matches = append(matches, store.VectorMatch{NodeID: id, Similarity: sim})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].NodeID < matches[j].NodeID
	})
	return page(matches, 0, limit), nil
}

func (v *vectorStore) DeleteEmbeddings(ctx context.Context, nodeIDs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	drop := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		drop[id] = true
	}
	for key := range v.s.embeddings {
		if drop[key.nodeID] {
			delete(v.s.embeddings, key)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Ledger
// ---------------------------------------------------------------------------

type ledgerStore struct{ s *Store }

func (l *ledgerStore) Record(ctx context.Context, entry *store.LedgerEntry) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := entry.Validate(); err != nil {
		return false, err
	}

	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	key := ledgerKey{entry.SessionID, entry.SourceType, entry.SourceKey}
	if _, ok := l.s.ledger[key]; ok {
		return false, nil
	}
	stored := *entry
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.SyncedAt.IsZero() {
		stored.SyncedAt = time.Now().UTC()
	}
	l.s.ledger[key] = &stored
	l.s.ledgerSeq = append(l.s.ledgerSeq, key)
	return true, nil
}

func (l *ledgerStore) Get(ctx context.Context, sessionID string, sourceType store.SourceType, sourceKey string) (*store.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	entry, ok := l.s.ledger[ledgerKey{sessionID, sourceType, sourceKey}]
	if !ok {
		return nil, moserr.New(moserr.CodeStoreLedgerGetNotFound, "ledger entry not found",
			moserr.FieldSessionID(sessionID), moserr.Field("source_key", sourceKey))
	}
	c := *entry
	return &c, nil
}

func (l *ledgerStore) Exists(ctx context.Context, sessionID string, sourceType store.SourceType, sourceKey string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	_, ok := l.s.ledger[ledgerKey{sessionID, sourceType, sourceKey}]
	return ok, nil
}

func (l *ledgerStore) ListSession(ctx context.Context, sessionID string) ([]*store.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	out := make([]*store.LedgerEntry, 0)
	for _, key := range l.s.ledgerSeq {
		if key.sessionID != sessionID {
			continue
		}
		c := *l.s.ledger[key]
		out = append(out, &c)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func page[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range tokenize(s) {
		set[tok] = true
	}
	return set
}
