// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

// Package sds projects evaluated System Design Sessions into the knowledge
// graph. Every produced node and edge is recorded in the sync ledger, whose
// unique (session, type, key) constraint makes repeated and concurrent
// syncs converge on the same graph.
package sds

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/arc-dev/mos/internal/graph"
	"github.com/arc-dev/mos/internal/metrics"
	"github.com/arc-dev/mos/internal/store"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

// MetadataSource marks nodes created by the connector.
const MetadataSource = "sds"

const tracerName = "github.com/arc-dev/mos/internal/connector/sds"

// Option configures a Connector.
type Option func(*Connector)

func WithLogger(l *slog.Logger) Option {
	return func(c *Connector) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(c *Connector) { c.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Connector) { c.tracer = t }
}

// Connector syncs SDS sessions through a graph engine.
type Connector struct {
	graph   *graph.Engine
	ledger  store.LedgerStore
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

func New(g *graph.Engine, opts ...Option) *Connector {
	c := &Connector{
		graph:  g,
		ledger: g.Store().Ledger(),
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// run tracks one Sync call.
type run struct {
	session     Session
	evaluation  Evaluation
	sessionSlug string
	result      *Result
	created     int
}

// Sync materializes session and evaluation into a session note, one concept
// node per component found and a practiced_at edge from the session to each
// concept. Items already in the ledger are counted as skipped. The first
// error stops the sync; calling Sync again resumes from the ledger.
func (c *Connector) Sync(ctx context.Context, session Session, evaluation Evaluation) (*Result, error) {
	if err := graph.ValidateStruct(session, moserr.CodeSyncInputInvalid); err != nil {
		return nil, err
	}
	if err := graph.ValidateStruct(evaluation, moserr.CodeSyncInputInvalid); err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "sds.Sync",
		trace.WithAttributes(
			attribute.String("session.id", session.ID),
			attribute.String("user.id", session.UserID),
			attribute.Int("components", len(evaluation.ComponentsFound)),
		),
	)
	defer span.End()

	r := &run{
		session:     session,
		evaluation:  evaluation,
		sessionSlug: SessionSlug(session.ID),
		result:      &Result{ConceptNodeIDs: []string{}, EdgeIDs: []string{}},
	}

	if err := c.sync(ctx, r); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sync failed")
		c.metrics.ObserveSync(r.created, r.result.Skipped)
		return nil, moserr.Wrap(err, moserr.CodeSyncWriteFailure, "syncing sds session",
			moserr.FieldSessionID(session.ID))
	}

	c.metrics.ObserveSync(r.created, r.result.Skipped)
	c.logger.InfoContext(ctx, "sds session synced",
		slog.String("session_id", session.ID),
		slog.String("user_id", session.UserID),
		slog.Int("concepts", len(r.result.ConceptNodeIDs)),
		slog.Int("edges", len(r.result.EdgeIDs)),
		slog.Int("created", r.created),
		slog.Int("skipped", r.result.Skipped),
	)
	return r.result, nil
}

func (c *Connector) sync(ctx context.Context, r *run) error {
	s, e := r.session, r.evaluation

	sessionNode, err := c.graph.CreateNode(ctx, graph.CreateNodeInput{
		UserID:  s.UserID,
		Type:    store.NodeTypeNote,
		Slug:    r.sessionSlug,
		Title:   SessionTitle(s.ID),
		Content: SessionContent(s, e),
		Metadata: map[string]any{
			"subtype":           "interview",
			"sds_session_id":    s.ID,
			"sds_evaluation_id": e.ID,
			"prompt_id":         s.PromptID,
			"overall_score":     e.OverallScore,
		},
	})
	if err != nil {
		return err
	}
	r.result.SessionNodeID = sessionNode.ID

	if err := c.record(ctx, r, store.SourceTypeSession, s.ID, sessionNode.ID); err != nil {
		return err
	}

	for _, component := range e.ComponentsFound {
		if err := c.syncComponent(ctx, r, sessionNode, component); err != nil {
			return err
		}
	}
	return nil
}

func (c *Connector) syncComponent(ctx context.Context, r *run, sessionNode *store.Node, component string) error {
	slug := graph.Slugify(component)
	if slug == "" {
		c.logger.DebugContext(ctx, "skipping component without a slug",
			slog.String("session_id", r.session.ID),
			slog.String("component", component),
		)
		return nil
	}

	synced, err := c.ledger.Exists(ctx, r.session.ID, store.SourceTypeConcept, slug)
	if err != nil {
		return err
	}

	var concept *store.Node
	if synced {
		concept, err = c.graph.GetNodeBySlug(ctx, r.session.UserID, slug)
		if err != nil {
			return err
		}
		r.result.Skipped++
		c.logger.DebugContext(ctx, "concept already synced",
			slog.String("session_id", r.session.ID),
			slog.String("slug", slug),
		)
		if concept == nil {
			// Deleted by the user since it was synced.
			return nil
		}
		r.result.ConceptNodeIDs = append(r.result.ConceptNodeIDs, concept.ID)
	} else {
		concept, err = c.graph.CreateNode(ctx, graph.CreateNodeInput{
			UserID: r.session.UserID,
			Type:   store.NodeTypeConcept,
			Slug:   slug,
			Title:  component,
			Metadata: map[string]any{
				"source":       MetadataSource,
				"auto_created": true,
			},
		})
		if err != nil {
			return err
		}
		r.result.ConceptNodeIDs = append(r.result.ConceptNodeIDs, concept.ID)
		if err := c.record(ctx, r, store.SourceTypeConcept, slug, concept.ID); err != nil {
			return err
		}
	}

	return c.ensureEdge(ctx, r, sessionNode, concept, slug)
}

// ensureEdge creates the practiced_at edge unless the ledger already holds
// it. When a concurrent sync records the same edge first, the duplicate
// this call inserted is removed and the winner's id is reported.
func (c *Connector) ensureEdge(ctx context.Context, r *run, sessionNode, concept *store.Node, conceptSlug string) error {
	key := EdgeKey(r.sessionSlug, conceptSlug)

	entry, err := c.ledger.Get(ctx, r.session.ID, store.SourceTypeEdge, key)
	switch {
	case err == nil:
		r.result.EdgeIDs = append(r.result.EdgeIDs, entry.MosNodeID)
		r.result.Skipped++
		c.logger.DebugContext(ctx, "edge already synced",
			slog.String("session_id", r.session.ID),
			slog.String("source_key", key),
		)
		return nil
	case !store.IsNotFound(err):
		return err
	}

	weight := r.evaluation.ComponentScore / 100
	edge, err := c.graph.CreateEdge(ctx, graph.CreateEdgeInput{
		UserID:   r.session.UserID,
		SourceID: sessionNode.ID,
		TargetID: concept.ID,
		EdgeType: store.EdgeTypePracticedAt,
		Weight:   &weight,
		Metadata: map[string]any{
			"sds_session_id":  r.session.ID,
			"component_score": r.evaluation.ComponentScore,
		},
	})
	if err != nil {
		return err
	}

	inserted, err := c.ledger.Record(ctx, &store.LedgerEntry{
		SessionID:  r.session.ID,
		MosNodeID:  edge.ID,
		SourceType: store.SourceTypeEdge,
		SourceKey:  key,
	})
	if err != nil {
		return err
	}
	if inserted {
		r.created++
		r.result.EdgeIDs = append(r.result.EdgeIDs, edge.ID)
		return nil
	}

	if err := c.graph.DeleteEdge(ctx, edge.ID); err != nil {
		return err
	}
	winner, err := c.ledger.Get(ctx, r.session.ID, store.SourceTypeEdge, key)
	if err != nil {
		return err
	}
	r.result.EdgeIDs = append(r.result.EdgeIDs, winner.MosNodeID)
	r.result.Skipped++
	return nil
}

// record writes a ledger entry; an entry that already existed counts as
// skipped.
func (c *Connector) record(ctx context.Context, r *run, sourceType store.SourceType, key, id string) error {
	inserted, err := c.ledger.Record(ctx, &store.LedgerEntry{
		SessionID:  r.session.ID,
		MosNodeID:  id,
		SourceType: sourceType,
		SourceKey:  key,
	})
	if err != nil {
		return err
	}
	if inserted {
		r.created++
		return nil
	}
	r.result.Skipped++
	c.logger.DebugContext(ctx, "ledger entry already existed",
		slog.String("session_id", r.session.ID),
		slog.String("source_type", string(sourceType)),
		slog.String("source_key", key),
	)
	return nil
}
