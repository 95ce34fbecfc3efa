// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline orchestrates one generation attempt end to end: flow
// validation, parameter validation, code generation, content-hash
// deduplication, syntax and security inspection, and persistence.
//
// The stages are pure transforms from the collaborating packages; the
// pipeline contributes ordering, the dedup cut, the record state machine,
// and observability. Concurrent identical attempts (same instance, same
// composed code) collapse through a singleflight group so exactly one
// record is persisted per distinct artifact.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/SapheneiaStudio/pkg/validation"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/codegen"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/graph"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/history"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/inspect"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/params"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/telemetry"
)

var (
	tracer = otel.Tracer("studio.pipeline")
	meter  = otel.Meter("studio.pipeline")
)

var (
	ErrNilContext     = errors.New("context must not be nil")
	ErrInvalidRequest = errors.New("invalid generation request")
)

// Stage labels for latency metrics.
const (
	stageValidateFlow   = "validate_flow"
	stageValidateParams = "validate_params"
	stageGenerate       = "generate"
	stageInspect        = "inspect"
	stagePersist        = "persist"
)

// TemplateLookup resolves template ids to node templates. The catalog
// registry satisfies this.
type TemplateLookup interface {
	GetTemplate(ctx context.Context, templateID string) (*datatypes.NodeTemplate, error)
}

// Request is one generation attempt for a strategy instance.
type Request struct {
	// InstanceID scopes deduplication and history. Identifier-safe.
	InstanceID string

	// Flow is the user-authored graph to generate from.
	Flow *datatypes.LogicFlow

	// Parameters holds per-node parameter values keyed by node id.
	Parameters map[string]map[string]any
}

// Outcome pairs the record with run metadata that is not part of the
// stored artifact.
type Outcome struct {
	// Record is the persisted (or previously persisted) artifact.
	Record *datatypes.CodeGenerationRecord `json:"record"`

	// Deduplicated is true when the record was served from history
	// instead of being generated and persisted by this run.
	Deduplicated bool `json:"deduplicated"`
}

// flightResult is the value carried through the singleflight group.
type flightResult struct {
	record       *datatypes.CodeGenerationRecord
	deduplicated bool
}

// Config wires the pipeline's collaborators.
type Config struct {
	// Templates resolves node templates. Required.
	Templates TemplateLookup

	// History persists and serves generation records. Required.
	History history.Store

	// Logger for pipeline events. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Pipeline runs generation attempts with deduplication and observability.
//
// Thread Safety:
//
//	Safe for concurrent use. Identical concurrent attempts collapse
//	through the singleflight group; distinct attempts run in parallel.
type Pipeline struct {
	validator *graph.Validator
	generator *codegen.Generator
	inspector *inspect.Inspector
	templates TemplateLookup
	history   history.Store
	logger    *slog.Logger

	flight singleflight.Group

	// Metrics (initialized lazily)
	metricsOnce    sync.Once
	generations    metric.Int64Counter
	dedupHits      metric.Int64Counter
	securityBlocks metric.Int64Counter
	stageLatency   metric.Float64Histogram
}

// New creates a pipeline over the given collaborators.
//
// Inputs:
//
//	cfg - Collaborator wiring. Templates and History are required.
//
// Outputs:
//
//	*Pipeline - The configured pipeline.
//	error - Non-nil when a required collaborator is missing or a
//	        built-in component fails to initialize.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Templates == nil {
		return nil, fmt.Errorf("%w: template lookup is required", ErrInvalidRequest)
	}
	if cfg.History == nil {
		return nil, fmt.Errorf("%w: history store is required", ErrInvalidRequest)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	generator, err := codegen.NewGenerator()
	if err != nil {
		return nil, fmt.Errorf("init generator: %w", err)
	}
	inspector, err := inspect.NewInspector()
	if err != nil {
		return nil, fmt.Errorf("init inspector: %w", err)
	}

	return &Pipeline{
		validator: graph.NewValidator(cfg.Logger),
		generator: generator,
		inspector: inspector,
		templates: cfg.Templates,
		history:   cfg.History,
		logger:    cfg.Logger,
	}, nil
}

// initMetrics lazily initializes instruments. Failures degrade
// observability, never the pipeline; nil instruments are skipped at the
// record sites.
func (p *Pipeline) initMetrics() {
	p.metricsOnce.Do(func() {
		var initErrors []string

		var err error
		p.generations, err = meter.Int64Counter("studio_generations_total",
			metric.WithDescription("Completed generation attempts by final status"),
		)
		if err != nil {
			initErrors = append(initErrors, "generations: "+err.Error())
		}

		p.dedupHits, err = meter.Int64Counter("studio_dedup_hits_total",
			metric.WithDescription("Generation attempts served from history by content hash"),
		)
		if err != nil {
			initErrors = append(initErrors, "dedup_hits: "+err.Error())
		}

		p.securityBlocks, err = meter.Int64Counter("studio_security_blocks_total",
			metric.WithDescription("Generated modules rejected by the security check"),
		)
		if err != nil {
			initErrors = append(initErrors, "security_blocks: "+err.Error())
		}

		p.stageLatency, err = meter.Float64Histogram("studio_stage_duration_seconds",
			metric.WithDescription("Time spent in each pipeline stage"),
			metric.WithUnit("s"),
		)
		if err != nil {
			initErrors = append(initErrors, "stage_latency: "+err.Error())
		}

		if len(initErrors) > 0 {
			p.logger.Error("failed to initialize some pipeline metrics (observability degraded)",
				slog.Int("failed_count", len(initErrors)),
				slog.Any("errors", initErrors),
			)
		}
	})
}

// observeStage records one stage's wall time. Call as
// `defer p.observeStage(ctx, stage, time.Now())`.
func (p *Pipeline) observeStage(ctx context.Context, stage string, start time.Time) {
	if p.stageLatency == nil {
		return
	}
	p.stageLatency.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// Run executes the full pipeline for one request.
//
// Description:
//
//	Validates the flow and its parameters, generates the Python module,
//	deduplicates by content hash within the instance, inspects the code,
//	drives the record's status machine, and persists the outcome. A flow
//	or parameter rejection is not a Go error: the report carries it and
//	both Outcome and error are nil. An error return means the pipeline
//	itself failed (render bug, parser failure, storage failure).
//
// Inputs:
//
//	ctx - Context for cancellation and tracing. Must not be nil.
//	req - The attempt. InstanceID must be identifier-safe and Flow
//	      non-nil.
//
// Outputs:
//
//	*Outcome - Record plus dedup marker; nil when validation rejected
//	           the input or on error.
//	*graph.Report - Always non-nil after input checks pass.
//	error - Infrastructure failures only.
func (p *Pipeline) Run(ctx context.Context, req *Request) (*Outcome, *graph.Report, error) {
	if ctx == nil {
		return nil, nil, ErrNilContext
	}
	if req == nil || req.Flow == nil {
		return nil, nil, fmt.Errorf("%w: flow is missing", ErrInvalidRequest)
	}
	if err := validation.ValidateIdentifier(req.InstanceID); err != nil {
		return nil, nil, fmt.Errorf("%w: instance id: %v", ErrInvalidRequest, err)
	}

	p.initMetrics()

	ctx, span := tracer.Start(ctx, "pipeline.Run",
		trace.WithAttributes(
			attribute.String("studio.instance_id", req.InstanceID),
			attribute.Int("studio.node_count", len(req.Flow.Nodes)),
			attribute.Int("studio.edge_count", len(req.Flow.Edges)),
		),
	)
	defer span.End()

	start := time.Now()

	report := p.validateFlow(ctx, req.Flow)
	if len(report.Errors) > 0 {
		span.SetStatus(codes.Error, "flow rejected")
		telemetry.LoggerWithTrace(ctx, p.logger).Info("generation rejected by flow validation",
			slog.String("instance_id", req.InstanceID),
			slog.Int("errors", len(report.Errors)),
		)
		return nil, report, nil
	}

	p.checkParameters(ctx, req.Flow, req.Parameters, report)
	if !report.Valid {
		span.SetStatus(codes.Error, "parameters rejected")
		telemetry.LoggerWithTrace(ctx, p.logger).Info("generation rejected by parameter validation",
			slog.String("instance_id", req.InstanceID),
			slog.Int("nodes_with_errors", len(report.Params)),
		)
		return nil, report, nil
	}

	generated, err := p.generate(ctx, req, report.Order)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, report, err
	}

	// Dedup and persist collapse through singleflight so two identical
	// concurrent attempts produce one stored record.
	key := req.InstanceID + ":" + generated.Hash
	resultI, err, _ := p.flight.Do(key, func() (any, error) {
		existing, err := p.history.FindByHash(ctx, req.InstanceID, generated.Hash)
		if err == nil {
			return &flightResult{record: existing, deduplicated: true}, nil
		}
		if !errors.Is(err, history.ErrRecordNotFound) {
			return nil, fmt.Errorf("history lookup: %w", err)
		}

		record, err := p.inspectAndPersist(ctx, req, generated)
		if err != nil {
			return nil, err
		}
		return &flightResult{record: record}, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, report, err
	}

	result, ok := resultI.(*flightResult)
	if !ok {
		err := fmt.Errorf("unexpected type from singleflight group: got %T", resultI)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, report, err
	}

	if result.deduplicated {
		if p.dedupHits != nil {
			p.dedupHits.Add(ctx, 1)
		}
		span.SetAttributes(attribute.Bool("studio.deduplicated", true))
	}
	if p.generations != nil {
		p.generations.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("status", string(result.record.ValidationStatus)),
				attribute.Bool("deduplicated", result.deduplicated),
			),
		)
	}

	span.SetAttributes(attribute.String("studio.record_id", result.record.RecordID))
	span.SetStatus(codes.Ok, "")

	telemetry.LoggerWithTrace(ctx, p.logger).Info("generation completed",
		slog.String("instance_id", req.InstanceID),
		slog.String("record_id", result.record.RecordID),
		slog.String("status", string(result.record.ValidationStatus)),
		slog.Bool("deduplicated", result.deduplicated),
		slog.Duration("duration", time.Since(start)),
	)

	return &Outcome{Record: result.record, Deduplicated: result.deduplicated}, report, nil
}

// Validate runs the flow and parameter checks without generating code or
// touching history. Backs the validate endpoint and the live editing
// socket.
func (p *Pipeline) Validate(ctx context.Context, flow *datatypes.LogicFlow, parameters map[string]map[string]any) *graph.Report {
	if ctx == nil {
		ctx = context.Background()
	}
	p.initMetrics()

	ctx, span := tracer.Start(ctx, "pipeline.Validate")
	defer span.End()

	report := p.validateFlow(ctx, flow)
	if len(report.Errors) > 0 {
		span.SetStatus(codes.Error, "flow rejected")
		return report
	}

	p.checkParameters(ctx, flow, parameters, report)
	if !report.Valid {
		span.SetStatus(codes.Error, "parameters rejected")
		return report
	}

	span.SetStatus(codes.Ok, "")
	return report
}

// validateFlow runs the structural checks.
func (p *Pipeline) validateFlow(ctx context.Context, flow *datatypes.LogicFlow) *graph.Report {
	defer p.observeStage(ctx, stageValidateFlow, time.Now())
	ctx, span := tracer.Start(ctx, "pipeline.ValidateFlow")
	defer span.End()

	report := p.validator.Validate(ctx, flow, p.templates)
	span.SetAttributes(
		attribute.Bool("studio.valid", report.Valid),
		attribute.Int("studio.errors", len(report.Errors)),
	)
	return report
}

// checkParameters validates each node's parameters against its template
// schema, accumulating every field error into the report.
func (p *Pipeline) checkParameters(ctx context.Context, flow *datatypes.LogicFlow, parameters map[string]map[string]any, report *graph.Report) {
	defer p.observeStage(ctx, stageValidateParams, time.Now())
	ctx, span := tracer.Start(ctx, "pipeline.ValidateParams")
	defer span.End()

	for i := range flow.Nodes {
		node := &flow.Nodes[i]
		tmpl, err := p.templates.GetTemplate(ctx, node.TemplateID)
		if err != nil || tmpl == nil {
			// Flow validation resolved this id moments ago, so a miss
			// here means a pack reload raced the request. Generation
			// skips such nodes with a warning; parameter checks follow
			// suit.
			continue
		}
		res := params.Validate(parameters[node.NodeID], tmpl.ParameterSchema)
		report.AddParamErrors(node.NodeID, res.Errors)
	}

	span.SetAttributes(attribute.Int("studio.nodes_with_errors", len(report.Params)))
}

// generate renders the flow into a Python module.
func (p *Pipeline) generate(ctx context.Context, req *Request, order []string) (*codegen.Output, error) {
	defer p.observeStage(ctx, stageGenerate, time.Now())
	ctx, span := tracer.Start(ctx, "pipeline.Generate")
	defer span.End()

	out, err := p.generator.Generate(ctx, req.Flow, order, req.Parameters, p.templates)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("generate code: %w", err)
	}

	span.SetAttributes(
		attribute.String("studio.code_hash", out.Hash),
		attribute.Int("studio.warnings", len(out.Warnings)),
		attribute.Int("studio.skipped_nodes", len(out.Skipped)),
	)
	return out, nil
}

// inspectAndPersist builds the record, runs the syntax and security
// checks, drives the status machine, and saves the outcome. Runs inside
// the singleflight group.
func (p *Pipeline) inspectAndPersist(ctx context.Context, req *Request, generated *codegen.Output) (*datatypes.CodeGenerationRecord, error) {
	record := &datatypes.CodeGenerationRecord{
		RecordID:           uuid.NewString(),
		InstanceID:         req.InstanceID,
		LogicFlowSnapshot:  req.Flow.Clone(),
		ParametersSnapshot: datatypes.CloneParameters(req.Parameters),
		GeneratedCode:      generated.Code,
		CodeHash:           generated.Hash,
		ValidationStatus:   datatypes.StatusPending,
		Warnings:           generated.Warnings,
		CreatedAt:          time.Now().UTC(),
	}

	if err := p.inspectRecord(ctx, record); err != nil {
		return nil, err
	}
	if err := p.persistRecord(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// inspectRecord runs both checks over the generated code and applies the
// resulting status transition.
func (p *Pipeline) inspectRecord(ctx context.Context, record *datatypes.CodeGenerationRecord) error {
	defer p.observeStage(ctx, stageInspect, time.Now())
	ctx, span := tracer.Start(ctx, "pipeline.Inspect")
	defer span.End()

	syntaxRes, err := p.inspector.CheckSyntax(ctx, record.GeneratedCode)
	if err != nil && !errors.Is(err, inspect.ErrEmptyCode) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("syntax check: %w", err)
	}
	record.SyntaxCheckPassed = syntaxRes.Valid
	record.SyntaxIssues = syntaxRes.Issues

	if !syntaxRes.Valid {
		record.TransitionStatus(datatypes.StatusSyntaxError)
		span.SetStatus(codes.Error, "syntax check failed")
		// The module text is composed by this service, so a parse
		// failure is a fragment bug, not a user mistake.
		telemetry.LoggerWithTrace(ctx, p.logger).Error("generated code failed syntax check",
			slog.String("instance_id", record.InstanceID),
			slog.String("code_hash", record.CodeHash),
			slog.Int("issues", len(record.SyntaxIssues)),
		)
		return nil
	}

	securityRes, err := p.inspector.CheckSecurity(ctx, record.GeneratedCode, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("security check: %w", err)
	}
	record.SecurityCheckPassed = securityRes.IsSafe
	record.Violations = securityRes.Violations

	if !securityRes.IsSafe {
		record.TransitionStatus(datatypes.StatusSecurityError)
		if p.securityBlocks != nil {
			p.securityBlocks.Add(ctx, 1)
		}
		span.SetStatus(codes.Error, "security check failed")
		telemetry.LoggerWithTrace(ctx, p.logger).Warn("generated code blocked by security check",
			slog.String("instance_id", record.InstanceID),
			slog.String("code_hash", record.CodeHash),
			slog.Int("violations", len(record.Violations)),
		)
		return nil
	}

	record.TransitionStatus(datatypes.StatusValid)
	span.SetStatus(codes.Ok, "")
	return nil
}

// persistRecord saves one completed attempt.
func (p *Pipeline) persistRecord(ctx context.Context, record *datatypes.CodeGenerationRecord) error {
	defer p.observeStage(ctx, stagePersist, time.Now())
	ctx, span := tracer.Start(ctx, "pipeline.Persist",
		trace.WithAttributes(attribute.String("studio.record_id", record.RecordID)),
	)
	defer span.End()

	if err := p.history.Save(ctx, record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("persist record: %w", err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
