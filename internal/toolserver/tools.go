// Package toolserver implements the §4.9 JSON-RPC tool server: the generic
// Registry/protocol machinery lives in registry.go/protocol.go; this file
// and its siblings (tools_*.go) wire the full tool catalogue onto the
// already-built component APIs (outcometracker, calibration, contextmgr,
// planvalidator, orchestration, skillgen, engramstore, graphstore).
package toolserver

import (
	"context"
	"log/slog"
	"time"

	"github.com/actiquest-dev/membria-core/internal/calibration"
	"github.com/actiquest-dev/membria-core/internal/contextmgr"
	"github.com/actiquest-dev/membria-core/internal/engramstore"
	"github.com/actiquest-dev/membria-core/internal/model"
	"github.com/actiquest-dev/membria-core/internal/orchestration"
	"github.com/actiquest-dev/membria-core/internal/outcometracker"
	"github.com/actiquest-dev/membria-core/internal/planvalidator"
	"github.com/actiquest-dev/membria-core/internal/skillgen"
)

// GraphStore is the subset of *graphstore.Client the tool catalogue reaches
// directly, for operations not already wrapped by a narrower component
// interface (memory CRUD, documents, session contexts, skills/antipatterns
// accessors, diagnostics).
type GraphStore interface {
	AddDecision(ctx context.Context, d *model.Decision) error
	GetDecision(ctx context.Context, id string) (*model.Decision, error)
	ListRecentDecisions(ctx context.Context, module string, limit int) ([]*model.Decision, error)
	DeactivateDecisionMemory(ctx context.Context, id, reason string) error

	AddNegativeKnowledge(ctx context.Context, nk *model.NegativeKnowledge) error
	ListNegativeKnowledge(ctx context.Context, domain string, limit int) ([]*model.NegativeKnowledge, error)
	DeleteNegativeKnowledge(ctx context.Context, id, reason string) error

	AddDocument(ctx context.Context, d *model.Document) (string, error)
	GetDocuments(ctx context.Context, ids, filePaths, docTypes []string, limit int) ([]*model.Document, error)
	LinkDecisionDocs(ctx context.Context, decisionID string, docs []*model.Document, fetchedAt int64) (string, error)

	UpsertSessionContext(ctx context.Context, sc *model.SessionContext) error
	GetSessionContext(ctx context.Context, sessionID string) (*model.SessionContext, error)
	ListSessionContexts(ctx context.Context, limit int) ([]*model.SessionContext, error)
	DeactivateSessionContext(ctx context.Context, sessionID string) error

	AddEngram(ctx context.Context, e *model.Engram) error
	LinkDecisionEngram(ctx context.Context, decisionID, engramID string, confidenceGiven float64) error
	LinkEngramSessionContext(ctx context.Context, engramID, sessionID string) error

	ListSkillsByDomain(ctx context.Context, domain string) ([]*model.Skill, error)
	ListAntiPatternsByRemovalRate(ctx context.Context, limit int) ([]*model.AntiPattern, error)

	Connected() bool
	Ping(ctx context.Context) error
}

// OutcomeTracker is the subset of *outcometracker.Tracker the tool
// catalogue calls.
type OutcomeTracker interface {
	CreateOutcome(ctx context.Context, id, decisionID string, measuredAt int64, ttlDays int) (*model.Outcome, error)
	FinalizeOutcome(ctx context.Context, outcomeID, finalStatus string, finalScore float64, completedAt int64, decisionDomain string) (*model.Outcome, error)
	Get(ctx context.Context, outcomeID string) (*model.Outcome, error)
	List(ctx context.Context, status string, limit int) ([]*model.Outcome, error)
}

// CalibrationEngine is the subset of *calibration.Engine the tool catalogue
// calls.
type CalibrationEngine interface {
	GuidanceFor(domain string, confidence float64) (*calibration.Guidance, error)
	Get(domain string) (*model.CalibrationProfile, error)
}

// ContextManager is the subset of *contextmgr.Manager the tool catalogue
// calls. contextmgr.Manager already narrows graphstore/calibration down to
// what it needs; this interface lists only its two builders, and
// *contextmgr.Manager satisfies it.
type ContextManager interface {
	BuildDecisionContext(ctx context.Context, p contextmgr.DecisionContextParams) (*contextmgr.Assembled, error)
	BuildPlanContext(planCtx *planvalidator.PlanContext, maxTokens int, docShotID string, docs []*model.Document) *contextmgr.Assembled
}

var _ ContextManager = (*contextmgr.Manager)(nil)

// PlanContextBuilder is the subset of *planvalidator.Builder the tool
// catalogue calls.
type PlanContextBuilder interface {
	Build(ctx context.Context, domain string, constraints []string) (*planvalidator.PlanContext, error)
}

// PlanValidator is the subset of *planvalidator.Validator the tool
// catalogue calls.
type PlanValidator interface {
	ValidatePlan(ctx context.Context, domain string, steps []string, now int64) (*planvalidator.Result, error)
}

// Orchestration is the subset of *orchestration.Service the tool catalogue
// calls.
type Orchestration interface {
	CreateSquad(ctx context.Context, squad *model.Squad) error
	ListSquads(ctx context.Context, limit int) ([]*model.Squad, error)
	AddAssignment(ctx context.Context, a *model.Assignment) error
	UpsertProfile(ctx context.Context, p *model.Profile) error
	UpsertRole(ctx context.Context, r *model.Role) error
	GetRole(ctx context.Context, id string) (*model.Role, error)
	LinkRole(ctx context.Context, roleID, toLabel, toID string) error
	UnlinkRole(ctx context.Context, roleID, toLabel, toID string) error
}

// SkillGenerator is the subset of *skillgen.Generator the tool catalogue
// calls.
type SkillGenerator interface {
	Generate(ctx context.Context, domain string, decisionLimit int) (*model.Skill, error)
}

var _ Orchestration = (*orchestration.Service)(nil)
var _ CalibrationEngine = (*calibration.Engine)(nil)
var _ OutcomeTracker = (*outcometracker.Tracker)(nil)
var _ EngramIndex = (*engramstore.Store)(nil)
var _ SkillGenerator = (*skillgen.Generator)(nil)

// EngramIndex is the subset of *engramstore.Store the tool catalogue calls
// for its local, rebuildable secondary index (not a durable source of
// truth).
type EngramIndex interface {
	IndexDecision(e engramstore.DecisionIndexEntry) error
	UpdateDecisionIndexOutcome(decisionID, outcome string) error
	ListRecentDecisionIndex(module string, limit int) ([]engramstore.DecisionIndexEntry, error)
	IndexEngram(e engramstore.IndexEntry) error
	PendingDepth() (int64, error)
}

// Deps bundles every dependency the tool catalogue is registered against,
// built once in cmd/membria-core/main.go and passed to RegisterAll.
type Deps struct {
	Graph         GraphStore
	Tracker       OutcomeTracker
	Calibration   CalibrationEngine
	ContextMgr    ContextManager
	PlanBuilder   PlanContextBuilder
	Validator     PlanValidator
	Orchestration Orchestration
	Engram        EngramIndex
	SkillGen      SkillGenerator

	DefaultModule  string
	DefaultTTLDays int

	StartedAt int64
	LogPath   string

	Now func() int64
	Log *slog.Logger
}

func (d *Deps) now() int64 {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().Unix()
}

func (d *Deps) log() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}

func (d *Deps) module(m string) string {
	if m != "" {
		return m
	}
	if d.DefaultModule != "" {
		return d.DefaultModule
	}
	return model.DefaultModule
}

// RegisterAll wires every §4.9 tool onto r using deps. Split across
// tools_*.go by concern, mirroring the teacher's one-file-per-concern
// package layout rather than one monolithic registration function.
func RegisterAll(r *Registry, deps *Deps) {
	registerDecisionTools(r, deps)
	registerContextTools(r, deps)
	registerMemoryTools(r, deps)
	registerSessionTools(r, deps)
	registerDocTools(r, deps)
	registerOrchestrationTools(r, deps)
	registerDiagnosticTools(r, deps)
}
