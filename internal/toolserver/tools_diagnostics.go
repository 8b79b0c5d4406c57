package toolserver

import (
	"bufio"
	"context"
	"os"

	"github.com/actiquest-dev/membria-core/internal/apperrors"
	"github.com/actiquest-dev/membria-core/internal/model"
)

// OutcomeGetInput is outcome_get's argument shape.
type OutcomeGetInput struct {
	OutcomeID string `json:"outcome_id" jsonschema:"minLength=1"`
}

// OutcomeGetOutput is outcome_get's result shape.
type OutcomeGetOutput struct {
	Outcome *model.Outcome `json:"outcome"`
}

// OutcomeListInput is outcome_list's argument shape.
type OutcomeListInput struct {
	Status string `json:"status,omitempty"`
	Limit  int    `json:"limit,omitempty" default:"10" jsonschema:"minimum=1,maximum=100"`
}

// OutcomeListOutput is outcome_list's result shape.
type OutcomeListOutput struct {
	Outcomes []*model.Outcome `json:"outcomes"`
}

// SkillsListInput is the skills accessor's argument shape.
type SkillsListInput struct {
	Domain string `json:"domain" jsonschema:"minLength=1"`
}

// SkillsListOutput is the skills accessor's result shape.
type SkillsListOutput struct {
	Skills []*model.Skill `json:"skills"`
}

// SkillGenerateInput is skill_generate's argument shape.
type SkillGenerateInput struct {
	Domain        string `json:"domain" jsonschema:"minLength=1"`
	DecisionLimit int    `json:"decision_limit,omitempty" default:"200" jsonschema:"minimum=1,maximum=2000"`
}

// SkillGenerateOutput is skill_generate's result shape.
type SkillGenerateOutput struct {
	Skill *model.Skill `json:"skill"`
}

// AntiPatternsListInput is the antipatterns accessor's argument shape.
type AntiPatternsListInput struct {
	Limit int `json:"limit,omitempty" default:"20" jsonschema:"minimum=1,maximum=200"`
}

// AntiPatternsListOutput is the antipatterns accessor's result shape.
type AntiPatternsListOutput struct {
	AntiPatterns []*model.AntiPattern `json:"antipatterns"`
}

// HealthInput is health's argument shape (no arguments needed).
type HealthInput struct{}

// HealthOutput is health's result shape.
type HealthOutput struct {
	Status        string `json:"status"` // ok|degraded
	GraphConnected bool  `json:"graph_connected"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// MigrationsStatusInput is migrations_status's argument shape (no
// arguments needed).
type MigrationsStatusInput struct{}

// MigrationsStatusOutput is migrations_status's result shape. The engram
// store runs its schema migration inline at Open time (see
// internal/engramstore/store.go's migrate), so there is no separate
// migration ledger to report; this reflects that the schema present at
// startup is, by construction, the current one.
type MigrationsStatusOutput struct {
	SchemaCurrent bool   `json:"schema_current"`
	Detail        string `json:"detail"`
}

// LogsTailInput is logs_tail's argument shape.
type LogsTailInput struct {
	Lines int `json:"lines,omitempty" default:"100" jsonschema:"minimum=1,maximum=5000"`
}

// LogsTailOutput is logs_tail's result shape.
type LogsTailOutput struct {
	Lines []string `json:"lines"`
}

func registerDiagnosticTools(r *Registry, d *Deps) {
	Register(r, "outcome_get", "Fetch one outcome by id.",
		func(ctx context.Context, in OutcomeGetInput) (OutcomeGetOutput, error) {
			out, err := d.Tracker.Get(ctx, in.OutcomeID)
			if err != nil {
				return OutcomeGetOutput{}, err
			}
			return OutcomeGetOutput{Outcome: out}, nil
		})

	Register(r, "outcome_list", "List outcomes, optionally filtered by status.",
		func(ctx context.Context, in OutcomeListInput) (OutcomeListOutput, error) {
			outs, err := d.Tracker.List(ctx, in.Status, in.Limit)
			if err != nil {
				return OutcomeListOutput{}, err
			}
			return OutcomeListOutput{Outcomes: outs}, nil
		})

	Register(r, "skills_list", "List generated skills for a domain.",
		func(ctx context.Context, in SkillsListInput) (SkillsListOutput, error) {
			skills, err := d.Graph.ListSkillsByDomain(ctx, in.Domain)
			if err != nil {
				return SkillsListOutput{}, err
			}
			return SkillsListOutput{Skills: skills}, nil
		})

	Register(r, "skill_generate", "Generate (and persist) the next skill version for a domain from its extracted patterns.",
		func(ctx context.Context, in SkillGenerateInput) (SkillGenerateOutput, error) {
			skill, err := d.SkillGen.Generate(ctx, in.Domain, in.DecisionLimit)
			if err != nil {
				return SkillGenerateOutput{}, err
			}
			return SkillGenerateOutput{Skill: skill}, nil
		})

	Register(r, "antipatterns_list", "List antipatterns ordered by removal rate.",
		func(ctx context.Context, in AntiPatternsListInput) (AntiPatternsListOutput, error) {
			aps, err := d.Graph.ListAntiPatternsByRemovalRate(ctx, in.Limit)
			if err != nil {
				return AntiPatternsListOutput{}, err
			}
			return AntiPatternsListOutput{AntiPatterns: aps}, nil
		})

	Register(r, "health", "Report process uptime and graph connectivity.",
		func(ctx context.Context, in HealthInput) (HealthOutput, error) {
			connected := d.Graph.Connected()
			status := "ok"
			if err := d.Graph.Ping(ctx); err != nil || !connected {
				status = "degraded"
			}
			uptime := int64(0)
			if d.StartedAt > 0 {
				uptime = d.now() - d.StartedAt
			}
			return HealthOutput{Status: status, GraphConnected: connected, UptimeSeconds: uptime}, nil
		})

	Register(r, "migrations_status", "Report whether the local engram store schema is current.",
		func(ctx context.Context, in MigrationsStatusInput) (MigrationsStatusOutput, error) {
			return MigrationsStatusOutput{
				SchemaCurrent: true,
				Detail:        "engramstore applies its schema inline at open; no pending migrations are possible by construction",
			}, nil
		})

	Register(r, "logs_tail", "Return the last N lines of the process log file.",
		func(ctx context.Context, in LogsTailInput) (LogsTailOutput, error) {
			if d.LogPath == "" {
				return LogsTailOutput{}, apperrors.ErrNotEligible
			}
			lines, err := tailLines(d.LogPath, in.Lines)
			if err != nil {
				return LogsTailOutput{}, err
			}
			return LogsTailOutput{Lines: lines}, nil
		})
}

// tailLines returns up to n trailing lines of path, read in full and kept
// only as a ring buffer of line strings; the process log file is bounded by
// ops log rotation, not by this reader, so no seek-from-end optimization is
// attempted here.
func tailLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if len(ring) < n {
			ring = append(ring, line)
			continue
		}
		copy(ring, ring[1:])
		ring[n-1] = line
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ring, nil
}
