package toolserver

import (
	"context"
	"fmt"

	"github.com/actiquest-dev/membria-core/internal/apperrors"
	"github.com/actiquest-dev/membria-core/internal/model"
)

// Memory type discriminators shared by memory_store/retrieve/delete/list.
const (
	memoryTypeDecision          = "decision"
	memoryTypeNegativeKnowledge = "negative_knowledge"
)

// MemoryStoreInput is memory_store's argument shape.
type MemoryStoreInput struct {
	MemoryType string            `json:"memory_type" jsonschema:"enum=decision,enum=negative_knowledge"`
	Payload    map[string]string `json:"payload"`
	TTLDays    int               `json:"ttl_days,omitempty" default:"720" jsonschema:"minimum=1,maximum=3650"`
}

// MemoryStoreOutput is memory_store's result shape.
type MemoryStoreOutput struct {
	ItemID     string `json:"item_id"`
	MemoryType string `json:"memory_type"`
	Status     string `json:"status"`
}

// MemoryRetrieveInput is memory_retrieve's argument shape.
type MemoryRetrieveInput struct {
	MemoryType string `json:"memory_type" jsonschema:"enum=decision,enum=negative_knowledge"`
	Domain     string `json:"domain,omitempty"`
	Limit      int    `json:"limit,omitempty" default:"5" jsonschema:"minimum=1,maximum=50"`
}

// MemoryRetrieveOutput is memory_retrieve's result shape.
type MemoryRetrieveOutput struct {
	MemoryType string           `json:"memory_type"`
	Decisions  []*model.Decision `json:"decisions,omitempty"`
	Entries    []*model.NegativeKnowledge `json:"negative_knowledge,omitempty"`
}

// MemoryDeleteInput is memory_delete's argument shape.
type MemoryDeleteInput struct {
	MemoryType string `json:"memory_type" jsonschema:"enum=decision,enum=negative_knowledge"`
	ItemID     string `json:"item_id" jsonschema:"minLength=1"`
	Reason     string `json:"reason,omitempty" default:"manual_delete"`
}

// MemoryDeleteOutput is memory_delete's result shape.
type MemoryDeleteOutput struct {
	ItemID string `json:"item_id"`
	Status string `json:"status"`
}

// MemoryListInput is memory_list's argument shape.
type MemoryListInput struct {
	MemoryType string `json:"memory_type" jsonschema:"enum=decision,enum=negative_knowledge"`
	Domain     string `json:"domain,omitempty"`
	Limit      int    `json:"limit,omitempty" default:"10" jsonschema:"minimum=1,maximum=100"`
}

// MemoryListOutput is memory_list's result shape.
type MemoryListOutput struct {
	MemoryType string            `json:"memory_type"`
	Count      int               `json:"count"`
	Decisions  []*model.Decision `json:"decisions,omitempty"`
	Entries    []*model.NegativeKnowledge `json:"negative_knowledge,omitempty"`
}

func registerMemoryTools(r *Registry, d *Deps) {
	Register(r, "memory_store", "Persist a decision or negative-knowledge memory item.",
		func(ctx context.Context, in MemoryStoreInput) (MemoryStoreOutput, error) {
			now := d.now()
			switch in.MemoryType {
			case memoryTypeDecision:
				dec := &model.Decision{
					ID:           newDecisionID(now),
					Statement:    in.Payload["statement"],
					Alternatives: []string{in.Payload["alternative"]},
					Confidence:   0.5,
					Module:       d.module(in.Payload["module"]),
					CreatedAt:    now,
					Outcome:      model.OutcomePending,
					MemoryType:   memoryTypeDecision,
					MemorySubject: in.Payload["subject"],
					TTLDays:      in.TTLDays,
					IsActive:     true,
					Source:       "memory_store",
				}
				if len(dec.Alternatives) == 1 && dec.Alternatives[0] == "" {
					dec.Alternatives = []string{"(no alternative recorded)"}
				}
				if err := dec.Valid(); err != nil {
					return MemoryStoreOutput{}, err
				}
				if err := d.Graph.AddDecision(ctx, dec); err != nil {
					return MemoryStoreOutput{}, err
				}
				_ = d.Engram.IndexDecision(indexEntryFor(dec))
				return MemoryStoreOutput{ItemID: dec.ID, MemoryType: memoryTypeDecision, Status: "stored"}, nil

			case memoryTypeNegativeKnowledge:
				nk := &model.NegativeKnowledge{
					ID:             newNKID(now),
					Hypothesis:     in.Payload["hypothesis"],
					Conclusion:     in.Payload["conclusion"],
					Evidence:       in.Payload["evidence"],
					Domain:         d.module(in.Payload["domain"]),
					Severity:       nonEmpty(in.Payload["severity"], model.SeverityMedium),
					DiscoveredAt:   now,
					BlocksPattern:  in.Payload["blocks_pattern"],
					Recommendation: in.Payload["recommendation"],
					Source:         "memory_store",
					MemoryType:     memoryTypeNegativeKnowledge,
					TTLDays:        in.TTLDays,
					IsActive:       true,
				}
				if err := d.Graph.AddNegativeKnowledge(ctx, nk); err != nil {
					return MemoryStoreOutput{}, err
				}
				return MemoryStoreOutput{ItemID: nk.ID, MemoryType: memoryTypeNegativeKnowledge, Status: "stored"}, nil

			default:
				return MemoryStoreOutput{}, fmt.Errorf("%w: unknown memory_type %q", apperrors.ErrInvalidArgument, in.MemoryType)
			}
		})

	Register(r, "memory_retrieve", "Retrieve recent decisions or negative-knowledge entries for a domain.",
		func(ctx context.Context, in MemoryRetrieveInput) (MemoryRetrieveOutput, error) {
			return memoryFetch(ctx, d, in.MemoryType, in.Domain, in.Limit)
		})

	Register(r, "memory_list", "List decisions or negative-knowledge entries for a domain.",
		func(ctx context.Context, in MemoryListInput) (MemoryListOutput, error) {
			out, err := memoryFetch(ctx, d, in.MemoryType, in.Domain, in.Limit)
			if err != nil {
				return MemoryListOutput{}, err
			}
			count := len(out.Decisions) + len(out.Entries)
			return MemoryListOutput{MemoryType: out.MemoryType, Count: count, Decisions: out.Decisions, Entries: out.Entries}, nil
		})

	Register(r, "memory_delete", "Soft-deactivate a decision or negative-knowledge memory item.",
		func(ctx context.Context, in MemoryDeleteInput) (MemoryDeleteOutput, error) {
			switch in.MemoryType {
			case memoryTypeDecision:
				if err := d.Graph.DeactivateDecisionMemory(ctx, in.ItemID, in.Reason); err != nil {
					return MemoryDeleteOutput{}, err
				}
			case memoryTypeNegativeKnowledge:
				if err := d.Graph.DeleteNegativeKnowledge(ctx, in.ItemID, in.Reason); err != nil {
					return MemoryDeleteOutput{}, err
				}
			default:
				return MemoryDeleteOutput{}, fmt.Errorf("%w: unknown memory_type %q", apperrors.ErrInvalidArgument, in.MemoryType)
			}
			return MemoryDeleteOutput{ItemID: in.ItemID, Status: "deleted"}, nil
		})
}

func memoryFetch(ctx context.Context, d *Deps, memoryType, domain string, limit int) (MemoryRetrieveOutput, error) {
	switch memoryType {
	case memoryTypeDecision:
		decisions, err := d.Graph.ListRecentDecisions(ctx, domain, limit)
		if err != nil {
			return MemoryRetrieveOutput{}, err
		}
		return MemoryRetrieveOutput{MemoryType: memoryTypeDecision, Decisions: decisions}, nil
	case memoryTypeNegativeKnowledge:
		entries, err := d.Graph.ListNegativeKnowledge(ctx, domain, limit)
		if err != nil {
			return MemoryRetrieveOutput{}, err
		}
		return MemoryRetrieveOutput{MemoryType: memoryTypeNegativeKnowledge, Entries: entries}, nil
	default:
		return MemoryRetrieveOutput{}, fmt.Errorf("%w: unknown memory_type %q", apperrors.ErrInvalidArgument, memoryType)
	}
}

func nonEmpty(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
