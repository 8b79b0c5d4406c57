package toolserver

import (
	"fmt"
	"sync/atomic"

	"github.com/actiquest-dev/membria-core/internal/engramstore"
	"github.com/actiquest-dev/membria-core/internal/model"
)

// idSeq is a process-lifetime monotonic counter folded into every generated
// id alongside the current timestamp, so two ids minted within the same
// second (or under a frozen Deps.Now in tests) never collide.
var idSeq uint64

// hashSeq returns the next value in the process-wide id sequence.
func hashSeq() uint64 {
	return atomic.AddUint64(&idSeq, 1)
}

func newEngramID(now int64) string {
	return fmt.Sprintf("eng_%d_%08x", now, hashSeq())
}

func newStepDecisionID(now int64, step int) string {
	return fmt.Sprintf("dec_%d_%02d_%08x", now, step, hashSeq())
}

func newNKID(now int64) string {
	return fmt.Sprintf("nk_%d_%08x", now, hashSeq())
}

func newSquadID(now int64) string {
	return fmt.Sprintf("sq_%d_%08x", now, hashSeq())
}

func newAssignmentID(now int64) string {
	return fmt.Sprintf("asn_%d_%08x", now, hashSeq())
}

func newRoleID(now int64) string {
	return fmt.Sprintf("role_%d_%08x", now, hashSeq())
}

func newProfileID(now int64) string {
	return fmt.Sprintf("prof_%d_%08x", now, hashSeq())
}

// indexEntryFor projects a Decision onto the local read-through cache's
// listing-relevant fields.
func indexEntryFor(d *model.Decision) engramstore.DecisionIndexEntry {
	return engramstore.DecisionIndexEntry{
		DecisionID: d.ID,
		Module:     d.Module,
		Statement:  d.Statement,
		Confidence: d.Confidence,
		Outcome:    d.Outcome,
		CreatedAt:  d.CreatedAt,
	}
}
