package graphstore

import (
	"strings"
	"testing"

	"github.com/actiquest-dev/membria-core/internal/model"
	"github.com/stretchr/testify/require"
)

func TestComputeDocShotIDIsDeterministic(t *testing.T) {
	docs := []*model.Document{
		{ID: "doc_a", UpdatedAt: 100},
		{ID: "doc_b", UpdatedAt: 200},
	}
	first := ComputeDocShotID(docs)
	second := ComputeDocShotID(docs)
	require.Equal(t, first, second)
	require.True(t, strings.HasPrefix(first, "docshot_"))
}

func TestComputeDocShotIDIsOrderIndependent(t *testing.T) {
	a := []*model.Document{
		{ID: "doc_a", UpdatedAt: 100},
		{ID: "doc_b", UpdatedAt: 200},
	}
	b := []*model.Document{
		{ID: "doc_b", UpdatedAt: 200},
		{ID: "doc_a", UpdatedAt: 100},
	}
	require.Equal(t, ComputeDocShotID(a), ComputeDocShotID(b))
}

func TestComputeDocShotIDChangesWithContent(t *testing.T) {
	base := []*model.Document{{ID: "doc_a", UpdatedAt: 100}}
	touched := []*model.Document{{ID: "doc_a", UpdatedAt: 101}}
	extra := []*model.Document{{ID: "doc_a", UpdatedAt: 100}, {ID: "doc_b", UpdatedAt: 50}}

	require.NotEqual(t, ComputeDocShotID(base), ComputeDocShotID(touched))
	require.NotEqual(t, ComputeDocShotID(base), ComputeDocShotID(extra))
}
