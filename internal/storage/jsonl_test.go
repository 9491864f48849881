package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"swapdesk/internal/model"
)

func TestJsonlJournalAppendAndList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "actions.jsonl")
	journal := NewJsonlJournal(path)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []model.ActionSnapshot{
		{ID: "a", Kind: model.ActionSwap, Account: "0xAbC", State: model.StateSettled, UpdatedAt: base},
		{ID: "b", Kind: model.ActionAddLiquidity, Account: "0xabc", State: model.StateFailed, Failure: model.FailureApproval, UpdatedAt: base.Add(time.Minute)},
		{ID: "c", Kind: model.ActionSwap, Account: "0xdef", State: model.StateFailed, Failure: model.FailureUserRejection, UpdatedAt: base.Add(2 * time.Minute)},
	}
	for _, rec := range records {
		require.NoError(t, journal.RecordAction(ctx, rec))
	}

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 3, strings.Count(string(raw), "\n"))

	all, err := journal.ListActions(ctx, ActionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "c", all[0].ID)

	mine, err := journal.ListActions(ctx, ActionFilter{Account: "0xABC"})
	require.NoError(t, err)
	require.Len(t, mine, 2)

	swaps, err := journal.ListActions(ctx, ActionFilter{Kind: model.ActionSwap, Limit: 1})
	require.NoError(t, err)
	require.Len(t, swaps, 1)
	require.Equal(t, "c", swaps[0].ID)

	recent, err := journal.ListActions(ctx, ActionFilter{Since: base.Add(30 * time.Second)})
	require.NoError(t, err)
	require.Len(t, recent, 2)
}

func TestJsonlJournalMissingFile(t *testing.T) {
	journal := NewJsonlJournal(filepath.Join(t.TempDir(), "none.jsonl"))
	out, err := journal.ListActions(context.Background(), ActionFilter{})
	require.NoError(t, err)
	require.Empty(t, out)
}
