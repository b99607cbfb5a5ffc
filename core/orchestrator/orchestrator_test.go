package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"domain-manager/core/ledger/memory"
	"domain-manager/core/names"
	"domain-manager/core/orchestrator"
	"domain-manager/core/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ids(prefix string, n int) []names.EntityID {
	out := make([]names.EntityID, n)
	for i := range out {
		out[i] = names.EntityID(fmt.Sprintf("%s-%02d", prefix, i))
	}
	return out
}

func newOrchestrator(t *testing.T, l *memory.Ledger) *orchestrator.Orchestrator {
	t.Helper()
	o := orchestrator.New(l, orchestrator.WithLogger(zap.NewNop()))
	t.Cleanup(o.Close)
	return o
}

func eventually(t *testing.T, o *orchestrator.Orchestrator, cond func(orchestrator.Snapshot) bool) orchestrator.Snapshot {
	t.Helper()
	var last orchestrator.Snapshot
	require.Eventually(t, func() bool {
		last = o.Snapshot()
		return cond(last)
	}, 2*time.Second, 5*time.Millisecond)
	return last
}

func loaded(s orchestrator.Snapshot) bool {
	return s.Ownership != nil && !s.Progress.Loading
}

func TestChangeAccount_OnlyLatestAccountIsVisible(t *testing.T) {
	l := memory.New()
	l.AddOwned("0xa", ids("a", 15)...)
	l.AddOwned("0xb", ids("b", 3)...)
	release := l.Hold(memory.OpListOwned)
	o := newOrchestrator(t, l)

	var mu sync.Mutex
	var seen []orchestrator.Snapshot
	unsubscribe := o.Subscribe(func(s orchestrator.Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})
	defer unsubscribe()

	ctx := context.Background()
	require.NoError(t, o.ChangeAccount(ctx, "0xA"))
	require.NoError(t, o.ChangeAccount(ctx, "0xB"))
	release()

	s := eventually(t, o, loaded)
	assert.Equal(t, names.Address("0xb"), s.Account)
	assert.Equal(t, ids("b", 3), s.Ownership)
	require.NotNil(t, s.Progress.Total)
	assert.Equal(t, 3, *s.Progress.Total)
	assert.Equal(t, 3, s.Progress.Loaded)

	mu.Lock()
	defer mu.Unlock()
	var last uint64
	for _, snap := range seen {
		assert.Greater(t, snap.Version, last)
		last = snap.Version
		if snap.Account == "0xb" {
			for _, id := range snap.Ownership {
				assert.NotContains(t, ids("a", 15), id)
			}
		}
		if snap.Progress.Total != nil {
			assert.LessOrEqual(t, snap.Progress.Loaded, *snap.Progress.Total)
		}
	}
}

func TestChangeAccount_BlankAccount(t *testing.T) {
	o := newOrchestrator(t, memory.New())

	assert.ErrorIs(t, o.ChangeAccount(context.Background(), "   "), names.ErrInvalidAccount)
	assert.ErrorIs(t, o.ReloadOwnership(context.Background()), names.ErrInvalidAccount)
	assert.Nil(t, o.Snapshot().Ownership)
}

func TestChangeAccount_ResolvesPrimaryName(t *testing.T) {
	l := memory.New()
	l.SetReverse("0xa", "alice")
	o := newOrchestrator(t, l)

	require.NoError(t, o.ChangeAccount(context.Background(), "0xA"))

	s := eventually(t, o, func(s orchestrator.Snapshot) bool {
		_, ok := s.PrimaryName()
		return ok
	})
	e, _ := s.PrimaryName()
	assert.True(t, e.Found)
	assert.Equal(t, names.EntityID("alice"), e.Name)
}

func TestReloadOwnership_FailureKeepsLastGoodSet(t *testing.T) {
	l := memory.New()
	l.AddOwned("0xa", ids("a", 4)...)
	o := newOrchestrator(t, l)
	ctx := context.Background()

	require.NoError(t, o.ChangeAccount(ctx, "0xa"))
	first := eventually(t, o, loaded)
	assert.Equal(t, ids("a", 4), first.Ownership)

	l.Fail(memory.OpListOwned, errors.New("connection reset"))
	require.NoError(t, o.ReloadOwnership(ctx))

	s := eventually(t, o, func(s orchestrator.Snapshot) bool {
		return s.Progress.Failed
	})
	assert.Equal(t, ids("a", 4), s.Ownership)
	assert.True(t, s.Progress.Stale)
	assert.False(t, s.Progress.Loading)
	assert.Equal(t, names.KindNetworkFailure, s.Progress.Kind)
	assert.Greater(t, s.Generation, first.Generation)

	l.Fail(memory.OpListOwned, nil)
	l.AddOwned("0xa", "a-new")
	require.NoError(t, o.ReloadOwnership(ctx))

	s = eventually(t, o, func(s orchestrator.Snapshot) bool {
		return loaded(s) && len(s.Ownership) == 5
	})
	assert.False(t, s.Progress.Stale)
	assert.False(t, s.Progress.Failed)
	assert.Empty(t, s.Progress.Error)
}

func TestRequestDetail(t *testing.T) {
	l := memory.New()
	l.AddDomain(names.Domain{ID: "alice", Name: "alice.eth", Owner: "0xA", Resolver: "0xresolver"},
		names.Record{Key: names.KeyEmail, Value: "a@example.com"},
		names.Record{Key: names.KeyEVM, Value: "0xa"},
	)
	l.SetReverse("0xa", "alice")
	o := newOrchestrator(t, l)
	ctx := context.Background()
	require.NoError(t, o.ChangeAccount(ctx, "0xa"))

	detail, err := o.RequestDetail(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, detail.Error)
	assert.Equal(t, "alice.eth", detail.Domain.Name)
	assert.True(t, detail.Owned)
	require.NotNil(t, detail.Owner)
	assert.Equal(t, names.EntityID("alice"), detail.Owner.Name)
	assert.Equal(t, []names.Record{
		{Key: names.KeyEVM, Value: "0xa"},
		{Key: names.KeyEmail, Value: "a@example.com"},
	}, detail.Records)

	s := o.Snapshot()
	assert.Contains(t, s.Domains, names.EntityID("alice"))
	assert.True(t, s.Records["alice"].Loaded)
}

func TestRequestDetail_FailureIsReportedNotReturned(t *testing.T) {
	l := memory.New()
	o := newOrchestrator(t, l)

	detail, err := o.RequestDetail(context.Background(), "ghost")
	require.NoError(t, err)
	assert.NotEmpty(t, detail.Error)
	assert.Nil(t, detail.Owner)

	_, err = o.RequestDetail(context.Background(), "")
	assert.ErrorIs(t, err, names.ErrInvalidInput)
}

func TestOwnerBackfill(t *testing.T) {
	l := memory.New()
	l.AddDomain(names.Domain{ID: "shared", Owner: "0xb"})
	l.AddOwned("0xa", "shared")
	l.SetReverse("0xb", "bob")
	o := newOrchestrator(t, l)
	ctx := context.Background()

	// The owner lookup fails during the detail request and is not cached
	l.Fail(memory.OpReverseLookup, errors.New("connection reset"))
	detail, err := o.RequestDetail(ctx, "shared")
	require.NoError(t, err)
	assert.Nil(t, detail.Owner)
	l.Fail(memory.OpReverseLookup, nil)

	require.NoError(t, o.ChangeAccount(ctx, "0xa"))
	s := eventually(t, o, func(s orchestrator.Snapshot) bool {
		_, ok := s.ReverseLookups["0xb"]
		return ok
	})
	assert.Equal(t, names.EntityID("bob"), s.ReverseLookups["0xb"].Name)
}

func TestSubmitEdit_VisibleInSnapshot(t *testing.T) {
	l := memory.New()
	l.AddDomain(names.Domain{ID: "alice", Owner: "0xa"})
	o := newOrchestrator(t, l)
	ctx := context.Background()

	edit, err := o.SubmitEdit(ctx, "alice", names.KeyAvatar, reconcile.ActionSet, "ipfs://a")
	require.NoError(t, err)

	s := eventually(t, o, func(s orchestrator.Snapshot) bool {
		return len(s.PendingEdits) == 1 && s.PendingEdits[0].State == reconcile.StateCommitted
	})
	assert.Equal(t, edit.ID, s.PendingEdits[0].ID)
	assert.Equal(t, []names.Record{{Key: names.KeyAvatar, Value: "ipfs://a"}}, s.Records["alice"].Records)

	require.NoError(t, o.DismissEdit("alice", names.KeyAvatar))
	assert.Empty(t, o.Snapshot().PendingEdits)

	_, err = o.RetryEdit(ctx, "alice", names.KeyAvatar)
	assert.ErrorIs(t, err, reconcile.ErrUnknownEdit)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	l := memory.New()
	l.AddOwned("0xa", ids("a", 2)...)
	o := newOrchestrator(t, l)

	var mu sync.Mutex
	count := 0
	unsubscribe := o.Subscribe(func(orchestrator.Snapshot) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	}, time.Second, 5*time.Millisecond)

	unsubscribe()
	require.NoError(t, o.ChangeAccount(context.Background(), "0xa"))
	eventually(t, o, loaded)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}
