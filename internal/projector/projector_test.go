package projector

import (
	"context"
	"path/filepath"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/willwe-labs/willwe-indexer/internal/db"
	"github.com/willwe-labs/willwe-indexer/internal/events"
	"github.com/willwe-labs/willwe-indexer/internal/logger"
	"github.com/willwe-labs/willwe-indexer/internal/model"
	"github.com/willwe-labs/willwe-indexer/internal/resolver"
	"github.com/willwe-labs/willwe-indexer/internal/store"
	"github.com/willwe-labs/willwe-indexer/internal/store/migrations"
)

// fakeResolver serves canned node states and balances; default is degraded.
type fakeResolver struct {
	states   map[string]*resolver.NodeState
	balances map[string]string
}

func (f *fakeResolver) GetNodeData(_ context.Context, _, nodeID string) *resolver.NodeState {
	if state, ok := f.states[nodeID]; ok {
		return state
	}
	return resolver.DegradedNodeState(nodeID)
}

func (f *fakeResolver) GetRootNodeID(_ context.Context, _, nodeID string) string {
	if state, ok := f.states[nodeID]; ok && len(state.RootPath) > 0 {
		return state.RootPath[0]
	}
	return "0"
}

func (f *fakeResolver) GetBalance(_ context.Context, _, who, nodeID string) string {
	if balance, ok := f.balances[who+"/"+nodeID]; ok {
		return balance
	}
	return "0"
}

func newTestProjector(t *testing.T, res NodeResolver) (*Projector, *store.Store) {
	t.Helper()

	database, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "projection.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	log := logger.NewNopLogger()
	require.NoError(t, migrations.RunMigrationsDB(log, database))

	s := store.NewStore(database, log)
	if res == nil {
		res = &fakeResolver{}
	}
	return New(s, res, log), s
}

func meta(id string, block uint64, ts int64) events.Meta {
	return events.Meta{
		EventID:     id,
		Network:     "base",
		NetworkID:   "8453",
		BlockNumber: block,
		BlockHash:   ethcommon.HexToHash("0x0b"),
		TxHash:      ethcommon.HexToHash("0x0a"),
		Timestamp:   ts,
	}
}

func TestApply_NewRootNode_Enriched(t *testing.T) {
	res := &fakeResolver{states: map[string]*resolver.NodeState{
		"42": {
			Inflation:              "5",
			Reserve:                "1000",
			Budget:                 "500",
			RootValuationBudget:    "0",
			RootValuationReserve:   "0",
			MembraneID:             "7",
			EligibilityPerSec:      "1",
			LastRedistributionTime: "0",
			TotalSupply:            "1000000",
			MembersOfNode:          []string{"0xaa"},
			ChildrenNodes:          []string{},
			RootPath:               []string{"42"},
			Signals:                []string{},
		},
	}}
	p, s := newTestProjector(t, res)
	ctx := context.Background()

	err := p.Apply(ctx, meta("0xtx-0", 100, 1700000000), events.NewRootNode{NodeID: "42", Creator: "0xcc"})
	require.NoError(t, err)

	node, err := s.GetNode(s.DB(), "base", "42")
	require.NoError(t, err)
	require.Equal(t, "1000000", node.TotalSupply)
	require.Equal(t, "7", node.MembraneID)
	require.Equal(t, []string{"42"}, node.RootPath)

	eventRows, total, err := s.ListEvents(store.EventFilter{NodeID: "42"}, store.Pagination{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, model.EventTypeRootNodeCreated, eventRows[0].EventType)
	require.Equal(t, "42", eventRows[0].RootNodeID)
}

func TestApply_DegradedResolverStillWrites(t *testing.T) {
	p, s := newTestProjector(t, nil)

	err := p.Apply(context.Background(), meta("0xtx-1", 10, 1000), events.NewNode{
		NodeID: "9", ParentID: "4", Creator: "0xcc",
	})
	require.NoError(t, err)

	node, err := s.GetNode(s.DB(), "base", "9")
	require.NoError(t, err)
	require.Equal(t, "0", node.TotalSupply)
	require.Equal(t, []string{"9"}, node.RootPath)
}

func TestApply_Idempotent(t *testing.T) {
	p, s := newTestProjector(t, nil)
	ctx := context.Background()

	m := meta("0xtx-2", 10, 1000)
	ev := events.MembershipMinted{NodeID: "5", Who: "0xaa"}
	require.NoError(t, p.Apply(ctx, m, ev))
	require.NoError(t, p.Apply(ctx, m, ev))

	memberships, err := s.ListMembershipsByNode("base", "5")
	require.NoError(t, err)
	require.Len(t, memberships, 1)

	_, total, err := s.ListEvents(store.EventFilter{NodeID: "5"}, store.Pagination{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
}

func TestApply_SupplyArithmeticBeyondInt64(t *testing.T) {
	p, s := newTestProjector(t, nil)
	ctx := context.Background()

	// 2^64, comfortably past what int64 arithmetic could carry
	huge := "18446744073709551616"
	require.NoError(t, p.Apply(ctx, meta("0xtx-3", 10, 1000), events.Minted{
		NodeID: "5", To: "0xaa", Amount: huge,
	}))
	require.NoError(t, p.Apply(ctx, meta("0xtx-4", 11, 1001), events.Minted{
		NodeID: "5", To: "0xaa", Amount: huge,
	}))

	node, err := s.GetNode(s.DB(), "base", "5")
	require.NoError(t, err)
	require.Equal(t, "36893488147419103232", node.TotalSupply)
}

func TestApply_BurnFloorsAtZero(t *testing.T) {
	p, s := newTestProjector(t, nil)
	ctx := context.Background()

	require.NoError(t, p.Apply(ctx, meta("0xtx-5", 10, 1000), events.Minted{
		NodeID: "5", To: "0xaa", Amount: "100",
	}))
	require.NoError(t, p.Apply(ctx, meta("0xtx-6", 11, 1001), events.Burned{
		NodeID: "5", From: "0xaa", Amount: "500",
	}))

	node, err := s.GetNode(s.DB(), "base", "5")
	require.NoError(t, err)
	require.Equal(t, "0", node.TotalSupply)
}

func TestApply_ExclusiveMembraneSignals(t *testing.T) {
	res := &fakeResolver{balances: map[string]string{"0xaa/5": "250"}}
	p, s := newTestProjector(t, res)
	ctx := context.Background()

	// two sequential signals from the same user; only the second stays active
	require.NoError(t, p.Apply(ctx, meta("0xtx-7", 10, 1000), events.UserNodeSignal{
		NodeID: "5", Sender: "0xaa", Signals: []string{"7", "0"}, Strength: "0",
	}))
	require.NoError(t, p.Apply(ctx, meta("0xtx-8", 11, 1001), events.UserNodeSignal{
		NodeID: "5", Sender: "0xaa", Signals: []string{"8", "0"}, Strength: "0",
	}))

	active, err := s.GetActiveMembraneSignal("base", "5", "0xaa")
	require.NoError(t, err)
	require.Equal(t, "8", active.MembraneID)
	require.Equal(t, "250", active.Strength)

	all, err := s.ListActiveMembraneSignals("base", "5")
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestApply_UserNodeSignal_RedistributionPreferences(t *testing.T) {
	p, s := newTestProjector(t, nil)

	require.NoError(t, p.Apply(context.Background(), meta("0xtx-9", 10, 1000), events.UserNodeSignal{
		NodeID: "5", Sender: "0xaa",
		Signals:  []string{"0", "0", "30", "70"},
		Strength: "10",
	}))

	signals, err := s.ListNodeSignals("base", "5", 50)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	require.Equal(t, model.SignalTypeRedistribution, signals[0].SignalType)
	require.JSONEq(t, `["30","70"]`, signals[0].SignalValue)
	require.Equal(t, "10", signals[0].CurrentPrevalence)
}

func TestApply_NodeLifecycle_OutOfOrder(t *testing.T) {
	p, s := newTestProjector(t, nil)
	ctx := context.Background()

	// MembraneChanged lands before the node-creation event
	require.NoError(t, p.Apply(ctx, meta("0xtx-10", 10, 1000), events.MembraneChanged{
		NodeID: "5", PreviousMembrane: "0", NewMembrane: "77",
	}))

	node, err := s.GetNode(s.DB(), "base", "5")
	require.NoError(t, err)
	require.Equal(t, "77", node.MembraneID)

	// the late creation event refreshes resolved state without dropping the row
	require.NoError(t, p.Apply(ctx, meta("0xtx-11", 12, 1002), events.NewRootNode{
		NodeID: "5", Creator: "0xcc",
	}))

	node, err = s.GetNode(s.DB(), "base", "5")
	require.NoError(t, err)
	require.Equal(t, int64(1000), node.CreatedAt)
}

func TestApply_SignatureFlow(t *testing.T) {
	p, s := newTestProjector(t, nil)
	ctx := context.Background()

	queueHash := "0x1111"
	require.NoError(t, p.Apply(ctx, meta("0xtx-12", 10, 1000), events.NewSignaturesSubmitted{
		QueueHash: queueHash, MovementHash: "0xmove", Signer: "0xaa", Signature: "0x0102",
	}))

	queue, err := s.GetSignatureQueue(s.DB(), "base", queueHash)
	require.NoError(t, err)
	require.Equal(t, model.QueueStateInitialized, queue.State)

	sigs, err := s.ListSignaturesByQueue("base", queueHash)
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	require.True(t, sigs[0].Submitted)

	require.NoError(t, p.Apply(ctx, meta("0xtx-13", 11, 1001), events.SignatureRemoved{
		QueueHash: queueHash, Signer: "0xaa",
	}))
	sigs, err = s.ListSignaturesByQueue("base", queueHash)
	require.NoError(t, err)
	require.False(t, sigs[0].Submitted)

	// resubmission flips the same row back on
	require.NoError(t, p.Apply(ctx, meta("0xtx-14", 12, 1002), events.NewSignaturesSubmitted{
		QueueHash: queueHash, MovementHash: "0xmove", Signer: "0xaa", Signature: "0x0102",
	}))
	sigs, err = s.ListSignaturesByQueue("base", queueHash)
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	require.True(t, sigs[0].Submitted)

	require.NoError(t, p.Apply(ctx, meta("0xtx-15", 13, 1003), events.QueueExecuted{
		QueueHash: queueHash, NodeID: "5",
	}))
	queue, err = s.GetSignatureQueue(s.DB(), "base", queueHash)
	require.NoError(t, err)
	require.Equal(t, model.QueueStateExecuted, queue.State)
}

func TestApply_QueueExecuted_MissingQueueIsNoOp(t *testing.T) {
	p, s := newTestProjector(t, nil)

	require.NoError(t, p.Apply(context.Background(), meta("0xtx-16", 10, 1000), events.QueueExecuted{
		QueueHash: "0xmissing", NodeID: "5",
	}))

	_, err := s.GetSignatureQueue(s.DB(), "base", "0xmissing")
	require.ErrorIs(t, err, store.ErrNotFound)

	// the audit row still lands
	_, total, err := s.ListEvents(store.EventFilter{NodeID: "5"}, store.Pagination{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
}

func TestApply_TransferBatchFanOut(t *testing.T) {
	p, s := newTestProjector(t, nil)

	require.NoError(t, p.Apply(context.Background(), meta("0xtx-17", 10, 1000), events.TransferBatch{
		Operator: "0xop",
		From:     model.ZeroAddress,
		To:       "0xaa",
		TokenIDs: []string{"5", "6", "7"},
		Values:   []string{"1", "2", "3"},
	}))

	eventRows, total, err := s.ListEvents(store.EventFilter{}, store.Pagination{})
	require.NoError(t, err)
	require.Equal(t, 3, total)

	seen := map[string]bool{}
	for _, row := range eventRows {
		require.False(t, seen[row.ID], "duplicate fan-out id %s", row.ID)
		seen[row.ID] = true
		require.Equal(t, model.EventTypeMint, row.EventType)
	}
}

func TestApply_MovementDefaults(t *testing.T) {
	p, s := newTestProjector(t, nil)

	require.NoError(t, p.Apply(context.Background(), meta("0xtx-18", 10, 1700000000), events.NewMovementCreated{
		NodeID:    "5",
		Initiator: "0xaa",
		// zero hash forces the synthetic fallback id
		MovementHash: zeroHash32,
		Category:     1,
		ExpiresAt:    0,
	}))

	movements, _, err := s.ListMovements(store.MovementFilter{NodeID: "5"}, store.Pagination{})
	require.NoError(t, err)
	require.Len(t, movements, 1)
	require.Equal(t, "0xtx-18-movement", movements[0].ID)
	require.Equal(t, int64(1700000000+7*24*3600), movements[0].ExpiresAt)
	require.Equal(t, model.MovementAgentMajority, movements[0].Category)
}

func TestApply_MembraneCreated_IDIncludesBlockHash(t *testing.T) {
	p, s := newTestProjector(t, nil)

	m := meta("0xtx-19", 10, 1000)
	require.NoError(t, p.Apply(context.Background(), m, events.MembraneCreated{
		Creator: "0xaa", MembraneID: "777", CID: "ipfs://x",
	}))

	membranes, _, err := s.ListMembranes(store.MembraneFilter{}, store.Pagination{})
	require.NoError(t, err)
	require.Len(t, membranes, 1)
	require.Equal(t, "777-"+m.BlockHash.Hex(), membranes[0].ID)
}

func TestApply_NilDecodedIsSkipped(t *testing.T) {
	p, _ := newTestProjector(t, nil)
	require.NoError(t, p.Apply(context.Background(), meta("0xtx-20", 10, 1000), nil))
}
