package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/willwe-labs/willwe-indexer/internal/model"
)

func seedQueryNode(t *testing.T, s *Store, id, network string, fn func(*model.Node)) {
	t.Helper()

	node := &model.Node{
		ID:                id,
		Network:           network,
		NetworkID:         "8453",
		Inflation:         "0",
		MembraneID:        "0",
		TotalSupply:       "0",
		MembersOfNode:     []string{},
		ChildrenNodes:     []string{},
		MovementEndpoints: []string{},
		RootPath:          []string{id},
		Signals:           []string{},
		CreatedAt:         1000,
		UpdatedAt:         1000,
	}
	if fn != nil {
		fn(node)
	}
	require.NoError(t, upsertIgnore(s.DB(), nodesTable, node))
}

func TestListNodes_FiltersAndSort(t *testing.T) {
	s := newTestStore(t)

	for i := 1; i <= 4; i++ {
		i := i
		seedQueryNode(t, s, fmt.Sprintf("%d00", i), "base", func(n *model.Node) {
			n.CreatedAt = int64(1000 * i)
			n.TotalSupply = fmt.Sprintf("%d", 50*i)
			if i == 3 {
				n.MembraneID = "777"
			}
		})
	}
	seedQueryNode(t, s, "900", "optimismsepolia", func(n *model.Node) {
		n.NetworkID = "11155420"
	})

	nodes, total, err := s.ListNodes(NodeFilter{Network: "base"}, Pagination{})
	require.NoError(t, err)
	require.Equal(t, 4, total)
	require.Len(t, nodes, 4)
	// default sort: created_at DESC
	require.Equal(t, "400", nodes[0].ID)

	nodes, total, err = s.ListNodes(NodeFilter{Network: "base", CreatedAfter: 2000}, Pagination{})
	require.NoError(t, err)
	require.Equal(t, 2, total)

	nodes, total, err = s.ListNodes(NodeFilter{HasMembraneID: true}, Pagination{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "300", nodes[0].ID)

	nodes, _, err = s.ListNodes(NodeFilter{
		Network:   "base",
		SortBy:    "totalSupply",
		SortOrder: "asc",
	}, Pagination{})
	require.NoError(t, err)
	require.Equal(t, "100", nodes[0].ID)
	require.Equal(t, "400", nodes[3].ID)

	nodes, total, err = s.ListNodes(NodeFilter{NetworkID: "11155420"}, Pagination{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "900", nodes[0].ID)
}

func TestGetNodeByID_NetworkOptional(t *testing.T) {
	s := newTestStore(t)

	seedQueryNode(t, s, "42", "base", func(n *model.Node) { n.CreatedAt = 1000 })
	seedQueryNode(t, s, "42", "optimismsepolia", func(n *model.Node) {
		n.NetworkID = "11155420"
		n.CreatedAt = 2000
	})

	node, err := s.GetNodeByID("42", "base")
	require.NoError(t, err)
	require.Equal(t, "base", node.Network)

	// without a network the most recently created wins
	node, err = s.GetNodeByID("42", "")
	require.NoError(t, err)
	require.Equal(t, "optimismsepolia", node.Network)

	_, err = s.GetNodeByID("nope", "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListEvents_Filters(t *testing.T) {
	s := newTestStore(t)

	seed := func(id string, when int64, eventType model.EventType, who string) {
		event := testEvent(id, 10)
		event.When = when
		event.EventType = eventType
		event.Who = who
		require.NoError(t, s.InsertEvent(s.DB(), event))
	}
	seed("e1", 1000, model.EventTypeMint, "0xabc")
	seed("e2", 2000, model.EventTypeBurn, "0xabc")
	seed("e3", 3000, model.EventTypeMint, "0xdef")

	events, total, err := s.ListEvents(EventFilter{EventType: "mint"}, Pagination{})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Equal(t, "e3", events[0].ID) // newest first

	_, total, err = s.ListEvents(EventFilter{Who: "0xabc", From: 1500}, Pagination{})
	require.NoError(t, err)
	require.Equal(t, 1, total)

	_, total, err = s.ListEvents(EventFilter{To: 2500}, Pagination{})
	require.NoError(t, err)
	require.Equal(t, 2, total)
}

func TestListMembranes_CreatorFilter(t *testing.T) {
	s := newTestStore(t)

	seed := func(id, creator string) {
		require.NoError(t, s.InsertMembrane(s.DB(), &model.Membrane{
			ID:         id,
			Network:    "base",
			NetworkID:  "8453",
			MembraneID: id,
			Creator:    creator,
			Tokens:     []string{},
			Balances:   []string{},
			CreatedAt:  1000,
		}))
	}
	seed("m1", "0xaaa")
	seed("m2", "0xbbb")

	membranes, total, err := s.ListMembranes(MembraneFilter{CreatedBy: "0xAAA"}, Pagination{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "m1", membranes[0].ID)
}

func TestListMovements_Filters(t *testing.T) {
	s := newTestStore(t)

	seed := func(id, nodeID, initiator string, category model.MovementType) {
		require.NoError(t, s.InsertMovement(s.DB(), &model.Movement{
			ID:        id,
			Network:   "base",
			NetworkID: "8453",
			NodeID:    nodeID,
			Category:  category,
			Initiator: initiator,
			When:      1000,
		}))
	}
	seed("mv1", "100", "0xaaa", model.MovementAgentMajority)
	seed("mv2", "100", "0xbbb", model.MovementEnergeticMajority)
	seed("mv3", "200", "0xaaa", model.MovementAgentMajority)

	_, total, err := s.ListMovements(MovementFilter{NodeID: "100"}, Pagination{})
	require.NoError(t, err)
	require.Equal(t, 2, total)

	movements, total, err := s.ListMovements(MovementFilter{Initiator: "0xAAA"}, Pagination{})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Equal(t, "0xaaa", movements[0].Initiator)

	_, total, err = s.ListMovements(MovementFilter{
		Category: fmt.Sprintf("%d", model.MovementEnergeticMajority),
	}, Pagination{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
}

func TestSearch_AcrossEntities(t *testing.T) {
	s := newTestStore(t)

	seedQueryNode(t, s, "2718000", "base", nil)
	require.NoError(t, s.InsertMembrane(s.DB(), &model.Membrane{
		ID: "m1", Network: "base", NetworkID: "8453", MembraneID: "2718999",
		Creator: "0xaaa", Tokens: []string{}, Balances: []string{}, CreatedAt: 1000,
	}))
	require.NoError(t, s.InsertMembership(s.DB(), &model.Membership{
		ID: "mem1", Network: "base", NetworkID: "8453", NodeID: "2718000",
		Who: "0x2718aa", When: 1000, IsValid: true,
	}))

	results, err := s.Search("2718", "", 20)
	require.NoError(t, err)
	require.Len(t, results, 3)

	kinds := make(map[string]bool)
	for _, r := range results {
		kinds[r.Type] = true
	}
	require.True(t, kinds["node"])
	require.True(t, kinds["membrane"])
	require.True(t, kinds["user"])

	results, err = s.Search("2718", "node", 20)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "node", results[0].Type)
}

func TestGetStats_NetworkScoped(t *testing.T) {
	s := newTestStore(t)

	seedQueryNode(t, s, "100", "base", nil)
	seedQueryNode(t, s, "200", "optimismsepolia", func(n *model.Node) {
		n.NetworkID = "11155420"
	})
	require.NoError(t, s.InsertEvent(s.DB(), testEvent("e1", 10)))

	stats, err := s.GetStats("")
	require.NoError(t, err)
	require.Equal(t, 2, stats.Nodes)
	require.Equal(t, 1, stats.Events)

	stats, err = s.GetStats("8453")
	require.NoError(t, err)
	require.Equal(t, 1, stats.Nodes)
}

func TestListChatMessages_BeforeCursor(t *testing.T) {
	s := newTestStore(t)

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.InsertChatMessage(s.DB(), &model.ChatMessage{
			ID:        fmt.Sprintf("chat-%d", i),
			Network:   "base",
			NodeID:    "100",
			Sender:    "0xabc",
			Content:   fmt.Sprintf("message %d", i),
			Timestamp: int64(1000 * i),
		}))
	}

	messages, err := s.ListChatMessages("base", "100", 10, 0)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	require.Equal(t, "chat-3", messages[0].ID) // newest first

	messages, err = s.ListChatMessages("base", "100", 10, 3000)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "chat-2", messages[0].ID)
}
