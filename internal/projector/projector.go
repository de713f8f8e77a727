// Package projector maps decoded chain events onto projection-store rows.
// Each event name has exactly one handler. Handlers run inside a single
// sqlite transaction per log and are written to be idempotent: re-delivery
// of the same log is absorbed by conflict-ignore inserts and bounded
// conflict-update upserts.
package projector

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/willwe-labs/willwe-indexer/internal/common"
	"github.com/willwe-labs/willwe-indexer/internal/events"
	"github.com/willwe-labs/willwe-indexer/internal/identity"
	"github.com/willwe-labs/willwe-indexer/internal/logger"
	"github.com/willwe-labs/willwe-indexer/internal/model"
	"github.com/willwe-labs/willwe-indexer/internal/resolver"
	"github.com/willwe-labs/willwe-indexer/internal/store"
)

const movementDefaultTTL = 7 * 24 * 3600 // seconds

// zeroHash32 is the empty bytes32 as the decoder renders it.
const zeroHash32 = "0x0000000000000000000000000000000000000000000000000000000000000000"

// NodeResolver is the enrichment surface the projector needs. Implementations
// never fail; degraded defaults come back instead (see internal/resolver).
type NodeResolver interface {
	GetNodeData(ctx context.Context, network, nodeID string) *resolver.NodeState
	GetRootNodeID(ctx context.Context, network, nodeID string) string
	GetBalance(ctx context.Context, network, who, nodeID string) string
}

// Projector applies decoded events to the projection store.
type Projector struct {
	store    *store.Store
	resolver NodeResolver
	log      *logger.Logger
}

func New(s *store.Store, r NodeResolver, log *logger.Logger) *Projector {
	return &Projector{
		store:    s,
		resolver: r,
		log:      log.WithComponent(common.ComponentProjector),
	}
}

// Apply projects one decoded event inside a single transaction. A non-nil
// error means this log's projection was rolled back; the caller logs it and
// moves on to the next log, it must never halt the stream. Panics inside
// handlers are converted to errors here.
func (p *Projector) Apply(ctx context.Context, meta events.Meta, decoded events.Decoded) (err error) {
	if decoded == nil {
		projectionSkipped.WithLabelValues(meta.Network).Inc()
		return nil
	}

	tx, err := p.store.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("projector panic on %s: %v", decoded.EventName(), r)
		}
		if err != nil {
			_ = tx.Rollback()
			projectionErrors.WithLabelValues(meta.Network, decoded.EventName()).Inc()
			return
		}
		if err = tx.Commit(); err != nil {
			err = fmt.Errorf("failed to commit %s: %w", meta.EventID, err)
			projectionErrors.WithLabelValues(meta.Network, decoded.EventName()).Inc()
			return
		}
		eventsProjected.WithLabelValues(meta.Network, decoded.EventName()).Inc()
	}()

	switch ev := decoded.(type) {
	case events.NewRootNode:
		err = p.applyNodeCreated(ctx, tx, meta, ev.NodeID, "", ev.Creator, true)
	case events.NewNode:
		err = p.applyNodeCreated(ctx, tx, meta, ev.NodeID, ev.ParentID, ev.Creator, false)
	case events.MembershipMinted:
		err = p.applyMembershipMinted(tx, meta, ev)
	case events.TransferSingle:
		err = p.applyTransferSingle(tx, meta, ev)
	case events.TransferBatch:
		err = p.applyTransferBatch(tx, meta, ev)
	case events.UserNodeSignal:
		err = p.applyUserNodeSignal(ctx, tx, meta, ev)
	case events.ConfigSignal:
		err = p.applyConfigSignal(tx, meta, ev)
	case events.CreatedEndpoint:
		err = p.applyCreatedEndpoint(tx, meta, ev)
	case events.MembraneChanged:
		err = p.applyMembraneChanged(tx, meta, ev)
	case events.InflationRateChanged:
		err = p.applyInflationRateChanged(tx, meta, ev)
	case events.SharesGenerated:
		err = p.applySharesGenerated(tx, meta, ev)
	case events.Minted:
		err = p.applySupplyDelta(tx, meta, ev.NodeID, ev.To, ev.Amount, false)
	case events.Burned:
		err = p.applySupplyDelta(tx, meta, ev.NodeID, ev.From, ev.Amount, true)
	case events.Signaled:
		err = p.applyGenericSignal(tx, meta, ev.NodeID, ev.Who, ev.Value, "Signaled")
	case events.Resignaled:
		err = p.applyGenericSignal(tx, meta, ev.NodeID, ev.Who, ev.Value, "Resignaled")
	case events.MembraneSignal:
		err = p.applyMembraneSignal(ctx, tx, meta, ev)
	case events.InflationSignal:
		err = p.applyInflationSignal(ctx, tx, meta, ev)
	case events.NewMovementCreated:
		err = p.applyMovementCreated(tx, meta, ev)
	case events.QueueExecuted:
		err = p.applyQueueExecuted(tx, meta, ev)
	case events.NewSignaturesSubmitted:
		err = p.applySignaturesSubmitted(tx, meta, ev)
	case events.SignatureRemoved:
		err = p.applySignatureRemoved(tx, meta, ev)
	case events.WillWeSet:
		err = p.auditEvent(tx, meta, meta.EventID, "", ev.Implementation,
			"WillWeSet", model.EventTypeImplementationSet)
	case events.MembraneCreated:
		err = p.applyMembraneCreated(tx, meta, ev)
	default:
		p.log.Warnw("no handler for event", "event", decoded.EventName(), "id", meta.EventID)
		projectionSkipped.WithLabelValues(meta.Network).Inc()
	}

	return err
}

// auditEvent writes one append-only audit row. Conflict-ignore makes
// re-delivery a no-op.
func (p *Projector) auditEvent(
	tx *sql.Tx, meta events.Meta, id, nodeID, who, name string, eventType model.EventType,
) error {
	return p.store.InsertEvent(tx, &model.Event{
		ID:                 id,
		Network:            meta.Network,
		NetworkID:          meta.NetworkID,
		NodeID:             nodeID,
		RootNodeID:         p.rootOf(tx, meta.Network, nodeID),
		Who:                who,
		EventName:          name,
		EventType:          eventType,
		When:               meta.Timestamp,
		CreatedBlockNumber: meta.BlockNumber,
	})
}

// rootOf returns the stored root of a node, or "0" when the node row is
// missing or has an empty path. No RPC here: audit rows use whatever the
// projection already knows.
func (p *Projector) rootOf(tx *sql.Tx, network, nodeID string) string {
	if nodeID == "" {
		return "0"
	}
	node, err := p.store.GetNode(tx, network, nodeID)
	if err != nil || len(node.RootPath) == 0 {
		return "0"
	}
	return node.RootPath[0]
}

func (p *Projector) applyNodeCreated(
	ctx context.Context, tx *sql.Tx, meta events.Meta, nodeID, parentID, creator string, isRoot bool,
) error {
	if nodeID == "" {
		return nil
	}

	state := p.resolver.GetNodeData(ctx, meta.Network, nodeID)
	if state.Degraded {
		p.log.Debugw("node created with degraded state", "node", nodeID, "network", meta.Network)
	}

	node := &model.Node{
		ID:                     nodeID,
		Network:                meta.Network,
		NetworkID:              meta.NetworkID,
		Inflation:              state.Inflation,
		Reserve:                state.Reserve,
		Budget:                 state.Budget,
		RootValuationBudget:    state.RootValuationBudget,
		RootValuationReserve:   state.RootValuationReserve,
		MembraneID:             state.MembraneID,
		EligibilityPerSec:      state.EligibilityPerSec,
		LastRedistributionTime: state.LastRedistributionTime,
		TotalSupply:            state.TotalSupply,
		MembraneMeta:           state.MembraneMeta,
		MembersOfNode:          state.MembersOfNode,
		ChildrenNodes:          state.ChildrenNodes,
		MovementEndpoints:      []string{},
		RootPath:               state.RootPath,
		Signals:                state.Signals,
		CreatedAt:              meta.Timestamp,
		UpdatedAt:              meta.Timestamp,
		CreatedBlockNumber:     meta.BlockNumber,
	}
	if len(node.RootPath) == 0 {
		node.RootPath = []string{nodeID}
	}

	// A placeholder row may already exist from an earlier out-of-order
	// event; refresh the resolved aggregate fields on conflict.
	if err := p.store.UpsertNode(tx, node,
		"inflation", "reserve", "budget", "root_valuation_budget", "root_valuation_reserve",
		"membrane_id", "eligibility_per_sec", "last_redistribution_time", "total_supply",
		"membrane_meta", "members_of_node", "children_nodes", "root_path", "signals",
	); err != nil {
		return err
	}

	name, eventType := "NewNode", model.EventTypeNodeCreated
	if isRoot {
		name, eventType = "NewRootNode", model.EventTypeRootNodeCreated
	} else if parentID != "" {
		name = fmt.Sprintf("NewNode (parent %s)", parentID)
	}

	return p.auditEvent(tx, meta, meta.EventID, nodeID, creator, name, eventType)
}

func (p *Projector) applyMembershipMinted(tx *sql.Tx, meta events.Meta, ev events.MembershipMinted) error {
	if ev.NodeID == "" || ev.Who == "" {
		return nil
	}

	if err := p.store.EnsureNode(tx, meta.Network, meta.NetworkID, ev.NodeID, meta.Timestamp, meta.BlockNumber); err != nil {
		return err
	}

	membership := &model.Membership{
		ID:                 identity.DerivedID(ev.NodeID, ev.Who),
		Network:            meta.Network,
		NetworkID:          meta.NetworkID,
		NodeID:             ev.NodeID,
		Who:                ev.Who,
		When:               meta.Timestamp,
		IsValid:            true,
		CreatedBlockNumber: meta.BlockNumber,
	}
	if err := p.store.InsertMembership(tx, membership); err != nil {
		return err
	}

	return p.auditEvent(tx, meta, meta.EventID, ev.NodeID, ev.Who,
		"MembershipMinted", model.EventTypeMembership)
}

// transferKind classifies an ERC1155 transfer leg against the zero-address
// sentinel.
func transferKind(from, to string) (string, model.EventType, string) {
	switch {
	case from == model.ZeroAddress:
		return "Mint", model.EventTypeMint, to
	case to == model.ZeroAddress:
		return "Burn", model.EventTypeBurn, from
	default:
		return "Transfer", model.EventTypeTransfer, from
	}
}

func (p *Projector) applyTransferSingle(tx *sql.Tx, meta events.Meta, ev events.TransferSingle) error {
	if ev.TokenID == "" {
		return nil
	}

	name, eventType, who := transferKind(ev.From, ev.To)
	return p.auditEvent(tx, meta, meta.EventID, ev.TokenID, who,
		fmt.Sprintf("%s %s", name, ev.Value), eventType)
}

func (p *Projector) applyTransferBatch(tx *sql.Tx, meta events.Meta, ev events.TransferBatch) error {
	name, eventType, who := transferKind(ev.From, ev.To)
	for i, tokenID := range ev.TokenIDs {
		if tokenID == "" {
			continue
		}
		value := "0"
		if i < len(ev.Values) {
			value = ev.Values[i]
		}
		if err := p.auditEvent(tx, meta, identity.IndexedID(meta.EventID, i), tokenID, who,
			fmt.Sprintf("%s %s (batch)", name, value), eventType); err != nil {
			return err
		}
	}
	return nil
}

func (p *Projector) applyUserNodeSignal(ctx context.Context, tx *sql.Tx, meta events.Meta, ev events.UserNodeSignal) error {
	if ev.NodeID == "" || ev.Sender == "" {
		return nil
	}

	if err := p.store.EnsureNode(tx, meta.Network, meta.NetworkID, ev.NodeID, meta.Timestamp, meta.BlockNumber); err != nil {
		return err
	}

	// The contract emits strength 0 when the signaler's live balance is to
	// be used; resolve it, degraded default "0".
	strength := ev.Strength
	if strength == "" || strength == "0" {
		strength = p.resolver.GetBalance(ctx, meta.Network, ev.Sender, ev.NodeID)
	}

	// signals[0] = membrane preference, signals[1] = inflation preference,
	// the rest are redistribution weights.
	if len(ev.Signals) > 0 && ev.Signals[0] != "0" {
		if err := p.replaceMembranePreference(tx, meta, ev.NodeID, ev.Sender, ev.Signals[0], strength,
			identity.DerivedID(meta.EventID, "membrane")); err != nil {
			return err
		}
	}
	if len(ev.Signals) > 1 && ev.Signals[1] != "0" {
		if err := p.replaceInflationPreference(tx, meta, ev.NodeID, ev.Sender, ev.Signals[1], strength,
			identity.DerivedID(meta.EventID, "inflation")); err != nil {
			return err
		}
	}
	if len(ev.Signals) > 2 {
		prefs, err := json.Marshal(ev.Signals[2:])
		if err != nil {
			prefs = []byte("[]")
		}
		if err := p.store.InsertNodeSignal(tx, &model.NodeSignal{
			ID:                 identity.DerivedID(meta.EventID, "redistribution"),
			Network:            meta.Network,
			NetworkID:          meta.NetworkID,
			NodeID:             ev.NodeID,
			Who:                ev.Sender,
			SignalType:         model.SignalTypeRedistribution,
			SignalValue:        string(prefs),
			CurrentPrevalence:  strength,
			When:               meta.Timestamp,
			CreatedBlockNumber: meta.BlockNumber,
		}); err != nil {
			return err
		}
	}

	return p.auditEvent(tx, meta, meta.EventID, ev.NodeID, ev.Sender,
		"UserNodeSignal", model.EventTypeUserSignal)
}

// replaceMembranePreference deactivates any earlier active membrane signal
// from the same user and inserts the new one, plus a historical snapshot.
// Runs inside the event's transaction so at most one row stays active.
func (p *Projector) replaceMembranePreference(
	tx *sql.Tx, meta events.Meta, nodeID, who, membraneID, strength, id string,
) error {
	if err := p.store.ReplaceMembraneSignal(tx, &model.MembraneSignal{
		ID:                 id,
		Network:            meta.Network,
		NetworkID:          meta.NetworkID,
		NodeID:             nodeID,
		Who:                who,
		MembraneID:         membraneID,
		Strength:           strength,
		When:               meta.Timestamp,
		IsActive:           true,
		CreatedBlockNumber: meta.BlockNumber,
	}); err != nil {
		return err
	}

	return p.store.InsertNodeSignal(tx, &model.NodeSignal{
		ID:                 identity.DerivedID(id, "snapshot"),
		Network:            meta.Network,
		NetworkID:          meta.NetworkID,
		NodeID:             nodeID,
		Who:                who,
		SignalType:         model.SignalTypeMembrane,
		SignalValue:        membraneID,
		CurrentPrevalence:  strength,
		When:               meta.Timestamp,
		CreatedBlockNumber: meta.BlockNumber,
	})
}

func (p *Projector) replaceInflationPreference(
	tx *sql.Tx, meta events.Meta, nodeID, who, rate, strength, id string,
) error {
	if err := p.store.ReplaceInflationSignal(tx, &model.InflationSignal{
		ID:                 id,
		Network:            meta.Network,
		NetworkID:          meta.NetworkID,
		NodeID:             nodeID,
		Who:                who,
		InflationValue:     rate,
		Strength:           strength,
		When:               meta.Timestamp,
		IsActive:           true,
		CreatedBlockNumber: meta.BlockNumber,
	}); err != nil {
		return err
	}

	return p.store.InsertNodeSignal(tx, &model.NodeSignal{
		ID:                 identity.DerivedID(id, "snapshot"),
		Network:            meta.Network,
		NetworkID:          meta.NetworkID,
		NodeID:             nodeID,
		Who:                who,
		SignalType:         model.SignalTypeInflation,
		SignalValue:        rate,
		CurrentPrevalence:  strength,
		When:               meta.Timestamp,
		CreatedBlockNumber: meta.BlockNumber,
	})
}

func (p *Projector) applyConfigSignal(tx *sql.Tx, meta events.Meta, ev events.ConfigSignal) error {
	if ev.NodeID == "" {
		return nil
	}

	if err := p.store.InsertNodeSignal(tx, &model.NodeSignal{
		ID:                 identity.DerivedID(meta.EventID, "config"),
		Network:            meta.Network,
		NetworkID:          meta.NetworkID,
		NodeID:             ev.NodeID,
		Who:                ev.Origin,
		SignalType:         model.SignalTypeConfig,
		SignalValue:        ev.Option,
		CurrentPrevalence:  "0",
		When:               meta.Timestamp,
		CreatedBlockNumber: meta.BlockNumber,
	}); err != nil {
		return err
	}

	return p.auditEvent(tx, meta, meta.EventID, ev.NodeID, ev.Origin,
		"ConfigSignal", model.EventTypeConfigSignal)
}

func (p *Projector) applyCreatedEndpoint(tx *sql.Tx, meta events.Meta, ev events.CreatedEndpoint) error {
	if ev.NodeID == "" || ev.Endpoint == "" {
		return nil
	}

	if err := p.store.EnsureNode(tx, meta.Network, meta.NetworkID, ev.NodeID, meta.Timestamp, meta.BlockNumber); err != nil {
		return err
	}

	endpointType := model.EndpointTypeUser
	if ev.Owner == model.ZeroAddress {
		endpointType = model.EndpointTypeMovement
	}

	if err := p.store.InsertEndpoint(tx, &model.Endpoint{
		ID:                 ev.Endpoint,
		Network:            meta.Network,
		NetworkID:          meta.NetworkID,
		NodeID:             ev.NodeID,
		Address:            ethcommon.HexToAddress(ev.Endpoint),
		Owner:              ethcommon.HexToAddress(ev.Owner),
		EndpointType:       endpointType,
		CreatedAt:          meta.Timestamp,
		CreatedBlockNumber: meta.BlockNumber,
	}); err != nil {
		return err
	}

	return p.auditEvent(tx, meta, meta.EventID, ev.NodeID, ev.Owner,
		"CreatedEndpoint", model.EventTypeEndpointCreated)
}

func (p *Projector) applyMembraneChanged(tx *sql.Tx, meta events.Meta, ev events.MembraneChanged) error {
	if ev.NodeID == "" {
		return nil
	}

	if err := p.store.EnsureNode(tx, meta.Network, meta.NetworkID, ev.NodeID, meta.Timestamp, meta.BlockNumber); err != nil {
		return err
	}
	if err := p.store.SetNodeField(tx, meta.Network, ev.NodeID, "membrane_id", ev.NewMembrane, meta.Timestamp); err != nil {
		return err
	}

	if err := p.store.InsertNodeSignal(tx, &model.NodeSignal{
		ID:                 identity.DerivedID(meta.EventID, "membrane-changed"),
		Network:            meta.Network,
		NetworkID:          meta.NetworkID,
		NodeID:             ev.NodeID,
		Who:                model.ZeroAddress,
		SignalType:         model.SignalTypeMembrane,
		SignalValue:        ev.NewMembrane,
		CurrentPrevalence:  "0",
		When:               meta.Timestamp,
		CreatedBlockNumber: meta.BlockNumber,
	}); err != nil {
		return err
	}

	return p.auditEvent(tx, meta, meta.EventID, ev.NodeID, "",
		fmt.Sprintf("MembraneChanged %s -> %s", ev.PreviousMembrane, ev.NewMembrane),
		model.EventTypeMembraneChanged)
}

func (p *Projector) applyInflationRateChanged(tx *sql.Tx, meta events.Meta, ev events.InflationRateChanged) error {
	if ev.NodeID == "" {
		return nil
	}

	if err := p.store.EnsureNode(tx, meta.Network, meta.NetworkID, ev.NodeID, meta.Timestamp, meta.BlockNumber); err != nil {
		return err
	}
	if err := p.store.SetNodeField(tx, meta.Network, ev.NodeID, "inflation", ev.NewRate, meta.Timestamp); err != nil {
		return err
	}

	if err := p.store.InsertNodeSignal(tx, &model.NodeSignal{
		ID:                 identity.DerivedID(meta.EventID, "inflation-changed"),
		Network:            meta.Network,
		NetworkID:          meta.NetworkID,
		NodeID:             ev.NodeID,
		Who:                model.ZeroAddress,
		SignalType:         model.SignalTypeInflation,
		SignalValue:        ev.NewRate,
		CurrentPrevalence:  "0",
		When:               meta.Timestamp,
		CreatedBlockNumber: meta.BlockNumber,
	}); err != nil {
		return err
	}

	return p.auditEvent(tx, meta, meta.EventID, ev.NodeID, "",
		fmt.Sprintf("InflationRateChanged %s -> %s", ev.OldRate, ev.NewRate),
		model.EventTypeInflationChanged)
}

func (p *Projector) applySharesGenerated(tx *sql.Tx, meta events.Meta, ev events.SharesGenerated) error {
	if ev.NodeID == "" {
		return nil
	}

	if err := p.store.EnsureNode(tx, meta.Network, meta.NetworkID, ev.NodeID, meta.Timestamp, meta.BlockNumber); err != nil {
		return err
	}

	return p.auditEvent(tx, meta, meta.EventID, ev.NodeID, "",
		fmt.Sprintf("SharesGenerated %s", ev.Amount), model.EventTypeSharesGenerated)
}

// applySupplyDelta adjusts a node's total supply by a mint or burn amount.
// All arithmetic is big.Int; burns floor at zero rather than going negative.
func (p *Projector) applySupplyDelta(
	tx *sql.Tx, meta events.Meta, nodeID, who, amount string, burn bool,
) error {
	if nodeID == "" {
		return nil
	}

	if err := p.store.EnsureNode(tx, meta.Network, meta.NetworkID, nodeID, meta.Timestamp, meta.BlockNumber); err != nil {
		return err
	}

	node, err := p.store.GetNode(tx, meta.Network, nodeID)
	if err != nil {
		return err
	}

	current, ok := new(big.Int).SetString(node.TotalSupply, 10)
	if !ok {
		current = big.NewInt(0)
	}
	delta, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		delta = big.NewInt(0)
	}

	var next *big.Int
	if burn {
		next = new(big.Int).Sub(current, delta)
		if next.Sign() < 0 {
			next = big.NewInt(0)
		}
	} else {
		next = new(big.Int).Add(current, delta)
	}

	if err := p.store.SetNodeField(tx, meta.Network, nodeID, "total_supply", next.String(), meta.Timestamp); err != nil {
		return err
	}

	name, eventType := "Minted", model.EventTypeMint
	if burn {
		name, eventType = "Burned", model.EventTypeBurn
	}
	return p.auditEvent(tx, meta, meta.EventID, nodeID, who,
		fmt.Sprintf("%s %s", name, amount), eventType)
}

func (p *Projector) applyGenericSignal(
	tx *sql.Tx, meta events.Meta, nodeID, who, value, name string,
) error {
	if nodeID == "" || who == "" {
		return nil
	}

	if err := p.store.InsertNodeSignal(tx, &model.NodeSignal{
		ID:                 identity.DerivedID(meta.EventID, "signal"),
		Network:            meta.Network,
		NetworkID:          meta.NetworkID,
		NodeID:             nodeID,
		Who:                who,
		SignalType:         model.SignalTypeGeneric,
		SignalValue:        value,
		CurrentPrevalence:  "0",
		When:               meta.Timestamp,
		CreatedBlockNumber: meta.BlockNumber,
	}); err != nil {
		return err
	}

	return p.auditEvent(tx, meta, meta.EventID, nodeID, who, name, model.EventTypeSignal)
}

func (p *Projector) applyMembraneSignal(ctx context.Context, tx *sql.Tx, meta events.Meta, ev events.MembraneSignal) error {
	if ev.NodeID == "" || ev.Who == "" {
		return nil
	}

	strength := p.resolver.GetBalance(ctx, meta.Network, ev.Who, ev.NodeID)
	if err := p.replaceMembranePreference(tx, meta, ev.NodeID, ev.Who, ev.MembraneID, strength,
		identity.DerivedID(meta.EventID, "membrane")); err != nil {
		return err
	}

	return p.auditEvent(tx, meta, meta.EventID, ev.NodeID, ev.Who,
		"MembraneSignal", model.EventTypeUserSignal)
}

func (p *Projector) applyInflationSignal(ctx context.Context, tx *sql.Tx, meta events.Meta, ev events.InflationSignal) error {
	if ev.NodeID == "" || ev.Who == "" {
		return nil
	}

	strength := p.resolver.GetBalance(ctx, meta.Network, ev.Who, ev.NodeID)
	if err := p.replaceInflationPreference(tx, meta, ev.NodeID, ev.Who, ev.Rate, strength,
		identity.DerivedID(meta.EventID, "inflation")); err != nil {
		return err
	}

	return p.auditEvent(tx, meta, meta.EventID, ev.NodeID, ev.Who,
		"InflationSignal", model.EventTypeUserSignal)
}

func (p *Projector) applyMovementCreated(tx *sql.Tx, meta events.Meta, ev events.NewMovementCreated) error {
	if ev.NodeID == "" {
		return nil
	}

	if err := p.store.EnsureNode(tx, meta.Network, meta.NetworkID, ev.NodeID, meta.Timestamp, meta.BlockNumber); err != nil {
		return err
	}

	movementID := ev.MovementHash
	if movementID == "" || movementID == zeroHash32 {
		movementID = identity.DerivedID(meta.EventID, "movement")
	}

	expiresAt := ev.ExpiresAt
	if expiresAt == 0 {
		expiresAt = meta.Timestamp + movementDefaultTTL
	}

	if err := p.store.InsertMovement(tx, &model.Movement{
		ID:                 movementID,
		Network:            meta.Network,
		NetworkID:          meta.NetworkID,
		NodeID:             ev.NodeID,
		Category:           model.MovementType(ev.Category),
		Initiator:          ev.Initiator,
		ExeAccount:         ev.ExeAccount,
		ViaNode:            ev.ViaNode,
		ExpiresAt:          expiresAt,
		Description:        ev.Description,
		When:               meta.Timestamp,
		CreatedBlockNumber: meta.BlockNumber,
	}); err != nil {
		return err
	}

	if err := p.store.InsertNodeSignal(tx, &model.NodeSignal{
		ID:                 identity.DerivedID(meta.EventID, "movement"),
		Network:            meta.Network,
		NetworkID:          meta.NetworkID,
		NodeID:             ev.NodeID,
		Who:                ev.Initiator,
		SignalType:         model.SignalTypeGeneric,
		SignalValue:        movementID,
		CurrentPrevalence:  "0",
		When:               meta.Timestamp,
		CreatedBlockNumber: meta.BlockNumber,
	}); err != nil {
		return err
	}

	return p.auditEvent(tx, meta, meta.EventID, ev.NodeID, ev.Initiator,
		fmt.Sprintf("NewMovementCreated (%s)", model.MovementType(ev.Category)),
		model.EventTypeMovementCreated)
}

func (p *Projector) applyQueueExecuted(tx *sql.Tx, meta events.Meta, ev events.QueueExecuted) error {
	if ev.QueueHash == "" {
		return nil
	}

	rows, err := p.store.SetQueueState(tx, meta.Network, ev.QueueHash, model.QueueStateExecuted)
	if err != nil {
		return err
	}
	if rows == 0 {
		p.log.Warnw("executed queue has no stored row", "queue", ev.QueueHash, "network", meta.Network)
	}

	return p.auditEvent(tx, meta, meta.EventID, ev.NodeID, "",
		"QueueExecuted", model.EventTypeQueueExecuted)
}

func (p *Projector) applySignaturesSubmitted(tx *sql.Tx, meta events.Meta, ev events.NewSignaturesSubmitted) error {
	if ev.QueueHash == "" || ev.Signer == "" {
		return nil
	}

	// Look-before-insert keeps queue creation idempotent when signatures
	// arrive before any other knowledge of the queue.
	queue, err := p.store.GetSignatureQueue(tx, meta.Network, ev.QueueHash)
	if errors.Is(err, store.ErrNotFound) {
		queue = &model.SignatureQueue{
			ID:                 ev.QueueHash,
			Network:            meta.Network,
			NetworkID:          meta.NetworkID,
			MovementID:         ev.MovementHash,
			State:              model.QueueStateInitialized,
			When:               meta.Timestamp,
			CreatedBlockNumber: meta.BlockNumber,
		}
		if err := p.store.InsertSignatureQueue(tx, queue); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if err := p.store.InsertSignature(tx, &model.Signature{
		ID:                 identity.DerivedID(ev.QueueHash, ev.Signer),
		Network:            meta.Network,
		NetworkID:          meta.NetworkID,
		QueueID:            ev.QueueHash,
		Signer:             ev.Signer,
		Signature:          ev.Signature,
		Submitted:          true,
		When:               meta.Timestamp,
		CreatedBlockNumber: meta.BlockNumber,
	}); err != nil {
		return err
	}

	// Re-submission after removal flips the existing row back on.
	if _, err := p.store.SetSignatureSubmitted(tx, meta.Network, ev.QueueHash, ev.Signer, true); err != nil {
		return err
	}

	return p.auditEvent(tx, meta, meta.EventID, queue.NodeID, ev.Signer,
		"NewSignaturesSubmitted", model.EventTypeSignatureAdded)
}

func (p *Projector) applySignatureRemoved(tx *sql.Tx, meta events.Meta, ev events.SignatureRemoved) error {
	if ev.QueueHash == "" || ev.Signer == "" {
		return nil
	}

	if _, err := p.store.SetSignatureSubmitted(tx, meta.Network, ev.QueueHash, ev.Signer, false); err != nil {
		return err
	}

	return p.auditEvent(tx, meta, meta.EventID, "", ev.Signer,
		"SignatureRemoved", model.EventTypeSignatureRemoved)
}

func (p *Projector) applyMembraneCreated(tx *sql.Tx, meta events.Meta, ev events.MembraneCreated) error {
	if ev.MembraneID == "" {
		return nil
	}

	// The same membrane id can re-appear on a forked segment; the block
	// hash in the row id keeps both visible.
	membrane := &model.Membrane{
		ID:                 fmt.Sprintf("%s-%s", ev.MembraneID, meta.BlockHash.Hex()),
		Network:            meta.Network,
		NetworkID:          meta.NetworkID,
		MembraneID:         ev.MembraneID,
		Creator:            ev.Creator,
		MetadataCID:        ev.CID,
		Tokens:             []string{},
		Balances:           []string{},
		CreatedAt:          meta.Timestamp,
		CreatedBlockNumber: meta.BlockNumber,
	}
	if err := p.store.InsertMembrane(tx, membrane); err != nil {
		return err
	}

	return p.auditEvent(tx, meta, meta.EventID, "", ev.Creator,
		"MembraneCreated", model.EventTypeMembraneCreated)
}
