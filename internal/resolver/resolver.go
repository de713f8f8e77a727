// Package resolver fetches the authoritative aggregate state of a node from
// the chain. Its one hard rule: enrichment failures never propagate. Any
// RPC error, missing deployment or malformed response degrades to a
// well-defined default so the event stream keeps moving.
package resolver

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/willwe-labs/willwe-indexer/internal/common"
	"github.com/willwe-labs/willwe-indexer/internal/contracts"
	"github.com/willwe-labs/willwe-indexer/internal/logger"
)

// ContractReader is the slice of the RPC client the resolver needs.
type ContractReader interface {
	ReadContract(ctx context.Context, address ethcommon.Address, contractABI abi.ABI,
		fn string, args ...any) ([]any, error)
}

// NodeState is the resolved aggregate state of one node. All numerics are
// decimal strings.
type NodeState struct {
	Inflation              string
	Reserve                string
	Budget                 string
	RootValuationBudget    string
	RootValuationReserve   string
	MembraneID             string
	EligibilityPerSec      string
	LastRedistributionTime string
	TotalSupply            string
	MembraneMeta           string
	MembersOfNode          []string
	ChildrenNodes          []string
	RootPath               []string
	Signals                []string

	// Degraded is true when the on-chain read failed and the zero-value
	// defaults below were substituted.
	Degraded bool
}

// DegradedNodeState is the safe default returned when the on-chain read
// fails: zeroed numerics, empty lists, and the node as its own root.
func DegradedNodeState(nodeID string) *NodeState {
	return &NodeState{
		Inflation:              "0",
		Reserve:                "0",
		Budget:                 "0",
		RootValuationBudget:    "0",
		RootValuationReserve:   "0",
		MembraneID:             "0",
		EligibilityPerSec:      "0",
		LastRedistributionTime: "0",
		TotalSupply:            "0",
		MembersOfNode:          []string{},
		ChildrenNodes:          []string{},
		RootPath:               []string{nodeID},
		Signals:                []string{},
		Degraded:               true,
	}
}

// rawNodeData mirrors the getNodeData return tuple for abi.ConvertType.
type rawNodeData struct {
	Inflation              *big.Int
	Reserve                *big.Int
	Budget                 *big.Int
	RootValuationBudget    *big.Int
	RootValuationReserve   *big.Int
	MembraneId             *big.Int //nolint:revive,stylecheck
	EligibilityPerSec      *big.Int
	LastRedistributionTime *big.Int
	TotalSupply            *big.Int
	MembraneMeta           string
	MembersOfNode          []ethcommon.Address
	ChildrenNodes          []*big.Int
	RootPath               []*big.Int
	Signals                []*big.Int
}

// Resolver reads node aggregate state through per-network contract readers.
type Resolver struct {
	readers     map[string]ContractReader
	registry    *contracts.Registry
	callTimeout time.Duration
	log         *logger.Logger
}

// NewResolver creates a resolver over the given per-network readers.
func NewResolver(
	readers map[string]ContractReader,
	registry *contracts.Registry,
	callTimeout time.Duration,
	log *logger.Logger,
) *Resolver {
	return &Resolver{
		readers:     readers,
		registry:    registry,
		callTimeout: callTimeout,
		log:         log.WithComponent(common.ComponentResolver),
	}
}

// GetNodeData resolves the full aggregate state of a node. It never fails:
// any error is logged and a degraded default comes back instead.
func (r *Resolver) GetNodeData(ctx context.Context, network, nodeID string) *NodeState {
	reader, ok := r.readers[network]
	if !ok {
		r.log.Warnf("no reader for network %s, returning degraded state for node %s", network, nodeID)
		return DegradedNodeState(nodeID)
	}

	deployment, ok := r.registry.Deployment(network)
	if !ok {
		r.log.Warnf("no contract deployment for network %s, returning degraded state for node %s",
			network, nodeID)
		return DegradedNodeState(nodeID)
	}

	id, ok := new(big.Int).SetString(nodeID, 10)
	if !ok {
		r.log.Warnf("invalid node id %q, returning degraded state", nodeID)
		return DegradedNodeState(nodeID)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	results, err := reader.ReadContract(callCtx, deployment.WillWe, r.registry.ABIs().WillWe, "getNodeData", id)
	if err != nil {
		r.log.Warnf("getNodeData(%s) failed on %s: %v", nodeID, network, err)
		return DegradedNodeState(nodeID)
	}

	if len(results) == 0 {
		r.log.Warnf("getNodeData(%s) returned empty result on %s", nodeID, network)
		return DegradedNodeState(nodeID)
	}

	raw, ok := abi.ConvertType(results[0], new(rawNodeData)).(*rawNodeData)
	if !ok || raw == nil {
		r.log.Warnf("getNodeData(%s) returned unexpected shape on %s", nodeID, network)
		return DegradedNodeState(nodeID)
	}

	state := &NodeState{
		Inflation:              bigToDecimal(raw.Inflation),
		Reserve:                bigToDecimal(raw.Reserve),
		Budget:                 bigToDecimal(raw.Budget),
		RootValuationBudget:    bigToDecimal(raw.RootValuationBudget),
		RootValuationReserve:   bigToDecimal(raw.RootValuationReserve),
		MembraneID:             bigToDecimal(raw.MembraneId),
		EligibilityPerSec:      bigToDecimal(raw.EligibilityPerSec),
		LastRedistributionTime: bigToDecimal(raw.LastRedistributionTime),
		TotalSupply:            bigToDecimal(raw.TotalSupply),
		MembraneMeta:           raw.MembraneMeta,
		MembersOfNode:          addressesToLower(raw.MembersOfNode),
		ChildrenNodes:          bigsToDecimals(raw.ChildrenNodes),
		RootPath:               bigsToDecimals(raw.RootPath),
		Signals:                bigsToDecimals(raw.Signals),
	}

	if len(state.RootPath) == 0 {
		state.RootPath = []string{nodeID}
	}

	return state
}

// GetRootNodeID returns the ultimate root ancestor of a node: rootPath[0],
// or "0" on any failure.
func (r *Resolver) GetRootNodeID(ctx context.Context, network, nodeID string) string {
	state := r.GetNodeData(ctx, network, nodeID)
	if state.Degraded || len(state.RootPath) == 0 {
		return "0"
	}
	return state.RootPath[0]
}

// GetBalance reads a user's ERC1155 balance for a node's token, used as
// signal strength. Degrades to "0" on any failure.
func (r *Resolver) GetBalance(ctx context.Context, network, who, nodeID string) string {
	reader, ok := r.readers[network]
	if !ok {
		return "0"
	}

	deployment, ok := r.registry.Deployment(network)
	if !ok {
		return "0"
	}

	id, ok := new(big.Int).SetString(nodeID, 10)
	if !ok {
		return "0"
	}

	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	results, err := reader.ReadContract(callCtx, deployment.WillWe, r.registry.ABIs().WillWe,
		"balanceOf", ethcommon.HexToAddress(who), id)
	if err != nil {
		r.log.Debugf("balanceOf(%s, %s) failed on %s: %v", who, nodeID, network, err)
		return "0"
	}

	if len(results) == 0 {
		return "0"
	}

	balance, ok := results[0].(*big.Int)
	if !ok || balance == nil {
		return "0"
	}

	return balance.String()
}

func addressesToLower(addresses []ethcommon.Address) []string {
	out := make([]string, 0, len(addresses))
	for _, a := range addresses {
		out = append(out, strings.ToLower(a.Hex()))
	}
	return out
}

func bigToDecimal(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func bigsToDecimals(values []*big.Int) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, bigToDecimal(v))
	}
	return out
}
