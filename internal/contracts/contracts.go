// Package contracts holds the embedded ABIs of the governance contracts and
// a per-network registry of their deployment addresses.
package contracts

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/willwe-labs/willwe-indexer/pkg/config"
)

//go:embed abi/willwe.json
var willweABIJSON string

//go:embed abi/execution.json
var executionABIJSON string

//go:embed abi/membranes.json
var membranesABIJSON string

// Contract roles as they appear in configuration.
const (
	RoleWillWe    = "willwe"
	RoleExecution = "execution"
	RoleMembranes = "membranes"
)

// ParsedABIs holds the parsed ABI of each governance contract.
type ParsedABIs struct {
	WillWe    abi.ABI
	Execution abi.ABI
	Membranes abi.ABI
}

// EventRef identifies one event of one contract role.
type EventRef struct {
	Role string
	Name string
}

// Deployment is the set of contract addresses on one network.
type Deployment struct {
	WillWe    common.Address
	Execution common.Address
	Membranes common.Address
}

// AddressForRole returns the deployment address of the given contract role.
func (d Deployment) AddressForRole(role string) (common.Address, bool) {
	switch role {
	case RoleWillWe:
		return d.WillWe, true
	case RoleExecution:
		return d.Execution, true
	case RoleMembranes:
		return d.Membranes, true
	default:
		return common.Address{}, false
	}
}

// Registry maps networks to contract deployments and topic hashes to events.
type Registry struct {
	abis         ParsedABIs
	deployments  map[string]Deployment
	eventByTopic map[common.Hash]EventRef
}

// NewRegistry parses the embedded ABIs and builds the per-network deployment
// table from configuration.
func NewRegistry(networks []config.NetworkConfig) (*Registry, error) {
	abis, err := ParseABIs()
	if err != nil {
		return nil, err
	}

	r := &Registry{
		abis:         abis,
		deployments:  make(map[string]Deployment),
		eventByTopic: make(map[common.Hash]EventRef),
	}

	for role, contractABI := range map[string]abi.ABI{
		RoleWillWe:    abis.WillWe,
		RoleExecution: abis.Execution,
		RoleMembranes: abis.Membranes,
	} {
		for name, event := range contractABI.Events {
			r.eventByTopic[event.ID] = EventRef{Role: role, Name: name}
		}
	}

	for _, network := range networks {
		deployment, err := deploymentFromConfig(network)
		if err != nil {
			return nil, fmt.Errorf("network %s: %w", network.Name, err)
		}
		r.deployments[network.Name] = deployment
	}

	return r, nil
}

// ParseABIs parses the embedded contract ABIs.
func ParseABIs() (ParsedABIs, error) {
	willwe, err := abi.JSON(strings.NewReader(willweABIJSON))
	if err != nil {
		return ParsedABIs{}, fmt.Errorf("failed to parse willwe ABI: %w", err)
	}

	execution, err := abi.JSON(strings.NewReader(executionABIJSON))
	if err != nil {
		return ParsedABIs{}, fmt.Errorf("failed to parse execution ABI: %w", err)
	}

	membranes, err := abi.JSON(strings.NewReader(membranesABIJSON))
	if err != nil {
		return ParsedABIs{}, fmt.Errorf("failed to parse membranes ABI: %w", err)
	}

	return ParsedABIs{WillWe: willwe, Execution: execution, Membranes: membranes}, nil
}

func deploymentFromConfig(network config.NetworkConfig) (Deployment, error) {
	var deployment Deployment

	for role, target := range map[string]*common.Address{
		RoleWillWe:    &deployment.WillWe,
		RoleExecution: &deployment.Execution,
		RoleMembranes: &deployment.Membranes,
	} {
		raw, ok := network.Contracts[role]
		if !ok || raw == "" {
			return Deployment{}, fmt.Errorf("missing contract address for role %q", role)
		}
		if !common.IsHexAddress(raw) {
			return Deployment{}, fmt.Errorf("invalid contract address %q for role %q", raw, role)
		}
		*target = common.HexToAddress(raw)
	}

	return deployment, nil
}

// ABIs returns the parsed contract ABIs.
func (r *Registry) ABIs() ParsedABIs {
	return r.abis
}

// Deployment returns the contract addresses deployed on the given network.
func (r *Registry) Deployment(network string) (Deployment, bool) {
	d, ok := r.deployments[network]
	return d, ok
}

// EventByTopic resolves a log's topic0 to the contract role and event name
// that emitted it.
func (r *Registry) EventByTopic(topic common.Hash) (EventRef, bool) {
	ref, ok := r.eventByTopic[topic]
	return ref, ok
}

// ABIForRole returns the parsed ABI for a contract role.
func (r *Registry) ABIForRole(role string) (abi.ABI, bool) {
	switch role {
	case RoleWillWe:
		return r.abis.WillWe, true
	case RoleExecution:
		return r.abis.Execution, true
	case RoleMembranes:
		return r.abis.Membranes, true
	default:
		return abi.ABI{}, false
	}
}

// EventsToIndex returns, per contract address on the given network, the set
// of event topic hashes the indexer subscribes to.
func (r *Registry) EventsToIndex(network string) (map[common.Address]map[common.Hash]struct{}, error) {
	deployment, ok := r.deployments[network]
	if !ok {
		return nil, fmt.Errorf("no contract deployment configured for network %s", network)
	}

	events := make(map[common.Address]map[common.Hash]struct{})
	for role, address := range map[string]common.Address{
		RoleWillWe:    deployment.WillWe,
		RoleExecution: deployment.Execution,
		RoleMembranes: deployment.Membranes,
	} {
		contractABI, _ := r.ABIForRole(role)
		topics := make(map[common.Hash]struct{}, len(contractABI.Events))
		for _, event := range contractABI.Events {
			topics[event.ID] = struct{}{}
		}
		events[address] = topics
	}

	return events, nil
}
