package contracts

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/willwe-labs/willwe-indexer/pkg/config"
)

const (
	testWillWe    = "0x1111111111111111111111111111111111111111"
	testExecution = "0x2222222222222222222222222222222222222222"
	testMembranes = "0x3333333333333333333333333333333333333333"
)

func testNetworks() []config.NetworkConfig {
	return []config.NetworkConfig{{
		Name:    "base",
		ChainID: 8453,
		Contracts: map[string]string{
			RoleWillWe:    testWillWe,
			RoleExecution: testExecution,
			RoleMembranes: testMembranes,
		},
	}}
}

func TestParseABIs(t *testing.T) {
	abis, err := ParseABIs()
	require.NoError(t, err)

	require.NotEmpty(t, abis.WillWe.Events)
	require.NotEmpty(t, abis.Execution.Events)
	require.NotEmpty(t, abis.Membranes.Events)

	_, ok := abis.WillWe.Events["NewNode"]
	require.True(t, ok)
	_, ok = abis.WillWe.Methods["getNodeData"]
	require.True(t, ok)
}

func TestNewRegistry(t *testing.T) {
	registry, err := NewRegistry(testNetworks())
	require.NoError(t, err)

	deployment, ok := registry.Deployment("base")
	require.True(t, ok)
	require.Equal(t, common.HexToAddress(testWillWe), deployment.WillWe)

	_, ok = registry.Deployment("unknown")
	require.False(t, ok)

	addr, ok := deployment.AddressForRole(RoleMembranes)
	require.True(t, ok)
	require.Equal(t, common.HexToAddress(testMembranes), addr)

	_, ok = deployment.AddressForRole("treasury")
	require.False(t, ok)
}

func TestNewRegistry_BadAddresses(t *testing.T) {
	_, err := NewRegistry([]config.NetworkConfig{{
		Name: "base",
		Contracts: map[string]string{
			RoleWillWe:    "not-an-address",
			RoleExecution: testExecution,
			RoleMembranes: testMembranes,
		},
	}})
	require.ErrorContains(t, err, "invalid contract address")

	_, err = NewRegistry([]config.NetworkConfig{{
		Name: "base",
		Contracts: map[string]string{
			RoleWillWe: testWillWe,
		},
	}})
	require.ErrorContains(t, err, "missing contract address")
}

func TestEventByTopic(t *testing.T) {
	registry, err := NewRegistry(testNetworks())
	require.NoError(t, err)

	newNode := registry.ABIs().WillWe.Events["NewNode"]
	ref, ok := registry.EventByTopic(newNode.ID)
	require.True(t, ok)
	require.Equal(t, RoleWillWe, ref.Role)
	require.Equal(t, "NewNode", ref.Name)

	_, ok = registry.EventByTopic(common.HexToHash("0xdeadbeef"))
	require.False(t, ok)
}

func TestEventsToIndex(t *testing.T) {
	registry, err := NewRegistry(testNetworks())
	require.NoError(t, err)

	events, err := registry.EventsToIndex("base")
	require.NoError(t, err)
	require.Len(t, events, 3)

	willweTopics := events[common.HexToAddress(testWillWe)]
	require.NotEmpty(t, willweTopics)
	newNode := registry.ABIs().WillWe.Events["NewNode"]
	_, ok := willweTopics[newNode.ID]
	require.True(t, ok)

	_, err = registry.EventsToIndex("unknown")
	require.ErrorContains(t, err, "no contract deployment")
}
