// Package model defines the projected entities the indexer derives from
// chain events. Every entity is scoped by a (network, id) composite key and
// chain-native numeric values are stored as decimal strings, so values above
// 2^63 survive storage and the JSON boundary without precision loss.
package model

// ZeroAddress is the ERC1155 mint/burn sentinel.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// EventType categorizes audit log rows.
type EventType string

const (
	EventTypeRootNodeCreated   EventType = "rootNodeCreated"
	EventTypeNodeCreated       EventType = "nodeCreated"
	EventTypeMembership        EventType = "membershipMinted"
	EventTypeMint              EventType = "mint"
	EventTypeBurn              EventType = "burn"
	EventTypeTransfer          EventType = "transfer"
	EventTypeUserSignal        EventType = "userSignal"
	EventTypeConfigSignal      EventType = "configSignal"
	EventTypeEndpointCreated   EventType = "endpointCreated"
	EventTypeMembraneChanged   EventType = "membraneChanged"
	EventTypeInflationChanged  EventType = "inflationRateChanged"
	EventTypeSharesGenerated   EventType = "sharesGenerated"
	EventTypeSignal            EventType = "signal"
	EventTypeMovementCreated   EventType = "movementCreated"
	EventTypeQueueExecuted     EventType = "queueExecuted"
	EventTypeSignatureAdded    EventType = "signatureSubmitted"
	EventTypeSignatureRemoved  EventType = "signatureRemoved"
	EventTypeMembraneCreated   EventType = "membraneCreated"
	EventTypeImplementationSet EventType = "implementationSet"
)

// MovementType is the on-chain movement category.
type MovementType uint8

const (
	MovementRevert MovementType = iota
	MovementAgentMajority
	MovementEnergeticMajority
)

func (m MovementType) String() string {
	switch m {
	case MovementRevert:
		return "Revert"
	case MovementAgentMajority:
		return "AgentMajority"
	case MovementEnergeticMajority:
		return "EnergeticMajority"
	default:
		return "Unknown"
	}
}

// QueueState is the signature queue state machine.
// Valid and Stale are contract-side states mirrored on execution events,
// not computed independently by the indexer.
type QueueState string

const (
	QueueStateNone        QueueState = "none"
	QueueStateInitialized QueueState = "initialized"
	QueueStateValid       QueueState = "valid"
	QueueStateExecuted    QueueState = "executed"
	QueueStateStale       QueueState = "stale"
)

// SignalType categorizes per-user governance signals.
type SignalType string

const (
	SignalTypeMembrane       SignalType = "membrane"
	SignalTypeInflation      SignalType = "inflation"
	SignalTypeRedistribution SignalType = "redistribution"
	SignalTypeConfig         SignalType = "config"
	SignalTypeGeneric        SignalType = "generic"
)

// EndpointType distinguishes user-owned proxies from movement-controlled ones.
type EndpointType string

const (
	EndpointTypeUser     EndpointType = "user"
	EndpointTypeMovement EndpointType = "movement"
)
