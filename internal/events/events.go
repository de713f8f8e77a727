// Package events turns raw chain logs into typed events. Decoding and
// validation happen exactly once here; projectors downstream operate on
// trusted, normalized data (decimal-string numerics, lowercase addresses).
package events

import (
	"github.com/ethereum/go-ethereum/common"
)

// Meta carries the log-level context shared by every decoded event.
type Meta struct {
	// EventID is the deterministic idempotency key for this log
	EventID string
	// Network is the canonical network name
	Network string
	// NetworkID is the chain id as a decimal string
	NetworkID string

	BlockNumber uint64
	BlockHash   common.Hash
	TxHash      common.Hash
	LogIndex    uint

	// Timestamp is the block timestamp in unix seconds, filled in by the
	// delivery pipeline from the block header.
	Timestamp int64
}

// Decoded is the tagged union of every event the indexer understands.
type Decoded interface {
	// EventName returns the on-chain event name.
	EventName() string
}

type NewRootNode struct {
	NodeID  string
	Creator string
}

func (NewRootNode) EventName() string { return "NewRootNode" }

type NewNode struct {
	NodeID   string
	ParentID string
	Creator  string
}

func (NewNode) EventName() string { return "NewNode" }

type MembershipMinted struct {
	NodeID string
	Who    string
}

func (MembershipMinted) EventName() string { return "MembershipMinted" }

type TransferSingle struct {
	Operator string
	From     string
	To       string
	TokenID  string
	Value    string
}

func (TransferSingle) EventName() string { return "TransferSingle" }

type TransferBatch struct {
	Operator string
	From     string
	To       string
	TokenIDs []string
	Values   []string
}

func (TransferBatch) EventName() string { return "TransferBatch" }

type UserNodeSignal struct {
	NodeID  string
	Sender  string
	Signals []string
	// Strength is the signaler's declared weight; "0" means the contract
	// left it to the indexer to enrich from the current balance.
	Strength string
}

func (UserNodeSignal) EventName() string { return "UserNodeSignal" }

type ConfigSignal struct {
	NodeID string
	Origin string
	Option string
}

func (ConfigSignal) EventName() string { return "ConfigSignal" }

type CreatedEndpoint struct {
	NodeID   string
	Endpoint string
	Owner    string
}

func (CreatedEndpoint) EventName() string { return "CreatedEndpoint" }

type MembraneChanged struct {
	NodeID           string
	PreviousMembrane string
	NewMembrane      string
}

func (MembraneChanged) EventName() string { return "MembraneChanged" }

type InflationRateChanged struct {
	NodeID  string
	OldRate string
	NewRate string
}

func (InflationRateChanged) EventName() string { return "InflationRateChanged" }

type SharesGenerated struct {
	NodeID string
	Amount string
}

func (SharesGenerated) EventName() string { return "SharesGenerated" }

type Minted struct {
	NodeID string
	To     string
	Amount string
}

func (Minted) EventName() string { return "Minted" }

type Burned struct {
	NodeID string
	From   string
	Amount string
}

func (Burned) EventName() string { return "Burned" }

type Signaled struct {
	NodeID string
	Who    string
	Value  string
}

func (Signaled) EventName() string { return "Signaled" }

type Resignaled struct {
	NodeID string
	Who    string
	Value  string
}

func (Resignaled) EventName() string { return "Resignaled" }

type MembraneSignal struct {
	NodeID     string
	Who        string
	MembraneID string
}

func (MembraneSignal) EventName() string { return "MembraneSignal" }

type InflationSignal struct {
	NodeID string
	Who    string
	Rate   string
}

func (InflationSignal) EventName() string { return "InflationSignal" }

type NewMovementCreated struct {
	NodeID       string
	Initiator    string
	MovementHash string
	Category     uint8
	ExeAccount   string
	ViaNode      string
	ExpiresAt    int64
	Description  string
}

func (NewMovementCreated) EventName() string { return "NewMovementCreated" }

type QueueExecuted struct {
	QueueHash string
	NodeID    string
}

func (QueueExecuted) EventName() string { return "QueueExecuted" }

type NewSignaturesSubmitted struct {
	QueueHash    string
	MovementHash string
	Signer       string
	Signature    string
}

func (NewSignaturesSubmitted) EventName() string { return "NewSignaturesSubmitted" }

type SignatureRemoved struct {
	QueueHash string
	Signer    string
}

func (SignatureRemoved) EventName() string { return "SignatureRemoved" }

type WillWeSet struct {
	Implementation string
}

func (WillWeSet) EventName() string { return "WillWeSet" }

type MembraneCreated struct {
	Creator    string
	MembraneID string
	CID        string
}

func (MembraneCreated) EventName() string { return "MembraneCreated" }
