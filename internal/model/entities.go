package model

import "github.com/ethereum/go-ethereum/common"

// Node is one governance unit. Rows are created on the first node-creation
// event (or as zeroed placeholders when another event arrives first) and
// never deleted.
type Node struct {
	ID                     string   `meddler:"id" json:"nodeId"`
	Network                string   `meddler:"network" json:"network"`
	NetworkID              string   `meddler:"network_id" json:"networkId"`
	Inflation              string   `meddler:"inflation" json:"inflation"`
	Reserve                string   `meddler:"reserve" json:"reserve"`
	Budget                 string   `meddler:"budget" json:"budget"`
	RootValuationBudget    string   `meddler:"root_valuation_budget" json:"rootValuationBudget"`
	RootValuationReserve   string   `meddler:"root_valuation_reserve" json:"rootValuationReserve"`
	MembraneID             string   `meddler:"membrane_id" json:"membraneId"`
	EligibilityPerSec      string   `meddler:"eligibility_per_sec" json:"eligibilityPerSec"`
	LastRedistributionTime string   `meddler:"last_redistribution_time" json:"lastRedistributionTime"`
	TotalSupply            string   `meddler:"total_supply" json:"totalSupply"`
	MembraneMeta           string   `meddler:"membrane_meta" json:"membraneMeta"`
	MembersOfNode          []string `meddler:"members_of_node,jsonstrings" json:"membersOfNode"`
	ChildrenNodes          []string `meddler:"children_nodes,jsonstrings" json:"childrenNodes"`
	MovementEndpoints      []string `meddler:"movement_endpoints,jsonstrings" json:"movementEndpoints"`
	RootPath               []string `meddler:"root_path,jsonstrings" json:"rootPath"`
	Signals                []string `meddler:"signals,jsonstrings" json:"signals"`
	CreatedAt              int64    `meddler:"created_at" json:"createdAt"`
	UpdatedAt              int64    `meddler:"updated_at" json:"updatedAt"`
	CreatedBlockNumber     uint64   `meddler:"created_block_number" json:"createdBlockNumber"`
}

// Membership records one address joining one node.
type Membership struct {
	ID                 string `meddler:"id" json:"id"`
	Network            string `meddler:"network" json:"network"`
	NetworkID          string `meddler:"network_id" json:"networkId"`
	NodeID             string `meddler:"node_id" json:"nodeId"`
	Who                string `meddler:"who" json:"who"`
	When               int64  `meddler:"happened_at" json:"when"`
	IsValid            bool   `meddler:"is_valid" json:"isValid"`
	CreatedBlockNumber uint64 `meddler:"created_block_number" json:"createdBlockNumber"`
}

// Event is the append-only audit log. Every processed log writes at least
// one row here; the id doubles as the idempotency key for re-delivery.
type Event struct {
	ID                 string    `meddler:"id" json:"id"`
	Network            string    `meddler:"network" json:"network"`
	NetworkID          string    `meddler:"network_id" json:"networkId"`
	NodeID             string    `meddler:"node_id" json:"nodeId"`
	RootNodeID         string    `meddler:"root_node_id" json:"rootNodeId"`
	Who                string    `meddler:"who" json:"who"`
	EventName          string    `meddler:"event_name" json:"eventName"`
	EventType          EventType `meddler:"event_type" json:"eventType"`
	When               int64     `meddler:"happened_at" json:"when"`
	CreatedBlockNumber uint64    `meddler:"created_block_number" json:"createdBlockNumber"`
}

// NodeSignal is a historical snapshot of a user's declared preference.
type NodeSignal struct {
	ID                 string     `meddler:"id" json:"id"`
	Network            string     `meddler:"network" json:"network"`
	NetworkID          string     `meddler:"network_id" json:"networkId"`
	NodeID             string     `meddler:"node_id" json:"nodeId"`
	Who                string     `meddler:"who" json:"who"`
	SignalType         SignalType `meddler:"signal_type" json:"signalType"`
	SignalValue        string     `meddler:"signal_value" json:"signalValue"`
	CurrentPrevalence  string     `meddler:"current_prevalence" json:"currentPrevalence"`
	When               int64      `meddler:"happened_at" json:"when"`
	CreatedBlockNumber uint64     `meddler:"created_block_number" json:"createdBlockNumber"`
}

// MembraneSignal is a user's currently-or-previously active membrane
// preference for a node. At most one row per (node, who) is active.
type MembraneSignal struct {
	ID                 string `meddler:"id" json:"id"`
	Network            string `meddler:"network" json:"network"`
	NetworkID          string `meddler:"network_id" json:"networkId"`
	NodeID             string `meddler:"node_id" json:"nodeId"`
	Who                string `meddler:"who" json:"who"`
	MembraneID         string `meddler:"membrane_id" json:"membraneId"`
	Strength           string `meddler:"strength" json:"strength"`
	When               int64  `meddler:"happened_at" json:"when"`
	IsActive           bool   `meddler:"is_active" json:"isActive"`
	CreatedBlockNumber uint64 `meddler:"created_block_number" json:"createdBlockNumber"`
}

// InflationSignal is the inflation-rate analogue of MembraneSignal.
type InflationSignal struct {
	ID                 string `meddler:"id" json:"id"`
	Network            string `meddler:"network" json:"network"`
	NetworkID          string `meddler:"network_id" json:"networkId"`
	NodeID             string `meddler:"node_id" json:"nodeId"`
	Who                string `meddler:"who" json:"who"`
	InflationValue     string `meddler:"inflation_value" json:"inflationValue"`
	Strength           string `meddler:"strength" json:"strength"`
	When               int64  `meddler:"happened_at" json:"when"`
	IsActive           bool   `meddler:"is_active" json:"isActive"`
	CreatedBlockNumber uint64 `meddler:"created_block_number" json:"createdBlockNumber"`
}

// Movement is a proposed governance action awaiting signatures.
type Movement struct {
	ID                 string       `meddler:"id" json:"id"`
	Network            string       `meddler:"network" json:"network"`
	NetworkID          string       `meddler:"network_id" json:"networkId"`
	NodeID             string       `meddler:"node_id" json:"nodeId"`
	Category           MovementType `meddler:"category" json:"category"`
	Initiator          string       `meddler:"initiator" json:"initiator"`
	ExeAccount         string       `meddler:"exe_account" json:"exeAccount"`
	ViaNode            string       `meddler:"via_node" json:"viaNode"`
	ExpiresAt          int64        `meddler:"expires_at" json:"expiresAt"`
	Description        string       `meddler:"description" json:"description"`
	ExecutedPayload    string       `meddler:"executed_payload" json:"executedPayload"`
	When               int64        `meddler:"happened_at" json:"when"`
	CreatedBlockNumber uint64       `meddler:"created_block_number" json:"createdBlockNumber"`
}

// SignatureQueue is the multi-signature state machine backing one Movement.
type SignatureQueue struct {
	ID                 string     `meddler:"id" json:"id"`
	Network            string     `meddler:"network" json:"network"`
	NetworkID          string     `meddler:"network_id" json:"networkId"`
	NodeID             string     `meddler:"node_id" json:"nodeId"`
	MovementID         string     `meddler:"movement_id" json:"movementId"`
	State              QueueState `meddler:"state" json:"state"`
	When               int64      `meddler:"happened_at" json:"when"`
	CreatedBlockNumber uint64     `meddler:"created_block_number" json:"createdBlockNumber"`
}

// Signature is one signer's submission against a queue. Submitted flips to
// false on removal; the row itself is never deleted.
type Signature struct {
	ID                 string `meddler:"id" json:"id"`
	Network            string `meddler:"network" json:"network"`
	NetworkID          string `meddler:"network_id" json:"networkId"`
	QueueID            string `meddler:"queue_id" json:"queueId"`
	Signer             string `meddler:"signer" json:"signer"`
	Signature          string `meddler:"signature" json:"signature"`
	Submitted          bool   `meddler:"submitted" json:"submitted"`
	When               int64  `meddler:"happened_at" json:"when"`
	CreatedBlockNumber uint64 `meddler:"created_block_number" json:"createdBlockNumber"`
}

// Membrane is a reusable membership-rule definition. The row id is
// "{membraneId}-{blockHash}" so a re-emitted id on a forked chain segment
// still gets its own row.
type Membrane struct {
	ID                 string   `meddler:"id" json:"id"`
	Network            string   `meddler:"network" json:"network"`
	NetworkID          string   `meddler:"network_id" json:"networkId"`
	MembraneID         string   `meddler:"membrane_id" json:"membraneId"`
	Creator            string   `meddler:"creator" json:"creator"`
	MetadataCID        string   `meddler:"metadata_cid" json:"metadataCid"`
	Data               string   `meddler:"data" json:"data"`
	Tokens             []string `meddler:"tokens,jsonstrings" json:"tokens"`
	Balances           []string `meddler:"balances,jsonstrings" json:"balances"`
	CreatedAt          int64    `meddler:"created_at" json:"createdAt"`
	CreatedBlockNumber uint64   `meddler:"created_block_number" json:"createdBlockNumber"`
}

// Endpoint is a proxy account tied to a node.
type Endpoint struct {
	ID                 string         `meddler:"id" json:"id"`
	Network            string         `meddler:"network" json:"network"`
	NetworkID          string         `meddler:"network_id" json:"networkId"`
	NodeID             string         `meddler:"node_id" json:"nodeId"`
	Address            common.Address `meddler:"address,address" json:"address"`
	Owner              common.Address `meddler:"owner,address" json:"owner"`
	EndpointType       EndpointType   `meddler:"endpoint_type" json:"endpointType"`
	CreatedAt          int64          `meddler:"created_at" json:"createdAt"`
	CreatedBlockNumber uint64         `meddler:"created_block_number" json:"createdBlockNumber"`
}

// ChatMessage is an off-chain message attached to a node.
type ChatMessage struct {
	ID        string `meddler:"id" json:"id"`
	Network   string `meddler:"network" json:"network"`
	NodeID    string `meddler:"node_id" json:"nodeId"`
	Sender    string `meddler:"sender" json:"sender"`
	Content   string `meddler:"content" json:"content"`
	Timestamp int64  `meddler:"timestamp" json:"timestamp"`
}
