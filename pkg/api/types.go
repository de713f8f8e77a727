package api

import (
	"time"

	"github.com/willwe-labs/willwe-indexer/internal/model"
	"github.com/willwe-labs/willwe-indexer/internal/store"
)

// PaginationMeta contains pagination metadata for list responses.
type PaginationMeta struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// ListResponse is the envelope every list endpoint returns.
type ListResponse struct {
	Data any            `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

// NodeSignals groups the signal views attached to a node.
type NodeSignals struct {
	Membrane  []*model.MembraneSignal  `json:"membrane"`
	Inflation []*model.InflationSignal `json:"inflation"`
	History   []*model.NodeSignal      `json:"history"`
}

// NodeDetail is the composite view returned by GET /node/{nodeId}.
type NodeDetail struct {
	Node         *model.Node         `json:"node"`
	Parent       *model.Node         `json:"parent,omitempty"`
	Children     []*model.Node       `json:"children"`
	Memberships  []*model.Membership `json:"memberships"`
	Signals      NodeSignals         `json:"signals"`
	RecentEvents []*model.Event      `json:"recentEvents"`
	Endpoints    []*model.Endpoint   `json:"endpoints"`
}

// UserDetail is the composite view returned by GET /user/{address}.
type UserDetail struct {
	Address     string              `json:"address"`
	Memberships []*model.Membership `json:"memberships"`
	Nodes       []*model.Node       `json:"nodes,omitempty"`
}

// QueueDetail is a signature queue joined with its signatures.
type QueueDetail struct {
	Queue      *model.SignatureQueue `json:"queue"`
	Signatures []*model.Signature    `json:"signatures"`
}

// MovementDetail is a movement joined with its signature queues.
type MovementDetail struct {
	Movement *model.Movement `json:"movement"`
	Queues   []QueueDetail   `json:"queues"`
}

// ChatPostRequest is the body of POST /chat/messages.
type ChatPostRequest struct {
	Network string `json:"network"`
	NodeID  string `json:"nodeId"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// ChatValidateRequest is the body of POST /chat/validate.
type ChatValidateRequest struct {
	Content string `json:"content"`
}

// ChatValidateResponse reports whether a chat message would be accepted.
type ChatValidateResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status    string       `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
	Stats     *store.Stats `json:"stats,omitempty"`
}
