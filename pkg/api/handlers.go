package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/willwe-labs/willwe-indexer/internal/chat"
	"github.com/willwe-labs/willwe-indexer/internal/logger"
	"github.com/willwe-labs/willwe-indexer/internal/model"
	"github.com/willwe-labs/willwe-indexer/internal/store"
)

const (
	recentEventsLimit   = 20
	signalHistoryLimit  = 50
	childrenDetailLimit = 100
)

// Handler contains the HTTP handlers for the query API.
type Handler struct {
	store *store.Store
	chat  *chat.Service
	log   *logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(s *store.Store, chatSvc *chat.Service, log *logger.Logger) *Handler {
	return &Handler{
		store: s,
		chat:  chatSvc,
		log:   log,
	}
}

// GetNode returns one node together with its related entities.
// @Summary Get node detail
// @Description Retrieve a node with its parent, children, memberships, signals and recent events
// @Tags Nodes
// @Produce json
// @Param nodeId path string true "Node ID (decimal string)"
// @Param network query string false "Network name"
// @Success 200 {object} NodeDetail "Node detail"
// @Failure 404 {object} ErrorResponse "Node not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /node/{nodeId} [get]
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	nodeID := r.PathValue("nodeId")
	if nodeID == "" {
		respondError(w, http.StatusBadRequest, "node id is required")
		return
	}
	network := r.URL.Query().Get("network")

	node, err := h.store.GetNodeByID(nodeID, network)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("node '%s' not found", nodeID))
		return
	}
	if err != nil {
		h.log.Errorf("Failed to load node %s: %v", nodeID, err)
		respondError(w, http.StatusInternalServerError, "failed to load node")
		return
	}

	detail := NodeDetail{
		Node:     node,
		Children: []*model.Node{},
	}

	if parentID := parentOf(node); parentID != "" {
		parent, err := h.store.GetNodeByID(parentID, node.Network)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			h.log.Errorf("Failed to load parent of node %s: %v", nodeID, err)
			respondError(w, http.StatusInternalServerError, "failed to load node")
			return
		}
		detail.Parent = parent
	}

	for i, childID := range node.ChildrenNodes {
		if i >= childrenDetailLimit {
			break
		}
		child, err := h.store.GetNodeByID(childID, node.Network)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			h.log.Errorf("Failed to load child %s of node %s: %v", childID, nodeID, err)
			respondError(w, http.StatusInternalServerError, "failed to load node")
			return
		}
		detail.Children = append(detail.Children, child)
	}

	if detail.Memberships, err = h.store.ListMembershipsByNode(node.Network, nodeID); err != nil {
		h.log.Errorf("Failed to list memberships for node %s: %v", nodeID, err)
		respondError(w, http.StatusInternalServerError, "failed to load node")
		return
	}

	if detail.Signals.Membrane, err = h.store.ListActiveMembraneSignals(node.Network, nodeID); err != nil {
		h.log.Errorf("Failed to list membrane signals for node %s: %v", nodeID, err)
		respondError(w, http.StatusInternalServerError, "failed to load node")
		return
	}

	if detail.Signals.Inflation, err = h.store.ListActiveInflationSignals(node.Network, nodeID); err != nil {
		h.log.Errorf("Failed to list inflation signals for node %s: %v", nodeID, err)
		respondError(w, http.StatusInternalServerError, "failed to load node")
		return
	}

	if detail.Signals.History, err = h.store.ListNodeSignals(node.Network, nodeID, signalHistoryLimit); err != nil {
		h.log.Errorf("Failed to list signal history for node %s: %v", nodeID, err)
		respondError(w, http.StatusInternalServerError, "failed to load node")
		return
	}

	if detail.RecentEvents, _, err = h.store.ListEvents(
		store.EventFilter{Network: node.Network, NodeID: nodeID},
		store.Pagination{Limit: recentEventsLimit},
	); err != nil {
		h.log.Errorf("Failed to list events for node %s: %v", nodeID, err)
		respondError(w, http.StatusInternalServerError, "failed to load node")
		return
	}

	if detail.Endpoints, err = h.store.ListEndpointsByNode(node.Network, nodeID); err != nil {
		h.log.Errorf("Failed to list endpoints for node %s: %v", nodeID, err)
		respondError(w, http.StatusInternalServerError, "failed to load node")
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

// ListNodes returns nodes matching the query filters.
// @Summary List nodes
// @Description Retrieve nodes with filtering, sorting and pagination
// @Tags Nodes
// @Produce json
// @Param limit query integer false "Page size" default(50)
// @Param offset query integer false "Page offset" default(0)
// @Param network query string false "Network name"
// @Param networkId query string false "Chain ID"
// @Param createdAfter query integer false "Unix timestamp lower bound"
// @Param hasMembraneId query boolean false "Only nodes with a membrane"
// @Param sortBy query string false "Sort field" Enums(createdAt, updatedAt, totalSupply)
// @Param sortOrder query string false "Sort order" Enums(asc, desc)
// @Success 200 {object} ListResponse "Nodes"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /nodes [get]
func (h *Handler) ListNodes(w http.ResponseWriter, r *http.Request) {
	page, err := parsePagination(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := store.NodeFilter{
		Network:   r.URL.Query().Get("network"),
		NetworkID: r.URL.Query().Get("networkId"),
		SortBy:    r.URL.Query().Get("sortBy"),
	}

	if createdAfter := r.URL.Query().Get("createdAfter"); createdAfter != "" {
		filter.CreatedAfter, err = strconv.ParseInt(createdAfter, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid createdAfter: must be a unix timestamp")
			return
		}
	}

	if hasMembrane := r.URL.Query().Get("hasMembraneId"); hasMembrane != "" {
		filter.HasMembraneID, err = strconv.ParseBool(hasMembrane)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid hasMembraneId: must be a boolean")
			return
		}
	}

	if sortOrder := strings.ToLower(r.URL.Query().Get("sortOrder")); sortOrder != "" {
		if sortOrder != "asc" && sortOrder != "desc" {
			respondError(w, http.StatusBadRequest, "invalid sortOrder: must be 'asc' or 'desc'")
			return
		}
		filter.SortOrder = sortOrder
	}

	nodes, total, err := h.store.ListNodes(filter, page)
	if err != nil {
		h.log.Errorf("Failed to list nodes: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list nodes")
		return
	}

	respondList(w, nodes, len(nodes), total, page)
}

// GetEvents returns audit log entries matching the query filters.
// @Summary List events
// @Description Retrieve indexed events with filtering and pagination, newest first
// @Tags Events
// @Produce json
// @Param limit query integer false "Page size" default(50)
// @Param offset query integer false "Page offset" default(0)
// @Param network query string false "Network name"
// @Param networkId query string false "Chain ID"
// @Param nodeId query string false "Filter by node"
// @Param who query string false "Filter by actor address"
// @Param eventType query string false "Filter by event type"
// @Param from query integer false "Unix timestamp lower bound"
// @Param to query integer false "Unix timestamp upper bound"
// @Success 200 {object} ListResponse "Events"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /events [get]
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	page, err := parsePagination(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := store.EventFilter{
		Network:   r.URL.Query().Get("network"),
		NetworkID: r.URL.Query().Get("networkId"),
		NodeID:    r.URL.Query().Get("nodeId"),
		Who:       r.URL.Query().Get("who"),
		EventType: r.URL.Query().Get("eventType"),
	}

	if from := r.URL.Query().Get("from"); from != "" {
		filter.From, err = strconv.ParseInt(from, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid from: must be a unix timestamp")
			return
		}
	}
	if to := r.URL.Query().Get("to"); to != "" {
		filter.To, err = strconv.ParseInt(to, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid to: must be a unix timestamp")
			return
		}
	}

	events, total, err := h.store.ListEvents(filter, page)
	if err != nil {
		h.log.Errorf("Failed to list events: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	respondList(w, events, len(events), total, page)
}

// GetUser returns the memberships of an address, optionally with node rows.
// @Summary Get user detail
// @Description Retrieve the memberships held by an address across all indexed networks
// @Tags Users
// @Produce json
// @Param address path string true "User address"
// @Param limit query integer false "Maximum memberships returned" default(50)
// @Param includeNodes query boolean false "Include the node row for each membership"
// @Success 200 {object} UserDetail "User detail"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /user/{address} [get]
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	if address == "" {
		respondError(w, http.StatusBadRequest, "address is required")
		return
	}

	page, err := parsePagination(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	memberships, err := h.store.ListMembershipsByUser(address, page.Limit)
	if err != nil {
		h.log.Errorf("Failed to list memberships for %s: %v", address, err)
		respondError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	detail := UserDetail{
		Address:     strings.ToLower(address),
		Memberships: memberships,
	}

	if includeNodes, _ := strconv.ParseBool(r.URL.Query().Get("includeNodes")); includeNodes {
		detail.Nodes = make([]*model.Node, 0, len(memberships))
		for _, m := range memberships {
			node, err := h.store.GetNodeByID(m.NodeID, m.Network)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				h.log.Errorf("Failed to load node %s for user %s: %v", m.NodeID, address, err)
				respondError(w, http.StatusInternalServerError, "failed to load user")
				return
			}
			detail.Nodes = append(detail.Nodes, node)
		}
	}

	respondJSON(w, http.StatusOK, detail)
}

// Search runs a prefix search over nodes, membranes, movements and users.
// @Summary Search entities
// @Description Prefix search over node ids, membrane ids, movement ids and member addresses
// @Tags Search
// @Produce json
// @Param q query string true "Search prefix"
// @Param type query string false "Entity type" Enums(node, membrane, movement, user)
// @Param limit query integer false "Maximum results" default(20)
// @Success 200 {array} store.SearchResult "Search results"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		respondError(w, http.StatusBadRequest, "q is required")
		return
	}

	entityType := r.URL.Query().Get("type")
	switch entityType {
	case "", "node", "membrane", "movement", "user":
	default:
		respondError(w, http.StatusBadRequest, "invalid type: must be 'node', 'membrane', 'movement' or 'user'")
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > store.MaxLimit {
			respondError(w, http.StatusBadRequest,
				fmt.Sprintf("invalid limit: must be between 1 and %d", store.MaxLimit))
			return
		}
	}

	results, err := h.store.Search(q, entityType, limit)
	if err != nil {
		h.log.Errorf("Failed to search for %q: %v", q, err)
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if results == nil {
		results = []store.SearchResult{}
	}

	respondJSON(w, http.StatusOK, results)
}

// ListMembranes returns membrane definitions matching the query filters.
// @Summary List membranes
// @Description Retrieve membrane definitions with filtering and pagination
// @Tags Membranes
// @Produce json
// @Param limit query integer false "Page size" default(50)
// @Param offset query integer false "Page offset" default(0)
// @Param network query string false "Network name"
// @Param networkId query string false "Chain ID"
// @Param createdBy query string false "Filter by creator address"
// @Success 200 {object} ListResponse "Membranes"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /membranes [get]
func (h *Handler) ListMembranes(w http.ResponseWriter, r *http.Request) {
	page, err := parsePagination(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := store.MembraneFilter{
		Network:   r.URL.Query().Get("network"),
		NetworkID: r.URL.Query().Get("networkId"),
		CreatedBy: r.URL.Query().Get("createdBy"),
	}

	membranes, total, err := h.store.ListMembranes(filter, page)
	if err != nil {
		h.log.Errorf("Failed to list membranes: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list membranes")
		return
	}

	respondList(w, membranes, len(membranes), total, page)
}

// ListMovements returns movements with their nested signature queues.
// @Summary List movements
// @Description Retrieve movements with nested signature queues and signatures
// @Tags Movements
// @Produce json
// @Param limit query integer false "Page size" default(50)
// @Param offset query integer false "Page offset" default(0)
// @Param network query string false "Network name"
// @Param networkId query string false "Chain ID"
// @Param nodeId query string false "Filter by node"
// @Param initiator query string false "Filter by initiator address"
// @Param category query string false "Filter by movement category"
// @Success 200 {object} ListResponse "Movements"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /movements [get]
func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	page, err := parsePagination(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := store.MovementFilter{
		Network:   r.URL.Query().Get("network"),
		NetworkID: r.URL.Query().Get("networkId"),
		NodeID:    r.URL.Query().Get("nodeId"),
		Initiator: r.URL.Query().Get("initiator"),
		Category:  r.URL.Query().Get("category"),
	}

	movements, total, err := h.store.ListMovements(filter, page)
	if err != nil {
		h.log.Errorf("Failed to list movements: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list movements")
		return
	}

	details := make([]MovementDetail, 0, len(movements))
	for _, movement := range movements {
		detail := MovementDetail{Movement: movement, Queues: []QueueDetail{}}

		queues, err := h.store.ListQueuesByMovement(movement.Network, movement.ID)
		if err != nil {
			h.log.Errorf("Failed to list queues for movement %s: %v", movement.ID, err)
			respondError(w, http.StatusInternalServerError, "failed to list movements")
			return
		}

		for _, queue := range queues {
			signatures, err := h.store.ListSignaturesByQueue(movement.Network, queue.ID)
			if err != nil {
				h.log.Errorf("Failed to list signatures for queue %s: %v", queue.ID, err)
				respondError(w, http.StatusInternalServerError, "failed to list movements")
				return
			}
			if signatures == nil {
				signatures = []*model.Signature{}
			}
			detail.Queues = append(detail.Queues, QueueDetail{Queue: queue, Signatures: signatures})
		}

		details = append(details, detail)
	}

	respondList(w, details, len(details), total, page)
}

// GetStats returns aggregate row counts.
// @Summary Get statistics
// @Description Retrieve aggregate entity counts, optionally restricted to one chain
// @Tags Stats
// @Produce json
// @Param networkId query string false "Chain ID"
// @Success 200 {object} store.Stats "Statistics"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /stats [get]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.URL.Query().Get("networkId"))
	if err != nil {
		h.log.Errorf("Failed to get stats: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// GetChatMessages returns chat messages for a node, newest first.
// @Summary List chat messages
// @Description Retrieve chat messages for a node, newest first, paged by timestamp
// @Tags Chat
// @Produce json
// @Param nodeId query string true "Node ID"
// @Param network query string false "Network name"
// @Param limit query integer false "Maximum messages returned" default(50)
// @Param before query integer false "Return messages older than this unix timestamp"
// @Success 200 {object} ListResponse "Chat messages"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /chat/messages [get]
func (h *Handler) GetChatMessages(w http.ResponseWriter, r *http.Request) {
	nodeID := r.URL.Query().Get("nodeId")
	if nodeID == "" {
		respondError(w, http.StatusBadRequest, "nodeId is required")
		return
	}

	page, err := parsePagination(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var before int64
	if beforeStr := r.URL.Query().Get("before"); beforeStr != "" {
		before, err = strconv.ParseInt(beforeStr, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid before: must be a unix timestamp")
			return
		}
	}

	messages, err := h.chat.List(r.URL.Query().Get("network"), nodeID, page.Limit, before)
	if err != nil {
		h.log.Errorf("Failed to list chat messages for node %s: %v", nodeID, err)
		respondError(w, http.StatusInternalServerError, "failed to list chat messages")
		return
	}

	respondList(w, messages, len(messages), len(messages), page)
}

// PostChatMessage stores a new chat message.
// @Summary Post chat message
// @Description Validate and store a chat message attached to a node
// @Tags Chat
// @Accept json
// @Produce json
// @Param message body ChatPostRequest true "Chat message"
// @Success 201 {object} model.ChatMessage "Stored message"
// @Failure 400 {object} ErrorResponse "Invalid message"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /chat/messages [post]
func (h *Handler) PostChatMessage(w http.ResponseWriter, r *http.Request) {
	var req ChatPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message, err := h.chat.Post(req.Network, req.NodeID, req.Sender, req.Content)
	if err != nil {
		if chat.IsValidationError(err) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Errorf("Failed to post chat message: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to post chat message")
		return
	}

	respondJSON(w, http.StatusCreated, message)
}

// ValidateChatMessage checks message content without storing anything.
// @Summary Validate chat message content
// @Description Check whether message content would be accepted, without storing it
// @Tags Chat
// @Accept json
// @Produce json
// @Param message body ChatValidateRequest true "Content to validate"
// @Success 200 {object} ChatValidateResponse "Validation result"
// @Failure 400 {object} ErrorResponse "Invalid request body"
// @Router /chat/validate [post]
func (h *Handler) ValidateChatMessage(w http.ResponseWriter, r *http.Request) {
	var req ChatValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	response := ChatValidateResponse{Valid: true}
	if err := chat.ValidateContent(req.Content); err != nil {
		response.Valid = false
		response.Error = err.Error()
	}

	respondJSON(w, http.StatusOK, response)
}

// Health returns the health status of the API.
// @Summary Health check
// @Description Check the health status of the API and the projection store
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "API health status"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	}

	if stats, err := h.store.GetStats(""); err == nil {
		response.Stats = stats
	} else {
		response.Status = "degraded"
	}

	respondJSON(w, http.StatusOK, response)
}

// parentOf returns the parent node id from the root path, or "" for roots.
func parentOf(node *model.Node) string {
	if len(node.RootPath) < 2 {
		return ""
	}
	for i := len(node.RootPath) - 1; i > 0; i-- {
		if node.RootPath[i] == node.ID {
			return node.RootPath[i-1]
		}
	}
	return node.RootPath[len(node.RootPath)-2]
}

// parsePagination parses limit/offset query parameters.
func parsePagination(r *http.Request) (store.Pagination, error) {
	page := store.Pagination{Limit: store.DefaultLimit}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > store.MaxLimit {
			return page, fmt.Errorf("invalid limit: must be between 1 and %d", store.MaxLimit)
		}
		page.Limit = limit
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return page, errors.New("invalid offset: must be non-negative")
		}
		page.Offset = offset
	}

	return page, nil
}

// respondList wraps list data in the pagination envelope.
func respondList(w http.ResponseWriter, data any, count, total int, page store.Pagination) {
	respondJSON(w, http.StatusOK, ListResponse{
		Data: data,
		Meta: PaginationMeta{
			Total:   total,
			Limit:   page.Limit,
			Offset:  page.Offset,
			HasMore: page.Offset+count < total,
		},
	})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")

	// Encode first so an encoding failure can still change the status code
	encoded, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)

	if _, err := w.Write(encoded); err != nil {
		// Headers already sent, nothing left to do
		return
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	response := ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	}
	respondJSON(w, status, response)
}
