package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/russross/meddler"

	"github.com/willwe-labs/willwe-indexer/internal/model"
)

// Pagination bounds list queries. Zero Limit means DefaultLimit.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

func (p Pagination) normalize() (limit, offset int) {
	limit = p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	offset = p.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// condition accumulates WHERE clauses and their arguments.
type condition struct {
	clauses []string
	args    []any
}

func (c *condition) add(clause string, args ...any) {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, args...)
}

func (c *condition) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

func (s *Store) countRows(table, where string, args []any) (int, error) {
	var total int
	err := s.db.QueryRow("SELECT COUNT(*) FROM "+table+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return total, nil
}

// NodeFilter filters ListNodes.
type NodeFilter struct {
	Network       string
	NetworkID     string
	CreatedAfter  int64
	HasMembraneID bool
	SortBy        string // createdAt | updatedAt | totalSupply
	SortOrder     string // asc | desc
}

var nodeSortColumns = map[string]string{
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"totalSupply": "CAST(total_supply AS REAL)",
	"":            "created_at",
}

// ListNodes returns nodes matching the filter plus the unpaginated total.
func (s *Store) ListNodes(filter NodeFilter, page Pagination) ([]*model.Node, int, error) {
	cond := &condition{}
	if filter.Network != "" {
		cond.add("network = ?", filter.Network)
	}
	if filter.NetworkID != "" {
		cond.add("network_id = ?", filter.NetworkID)
	}
	if filter.CreatedAfter > 0 {
		cond.add("created_at > ?", filter.CreatedAfter)
	}
	if filter.HasMembraneID {
		cond.add("membrane_id != '0'")
	}

	total, err := s.countRows(nodesTable, cond.where(), cond.args)
	if err != nil {
		return nil, 0, err
	}

	sortColumn, ok := nodeSortColumns[filter.SortBy]
	if !ok {
		sortColumn = "created_at"
	}
	order := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		order = "ASC"
	}

	limit, offset := page.normalize()
	var nodes []*model.Node
	query := fmt.Sprintf("SELECT * FROM nodes%s ORDER BY %s %s LIMIT ? OFFSET ?",
		cond.where(), sortColumn, order)
	err = meddler.QueryAll(s.db, &nodes, query, append(cond.args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list nodes: %w", err)
	}

	return nodes, total, nil
}

// EventFilter filters ListEvents.
type EventFilter struct {
	Network   string
	NetworkID string
	NodeID    string
	Who       string
	EventType string
	From      int64
	To        int64
}

// ListEvents returns audit log rows matching the filter, newest first.
func (s *Store) ListEvents(filter EventFilter, page Pagination) ([]*model.Event, int, error) {
	cond := &condition{}
	if filter.Network != "" {
		cond.add("network = ?", filter.Network)
	}
	if filter.NetworkID != "" {
		cond.add("network_id = ?", filter.NetworkID)
	}
	if filter.NodeID != "" {
		cond.add("node_id = ?", filter.NodeID)
	}
	if filter.Who != "" {
		cond.add("who = ?", strings.ToLower(filter.Who))
	}
	if filter.EventType != "" {
		cond.add("event_type = ?", filter.EventType)
	}
	if filter.From > 0 {
		cond.add("happened_at >= ?", filter.From)
	}
	if filter.To > 0 {
		cond.add("happened_at <= ?", filter.To)
	}

	total, err := s.countRows(eventsTable, cond.where(), cond.args)
	if err != nil {
		return nil, 0, err
	}

	limit, offset := page.normalize()
	var events []*model.Event
	query := "SELECT * FROM events" + cond.where() + " ORDER BY happened_at DESC, id DESC LIMIT ? OFFSET ?"
	err = meddler.QueryAll(s.db, &events, query, append(cond.args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}

	return events, total, nil
}

// GetNodeByID fetches one node row. An empty network matches the node on any
// chain, newest first.
func (s *Store) GetNodeByID(nodeID, network string) (*model.Node, error) {
	cond := &condition{}
	cond.add("id = ?", nodeID)
	if network != "" {
		cond.add("network = ?", network)
	}

	node := &model.Node{}
	err := meddler.QueryRow(s.db, node,
		"SELECT * FROM nodes"+cond.where()+" ORDER BY created_at DESC LIMIT 1", cond.args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load node: %w", err)
	}
	return node, nil
}

// ListMembershipsByNode returns every membership of a node.
func (s *Store) ListMembershipsByNode(network, nodeID string) ([]*model.Membership, error) {
	var memberships []*model.Membership
	err := meddler.QueryAll(s.db, &memberships,
		"SELECT * FROM memberships WHERE network = ? AND node_id = ? ORDER BY happened_at ASC",
		network, nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	return memberships, nil
}

// ListMembershipsByUser returns every membership held by an address.
func (s *Store) ListMembershipsByUser(who string, limit int) ([]*model.Membership, error) {
	if limit <= 0 || limit > MaxLimit {
		limit = DefaultLimit
	}
	var memberships []*model.Membership
	err := meddler.QueryAll(s.db, &memberships,
		"SELECT * FROM memberships WHERE who = ? ORDER BY happened_at DESC LIMIT ?",
		strings.ToLower(who), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	return memberships, nil
}

// ListNodeSignals returns historical signal snapshots for a node.
func (s *Store) ListNodeSignals(network, nodeID string, limit int) ([]*model.NodeSignal, error) {
	if limit <= 0 || limit > MaxLimit {
		limit = DefaultLimit
	}
	var signals []*model.NodeSignal
	err := meddler.QueryAll(s.db, &signals,
		"SELECT * FROM node_signals WHERE network = ? AND node_id = ? ORDER BY happened_at DESC LIMIT ?",
		network, nodeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list node signals: %w", err)
	}
	return signals, nil
}

// GetActiveMembraneSignal returns the active membrane signal of one user on
// one node, or ErrNotFound.
func (s *Store) GetActiveMembraneSignal(network, nodeID, who string) (*model.MembraneSignal, error) {
	signal := &model.MembraneSignal{}
	err := meddler.QueryRow(s.db, signal,
		"SELECT * FROM membrane_signals WHERE network = ? AND node_id = ? AND who = ? AND is_active = 1 "+
			"ORDER BY happened_at DESC LIMIT 1",
		network, nodeID, strings.ToLower(who))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active membrane signal: %w", err)
	}
	return signal, nil
}

// ListActiveMembraneSignals returns the active membrane signals for a node.
func (s *Store) ListActiveMembraneSignals(network, nodeID string) ([]*model.MembraneSignal, error) {
	var signals []*model.MembraneSignal
	err := meddler.QueryAll(s.db, &signals,
		"SELECT * FROM membrane_signals WHERE network = ? AND node_id = ? AND is_active = 1 "+
			"ORDER BY happened_at DESC",
		network, nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list membrane signals: %w", err)
	}
	return signals, nil
}

// ListActiveInflationSignals returns the active inflation signals for a node.
func (s *Store) ListActiveInflationSignals(network, nodeID string) ([]*model.InflationSignal, error) {
	var signals []*model.InflationSignal
	err := meddler.QueryAll(s.db, &signals,
		"SELECT * FROM inflation_signals WHERE network = ? AND node_id = ? AND is_active = 1 "+
			"ORDER BY happened_at DESC",
		network, nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inflation signals: %w", err)
	}
	return signals, nil
}

// MembraneFilter filters ListMembranes.
type MembraneFilter struct {
	Network   string
	NetworkID string
	CreatedBy string
}

// ListMembranes returns membrane definitions matching the filter.
func (s *Store) ListMembranes(filter MembraneFilter, page Pagination) ([]*model.Membrane, int, error) {
	cond := &condition{}
	if filter.Network != "" {
		cond.add("network = ?", filter.Network)
	}
	if filter.NetworkID != "" {
		cond.add("network_id = ?", filter.NetworkID)
	}
	if filter.CreatedBy != "" {
		cond.add("creator = ?", strings.ToLower(filter.CreatedBy))
	}

	total, err := s.countRows(membranesTable, cond.where(), cond.args)
	if err != nil {
		return nil, 0, err
	}

	limit, offset := page.normalize()
	var membranes []*model.Membrane
	query := "SELECT * FROM membranes" + cond.where() + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	err = meddler.QueryAll(s.db, &membranes, query, append(cond.args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list membranes: %w", err)
	}

	return membranes, total, nil
}

// MovementFilter filters ListMovements.
type MovementFilter struct {
	Network   string
	NetworkID string
	NodeID    string
	Initiator string
	Category  string
}

// ListMovements returns movements matching the filter.
func (s *Store) ListMovements(filter MovementFilter, page Pagination) ([]*model.Movement, int, error) {
	cond := &condition{}
	if filter.Network != "" {
		cond.add("network = ?", filter.Network)
	}
	if filter.NetworkID != "" {
		cond.add("network_id = ?", filter.NetworkID)
	}
	if filter.NodeID != "" {
		cond.add("node_id = ?", filter.NodeID)
	}
	if filter.Initiator != "" {
		cond.add("initiator = ?", strings.ToLower(filter.Initiator))
	}
	if filter.Category != "" {
		cond.add("category = ?", filter.Category)
	}

	total, err := s.countRows(movementsTable, cond.where(), cond.args)
	if err != nil {
		return nil, 0, err
	}

	limit, offset := page.normalize()
	var movements []*model.Movement
	query := "SELECT * FROM movements" + cond.where() + " ORDER BY happened_at DESC LIMIT ? OFFSET ?"
	err = meddler.QueryAll(s.db, &movements, query, append(cond.args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list movements: %w", err)
	}

	return movements, total, nil
}

// ListQueuesByMovement returns the signature queues of one movement.
func (s *Store) ListQueuesByMovement(network, movementID string) ([]*model.SignatureQueue, error) {
	var queues []*model.SignatureQueue
	err := meddler.QueryAll(s.db, &queues,
		"SELECT * FROM signature_queues WHERE network = ? AND movement_id = ? ORDER BY happened_at ASC",
		network, movementID)
	if err != nil {
		return nil, fmt.Errorf("failed to list signature queues: %w", err)
	}
	return queues, nil
}

// ListSignaturesByQueue returns every signature submitted against a queue.
func (s *Store) ListSignaturesByQueue(network, queueID string) ([]*model.Signature, error) {
	var signatures []*model.Signature
	err := meddler.QueryAll(s.db, &signatures,
		"SELECT * FROM signatures WHERE network = ? AND queue_id = ? ORDER BY happened_at ASC",
		network, queueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list signatures: %w", err)
	}
	return signatures, nil
}

// ListEndpointsByNode returns the endpoints attached to a node.
func (s *Store) ListEndpointsByNode(network, nodeID string) ([]*model.Endpoint, error) {
	var endpoints []*model.Endpoint
	err := meddler.QueryAll(s.db, &endpoints,
		"SELECT * FROM endpoints WHERE network = ? AND node_id = ? ORDER BY created_at ASC",
		network, nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list endpoints: %w", err)
	}
	return endpoints, nil
}

// SearchResult is one hit of the cross-entity search.
type SearchResult struct {
	Type    string `json:"type"` // node | membrane | movement | user
	ID      string `json:"id"`
	Network string `json:"network"`
	Label   string `json:"label"`
}

// Search runs a prefix search over node ids, membrane ids, movement ids and
// member addresses.
func (s *Store) Search(q, entityType string, limit int) ([]SearchResult, error) {
	if limit <= 0 || limit > MaxLimit {
		limit = 20
	}

	pattern := q + "%"
	var results []SearchResult

	searchOne := func(kind, query string, args ...any) error {
		rows, err := s.db.Query(query, args...)
		if err != nil {
			return fmt.Errorf("failed to search %ss: %w", kind, err)
		}
		defer rows.Close()

		for rows.Next() {
			result := SearchResult{Type: kind}
			if err := rows.Scan(&result.ID, &result.Network, &result.Label); err != nil {
				return fmt.Errorf("failed to scan %s search row: %w", kind, err)
			}
			results = append(results, result)
		}
		return rows.Err()
	}

	if entityType == "" || entityType == "node" {
		err := searchOne("node",
			"SELECT id, network, id FROM nodes WHERE id LIKE ? LIMIT ?", pattern, limit)
		if err != nil {
			return nil, err
		}
	}

	if entityType == "" || entityType == "membrane" {
		err := searchOne("membrane",
			"SELECT id, network, membrane_id FROM membranes WHERE membrane_id LIKE ? LIMIT ?", pattern, limit)
		if err != nil {
			return nil, err
		}
	}

	if entityType == "" || entityType == "movement" {
		err := searchOne("movement",
			"SELECT id, network, description FROM movements WHERE id LIKE ? LIMIT ?", pattern, limit)
		if err != nil {
			return nil, err
		}
	}

	if entityType == "" || entityType == "user" {
		err := searchOne("user",
			"SELECT DISTINCT who, network, who FROM memberships WHERE who LIKE ? LIMIT ?",
			strings.ToLower(q)+"%", limit)
		if err != nil {
			return nil, err
		}
	}

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// Stats aggregates row counts per entity family.
type Stats struct {
	Nodes       int `json:"nodes"`
	Memberships int `json:"memberships"`
	Events      int `json:"events"`
	Movements   int `json:"movements"`
	Membranes   int `json:"membranes"`
	Signatures  int `json:"signatures"`
}

// GetStats returns row counts, optionally restricted to one chain id.
func (s *Store) GetStats(networkID string) (*Stats, error) {
	cond := &condition{}
	if networkID != "" {
		cond.add("network_id = ?", networkID)
	}

	stats := &Stats{}
	for table, target := range map[string]*int{
		nodesTable:       &stats.Nodes,
		membershipsTable: &stats.Memberships,
		eventsTable:      &stats.Events,
		movementsTable:   &stats.Movements,
		membranesTable:   &stats.Membranes,
		signaturesTable:  &stats.Signatures,
	} {
		total, err := s.countRows(table, cond.where(), cond.args)
		if err != nil {
			return nil, err
		}
		*target = total
	}

	return stats, nil
}

// ListChatMessages returns messages for a node, newest first. A non-zero
// before timestamp pages backwards through history.
func (s *Store) ListChatMessages(network, nodeID string, limit int, before int64) ([]*model.ChatMessage, error) {
	if limit <= 0 || limit > MaxLimit {
		limit = DefaultLimit
	}

	cond := &condition{}
	cond.add("node_id = ?", nodeID)
	if network != "" {
		cond.add("network = ?", network)
	}
	if before > 0 {
		cond.add("timestamp < ?", before)
	}

	var messages []*model.ChatMessage
	query := "SELECT * FROM chat_messages" + cond.where() + " ORDER BY timestamp DESC LIMIT ?"
	err := meddler.QueryAll(s.db, &messages, query, append(cond.args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}

	return messages, nil
}
