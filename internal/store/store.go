// Package store is the projection store: every entity the projectors derive
// from chain events lands here, keyed by (network, id). Writes are idempotent
// so the same log can be replayed any number of times.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/russross/meddler"

	"github.com/willwe-labs/willwe-indexer/internal/common"
	"github.com/willwe-labs/willwe-indexer/internal/logger"
	"github.com/willwe-labs/willwe-indexer/internal/model"
)

// ErrNotFound is returned by point lookups when no row matches.
var ErrNotFound = errors.New("not found")

const (
	nodesTable            = "nodes"
	membershipsTable      = "memberships"
	eventsTable           = "events"
	nodeSignalsTable      = "node_signals"
	membraneSignalsTable  = "membrane_signals"
	inflationSignalsTable = "inflation_signals"
	movementsTable        = "movements"
	signatureQueuesTable  = "signature_queues"
	signaturesTable       = "signatures"
	membranesTable        = "membranes"
	endpointsTable        = "endpoints"
	chatMessagesTable     = "chat_messages"
)

// Store wraps the projection database.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// NewStore creates a projection store on the given database.
func NewStore(db *sql.DB, log *logger.Logger) *Store {
	return &Store{
		db:  db,
		log: log.WithComponent(common.ComponentStore),
	}
}

// DB exposes the underlying database, mostly for tests and maintenance.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Begin opens a write transaction.
func (s *Store) Begin() (*sql.Tx, error) {
	return s.db.Begin()
}

// upsertIgnore inserts a row, silently dropping it when a row with the same
// (network, id) already exists. First writer wins, which is exactly the
// at-least-once delivery semantics append-only tables need.
func upsertIgnore(q meddler.DB, table string, row any) error {
	columns, err := meddler.Columns(row, true)
	if err != nil {
		return fmt.Errorf("failed to read columns of %s row: %w", table, err)
	}

	values, err := meddler.Values(row, true)
	if err != nil {
		return fmt.Errorf("failed to read values of %s row: %w", table, err)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (network, id) DO NOTHING",
		table,
		strings.Join(columns, ", "),
		strings.TrimSuffix(strings.Repeat("?,", len(columns)), ","),
	)

	if _, err := q.Exec(query, values...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}

	return nil
}

// upsertUpdate inserts a row or, on (network, id) conflict, updates only the
// listed columns. The rest of the existing row stays untouched, preserving
// concurrent updates from other event types.
func upsertUpdate(q meddler.DB, table string, row any, updateColumns []string) error {
	columns, err := meddler.Columns(row, true)
	if err != nil {
		return fmt.Errorf("failed to read columns of %s row: %w", table, err)
	}

	values, err := meddler.Values(row, true)
	if err != nil {
		return fmt.Errorf("failed to read values of %s row: %w", table, err)
	}

	assignments := make([]string, 0, len(updateColumns))
	for _, col := range updateColumns {
		assignments = append(assignments, fmt.Sprintf("%s = excluded.%s", col, col))
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (network, id) DO UPDATE SET %s",
		table,
		strings.Join(columns, ", "),
		strings.TrimSuffix(strings.Repeat("?,", len(columns)), ","),
		strings.Join(assignments, ", "),
	)

	if _, err := q.Exec(query, values...); err != nil {
		return fmt.Errorf("failed to upsert into %s: %w", table, err)
	}

	return nil
}

// InsertEvent writes one audit log row (conflict-ignore).
func (s *Store) InsertEvent(q meddler.DB, event *model.Event) error {
	return upsertIgnore(q, eventsTable, event)
}

// InsertMembership writes one membership row (conflict-ignore).
func (s *Store) InsertMembership(q meddler.DB, membership *model.Membership) error {
	return upsertIgnore(q, membershipsTable, membership)
}

// InsertNodeSignal writes one historical signal snapshot (conflict-ignore).
func (s *Store) InsertNodeSignal(q meddler.DB, signal *model.NodeSignal) error {
	return upsertIgnore(q, nodeSignalsTable, signal)
}

// InsertMovement writes one movement row (conflict-ignore).
func (s *Store) InsertMovement(q meddler.DB, movement *model.Movement) error {
	return upsertIgnore(q, movementsTable, movement)
}

// InsertSignatureQueue writes one queue row (conflict-ignore), so repeated
// queue creation on re-delivery is a no-op.
func (s *Store) InsertSignatureQueue(q meddler.DB, queue *model.SignatureQueue) error {
	return upsertIgnore(q, signatureQueuesTable, queue)
}

// InsertSignature writes one signature row (conflict-ignore).
func (s *Store) InsertSignature(q meddler.DB, signature *model.Signature) error {
	return upsertIgnore(q, signaturesTable, signature)
}

// InsertMembrane writes one membrane row (conflict-ignore).
func (s *Store) InsertMembrane(q meddler.DB, membrane *model.Membrane) error {
	return upsertIgnore(q, membranesTable, membrane)
}

// InsertEndpoint writes one endpoint row (conflict-ignore).
func (s *Store) InsertEndpoint(q meddler.DB, endpoint *model.Endpoint) error {
	return upsertIgnore(q, endpointsTable, endpoint)
}

// UpsertNode inserts a node row or updates only the listed columns on
// conflict. updated_at is always part of the update set.
func (s *Store) UpsertNode(q meddler.DB, node *model.Node, updateColumns ...string) error {
	columns := append([]string{"updated_at"}, updateColumns...)
	return upsertUpdate(q, nodesTable, node, columns)
}

// EnsureNode guarantees a node row exists before a mutation. Events can
// arrive for nodes whose creation event was missed or reordered, so a zeroed
// placeholder is inserted when the row is absent.
func (s *Store) EnsureNode(q meddler.DB, network, networkID, nodeID string, when int64, blockNum uint64) error {
	placeholder := &model.Node{
		ID:                     nodeID,
		Network:                network,
		NetworkID:              networkID,
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
		MovementEndpoints:      []string{},
		RootPath:               []string{nodeID},
		Signals:                []string{},
		CreatedAt:              when,
		UpdatedAt:              when,
		CreatedBlockNumber:     blockNum,
	}

	return upsertIgnore(q, nodesTable, placeholder)
}

// GetNode fetches one node row.
func (s *Store) GetNode(q meddler.DB, network, nodeID string) (*model.Node, error) {
	node := &model.Node{}
	err := meddler.QueryRow(q, node,
		"SELECT * FROM nodes WHERE network = ? AND id = ?", network, nodeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load node %s: %w", nodeID, err)
	}
	return node, nil
}

// SetNodeField updates a single column of a node row plus updated_at.
// The column name is always a compile-time constant at the call sites.
func (s *Store) SetNodeField(q meddler.DB, network, nodeID, column, value string, updatedAt int64) error {
	query := fmt.Sprintf("UPDATE nodes SET %s = ?, updated_at = ? WHERE network = ? AND id = ?", column)
	if _, err := q.Exec(query, value, updatedAt, network, nodeID); err != nil {
		return fmt.Errorf("failed to update nodes.%s: %w", column, err)
	}
	return nil
}

// ReplaceMembraneSignal deactivates any active membrane signal from the same
// (node, who) pair and inserts the new one, both inside the supplied
// transaction so no interleaving can leave two active rows.
func (s *Store) ReplaceMembraneSignal(tx *sql.Tx, signal *model.MembraneSignal) error {
	_, err := tx.Exec(
		"UPDATE membrane_signals SET is_active = 0 WHERE network = ? AND node_id = ? AND who = ? AND is_active = 1",
		signal.Network, signal.NodeID, signal.Who)
	if err != nil {
		return fmt.Errorf("failed to deactivate membrane signals: %w", err)
	}

	return upsertIgnore(tx, membraneSignalsTable, signal)
}

// ReplaceInflationSignal is the inflation analogue of ReplaceMembraneSignal.
func (s *Store) ReplaceInflationSignal(tx *sql.Tx, signal *model.InflationSignal) error {
	_, err := tx.Exec(
		"UPDATE inflation_signals SET is_active = 0 WHERE network = ? AND node_id = ? AND who = ? AND is_active = 1",
		signal.Network, signal.NodeID, signal.Who)
	if err != nil {
		return fmt.Errorf("failed to deactivate inflation signals: %w", err)
	}

	return upsertIgnore(tx, inflationSignalsTable, signal)
}

// GetSignatureQueue fetches one queue row.
func (s *Store) GetSignatureQueue(q meddler.DB, network, queueID string) (*model.SignatureQueue, error) {
	queue := &model.SignatureQueue{}
	err := meddler.QueryRow(q, queue,
		"SELECT * FROM signature_queues WHERE network = ? AND id = ?", network, queueID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load signature queue %s: %w", queueID, err)
	}
	return queue, nil
}

// SetQueueState transitions a queue's state. Returns the number of rows
// changed so callers can log a missing queue without failing.
func (s *Store) SetQueueState(q meddler.DB, network, queueID string, state model.QueueState) (int64, error) {
	result, err := q.Exec(
		"UPDATE signature_queues SET state = ? WHERE network = ? AND id = ?",
		state, network, queueID)
	if err != nil {
		return 0, fmt.Errorf("failed to update queue state: %w", err)
	}
	return result.RowsAffected()
}

// SetSignatureSubmitted flips the submitted flag of every signature the
// given signer made against a queue.
func (s *Store) SetSignatureSubmitted(q meddler.DB, network, queueID, signer string, submitted bool) (int64, error) {
	result, err := q.Exec(
		"UPDATE signatures SET submitted = ? WHERE network = ? AND queue_id = ? AND signer = ?",
		submitted, network, queueID, signer)
	if err != nil {
		return 0, fmt.Errorf("failed to update signatures: %w", err)
	}
	return result.RowsAffected()
}

// InsertChatMessage writes one chat message (conflict-ignore).
func (s *Store) InsertChatMessage(q meddler.DB, msg *model.ChatMessage) error {
	return upsertIgnore(q, chatMessagesTable, msg)
}
