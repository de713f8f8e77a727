// Package chat stores off-chain messages attached to nodes. Messages live
// in the projection database but are never touched by reorg rollbacks.
package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	internalcommon "github.com/willwe-labs/willwe-indexer/internal/common"
	"github.com/willwe-labs/willwe-indexer/internal/logger"
	"github.com/willwe-labs/willwe-indexer/internal/model"
	"github.com/willwe-labs/willwe-indexer/internal/store"
)

// MaxContentLength is the maximum message length in characters.
const MaxContentLength = 1000

var (
	ErrEmptyContent   = errors.New("message content is empty")
	ErrContentTooLong = fmt.Errorf("message content exceeds %d characters", MaxContentLength)
	ErrControlChars   = errors.New("message content contains control characters")
	ErrMissingNodeID  = errors.New("node id is required")
	ErrMissingSender  = errors.New("sender is required")
	ErrMissingNetwork = errors.New("network is required")
	ErrUnknownNetwork = errors.New("unknown network")
)

// IsValidationError reports whether err is a message validation failure, as
// opposed to a storage failure.
func IsValidationError(err error) bool {
	for _, validation := range []error{
		ErrEmptyContent, ErrContentTooLong, ErrControlChars,
		ErrMissingNodeID, ErrMissingSender, ErrMissingNetwork, ErrUnknownNetwork,
	} {
		if errors.Is(err, validation) {
			return true
		}
	}
	return false
}

// Service validates and stores chat messages.
type Service struct {
	store    *store.Store
	networks map[string]struct{}
	log      *logger.Logger
}

func NewService(s *store.Store, networks []string, log *logger.Logger) *Service {
	known := make(map[string]struct{}, len(networks))
	for _, network := range networks {
		known[network] = struct{}{}
	}
	return &Service{
		store:    s,
		networks: known,
		log:      log.WithComponent(internalcommon.ComponentChat),
	}
}

// ValidateContent checks the message body against the posting rules.
func ValidateContent(content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ErrEmptyContent
	}
	if len([]rune(content)) > MaxContentLength {
		return ErrContentTooLong
	}
	for _, r := range content {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return ErrControlChars
		}
	}
	return nil
}

// Post validates and stores one message, returning the stored row.
func (s *Service) Post(network, nodeID, sender, content string) (*model.ChatMessage, error) {
	if network == "" {
		return nil, ErrMissingNetwork
	}
	if _, ok := s.networks[network]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNetwork, network)
	}
	if nodeID == "" {
		return nil, ErrMissingNodeID
	}
	if strings.TrimSpace(sender) == "" {
		return nil, ErrMissingSender
	}
	if err := ValidateContent(content); err != nil {
		return nil, err
	}

	now := time.Now()
	msg := &model.ChatMessage{
		ID:        fmt.Sprintf("chat-%s-%d", nodeID, now.UnixNano()),
		Network:   network,
		NodeID:    nodeID,
		Sender:    strings.ToLower(sender),
		Content:   content,
		Timestamp: now.Unix(),
	}

	if err := s.store.InsertChatMessage(s.store.DB(), msg); err != nil {
		return nil, fmt.Errorf("failed to store chat message: %w", err)
	}

	s.log.Debugw("chat message posted", "network", network, "node", nodeID, "id", msg.ID)

	return msg, nil
}

// List returns messages for a node, newest first. A non-zero before limits
// results to messages older than that unix timestamp.
func (s *Service) List(network, nodeID string, limit int, before int64) ([]*model.ChatMessage, error) {
	if nodeID == "" {
		return nil, ErrMissingNodeID
	}
	return s.store.ListChatMessages(network, nodeID, limit, before)
}
