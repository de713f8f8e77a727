package events

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/willwe-labs/willwe-indexer/internal/contracts"
	"github.com/willwe-labs/willwe-indexer/internal/identity"
)

// DecodeError describes a log the decoder could not turn into a typed event.
type DecodeError struct {
	Network string
	EventID string
	Topic   common.Hash
	Reason  string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s on %s: %s: %v", e.EventID, e.Network, e.Reason, e.Err)
	}
	return fmt.Sprintf("decode %s on %s: %s", e.EventID, e.Network, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decoder turns raw logs into typed events using the contract registry.
type Decoder struct {
	registry *contracts.Registry
	// chainIDs maps network name to decimal chain id
	chainIDs map[string]string
}

// NewDecoder creates a decoder. chainIDs maps network names to decimal
// chain ids for Meta.NetworkID.
func NewDecoder(registry *contracts.Registry, chainIDs map[string]string) *Decoder {
	return &Decoder{registry: registry, chainIDs: chainIDs}
}

// Decode produces the typed event for one log, or a *DecodeError.
// Meta.Timestamp is left zero; the pipeline fills it from the block header.
func (d *Decoder) Decode(network string, log *ethtypes.Log) (Meta, Decoded, error) {
	meta := Meta{
		EventID:     identity.EventID(log),
		Network:     network,
		NetworkID:   d.chainIDs[network],
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash,
		TxHash:      log.TxHash,
		LogIndex:    log.Index,
	}

	if len(log.Topics) == 0 {
		return meta, nil, &DecodeError{
			Network: network, EventID: meta.EventID, Reason: "log has no topics",
		}
	}

	topic := log.Topics[0]
	ref, ok := d.registry.EventByTopic(topic)
	if !ok {
		return meta, nil, &DecodeError{
			Network: network, EventID: meta.EventID, Topic: topic, Reason: "unknown event topic",
		}
	}

	contractABI, _ := d.registry.ABIForRole(ref.Role)

	decoded, err := decodeByName(contractABI, ref.Name, log)
	if err != nil {
		return meta, nil, &DecodeError{
			Network: network, EventID: meta.EventID, Topic: topic,
			Reason: fmt.Sprintf("failed to decode %s", ref.Name), Err: err,
		}
	}

	return meta, decoded, nil
}

//nolint:funlen,gocyclo
func decodeByName(contractABI abi.ABI, name string, log *ethtypes.Log) (Decoded, error) {
	switch name {
	case "NewRootNode":
		var raw struct {
			NodeId  *big.Int //nolint:revive,stylecheck
			Creator common.Address
		}
		if err := unpackLog(contractABI, &raw, name, log); err != nil {
			return nil, err
		}
		if raw.NodeId == nil {
			return nil, fmt.Errorf("missing nodeId")
		}
		return NewRootNode{NodeID: dec(raw.NodeId), Creator: lower(raw.Creator)}, nil

	case "NewNode":
		var raw struct {
			NodeId   *big.Int //nolint:revive,stylecheck
			ParentId *big.Int //nolint:revive,stylecheck
			Creator  common.Address
		}
		if err := unpackLog(contractABI, &raw, name, log); err != nil {
			return nil, err
		}
		if raw.NodeId == nil {
			return nil, fmt.Errorf("missing nodeId")
		}
		return NewNode{NodeID: dec(raw.NodeId), ParentID: dec(raw.ParentId), Creator: lower(raw.Creator)}, nil

	case "MembershipMinted":
		var raw struct {
			NodeId *big.Int //nolint:revive,stylecheck
			Who    common.Address
		}
		if err := unpackLog(contractABI, &raw, name, log); err != nil {
			return nil, err
		}
		if raw.NodeId == nil {
			return nil, fmt.Errorf("missing nodeId")
		}
		return MembershipMinted{NodeID: dec(raw.NodeId), Who: lower(raw.Who)}, nil

	case "TransferSingle":
		var raw struct {
			Operator common.Address
			From     common.Address
			To       common.Address
			Id       *big.Int //nolint:revive,stylecheck
			Value    *big.Int
		}
		if err := unpackLog(contractABI, &raw, name, log); err != nil {
			return nil, err
		}
		if raw.Id == nil {
			return nil, fmt.Errorf("missing token id")
		}
		return TransferSingle{
			Operator: lower(raw.Operator),
			From:     lower(raw.From),
			To:       lower(raw.To),
			TokenID:  dec(raw.Id),
			Value:    dec(raw.Value),
		}, nil

	case "TransferBatch":
		var raw struct {
			Operator common.Address
			From     common.Address
			To       common.Address
			Ids      []*big.Int
			Values   []*big.Int
		}
		if err := unpackLog(contractABI, &raw, name, log); err != nil {
			return nil, err
		}
		if len(raw.Ids) != len(raw.Values) {
			return nil, fmt.Errorf("ids/values length mismatch: %d vs %d", len(raw.Ids), len(raw.Values))
		}
		return TransferBatch{
			Operator: lower(raw.Operator),
			From:     lower(raw.From),
			To:       lower(raw.To),
			TokenIDs: decs(raw.Ids),
			Values:   decs(raw.Values),
		}, nil

	case "UserNodeSignal":
		var raw struct {
			NodeId   *big.Int //nolint:revive,stylecheck
			Sender   common.Address
			Signals  []*big.Int
			Strength *big.Int
		}
		if err := unpackLog(contractABI, &raw, name, log); err != nil {
			return nil, err
		}
		if raw.NodeId == nil {
			return nil, fmt.Errorf("missing nodeId")
		}
		return UserNodeSignal{
			NodeID:   dec(raw.NodeId),
			Sender:   lower(raw.Sender),
			Signals:  decs(raw.Signals),
			Strength: dec(raw.Strength),
		}, nil

	case "ConfigSignal":
		var raw struct {
			NodeId *big.Int //nolint:revive,stylecheck
			Origin common.Address
			Option string
		}
		if err := unpackLog(contractABI, &raw, name, log); err != nil {
			return nil, err
		}
		if raw.NodeId == nil {
			return nil, fmt.Errorf("missing nodeId")
		}
		return ConfigSignal{NodeID: dec(raw.NodeId), Origin: lower(raw.Origin), Option: raw.Option}, nil

	case "CreatedEndpoint":
		var raw struct {
			NodeId   *big.Int //nolint:revive,stylecheck
			Endpoint common.Address
			Owner    common.Address
		}
		if err := unpackLog(contractABI, &raw, name, log); err != nil {
			return nil, err
		}
		if raw.NodeId == nil {
			return nil, fmt.Errorf("missing nodeId")
		}
		return CreatedEndpoint{
			NodeID:   dec(raw.NodeId),
			Endpoint: lower(raw.Endpoint),
			Owner:    lower(raw.Owner),
		}, nil

	case "MembraneChanged":
		var raw struct {
			NodeId           *big.Int //nolint:revive,stylecheck
			PreviousMembrane *big.Int
			NewMembrane      *big.Int
		}
		if err := unpackLog(contractABI, &raw, name, log); err != nil {
			return nil, err
		}
		if raw.NodeId == nil {
			return nil, fmt.Errorf("missing nodeId")
		}
		return MembraneChanged{
			NodeID:           dec(raw.NodeId),
			PreviousMembrane: dec(raw.PreviousMembrane),
			NewMembrane:      dec(raw.NewMembrane),
		}, nil

	case "InflationRateChanged":
		var raw struct {
			NodeId  *big.Int //nolint:revive,stylecheck
			OldRate *big.Int
			NewRate *big.Int
		}
		if err := unpackLog(contractABI, &raw, name, log); err != nil {
			return nil, err
		}
		if raw.NodeId == nil {
			return nil, fmt.Errorf("missing nodeId")
		}
		return InflationRateChanged{
			NodeID:  dec(raw.NodeId),
			OldRate: dec(raw.OldRate),
			NewRate: dec(raw.NewRate),
		}, nil

	case "SharesGenerated":
		var raw struct {
			NodeId *big.Int //nolint:revive,stylecheck
			Amount *big.Int
		}
		if err := unpackLog(contractABI, &raw, name, log); err != nil {
			return nil, err
		}
		if raw.NodeId == nil {
			return nil, fmt.Errorf("missing nodeId")
		}
		return SharesGenerated{NodeID: dec(raw.NodeId), Amount: dec(raw.Amount)}, nil

	case "Minted":
		var raw struct {
			NodeId *big.Int //nolint:revive,stylecheck
			To     common.Address
			Amount *big.Int
		}
		if err := unpackLog(contractABI, &raw, name, log); err != nil {
			return nil, err
		}
		if raw.NodeId == nil {
			return nil, fmt.Errorf("missing nodeId")
		}
		return Minted{NodeID: dec(raw.NodeId), To: lower(raw.To), Amount: dec(raw.Amount)}, nil

	case "Burned":
		var raw struct {
			NodeId *big.Int //nolint:revive,stylecheck
			From   common.Address
			Amount *big.Int
		}
		if err := unpackLog(contractABI, &raw, name, log); err != nil {
			return nil, err
		}
		if raw.NodeId == nil {
			return nil, fmt.Errorf("missing nodeId")
		}
		return Burned{NodeID: dec(raw.NodeId), From: lower(raw.From), Amount: dec(raw.Amount)}, nil

	case "Signaled":
		var raw struct {
			NodeId *big.Int //nolint:revive,stylecheck
			Who    common.Address
			Value  *big.Int
		}
		if err := unpackLog(contractABI, &raw, name, log); err != nil {
			return nil, err
		}
		if raw.NodeId == nil {
			return nil, fmt.Errorf("missing nodeId")
		}
		return Signaled{NodeID: dec(raw.NodeId), Who: lower(raw.Who), Value: dec(raw.Value)}, nil

	case "Resignaled":
		var raw struct {
			NodeId *big.Int //nolint:revive,stylecheck
			Who    common.Address
			Value  *big.Int
		}
		if err := unpackLog(contractABI, &raw, name, log); err != nil {
			return nil, err
		}
		if raw.NodeId == nil {
			return nil, fmt.Errorf("missing nodeId")
		}
		return Resignaled{NodeID: dec(raw.NodeId), Who: lower(raw.Who), Value: dec(raw.Value)}, nil

	case "MembraneSignal":
		var raw struct {
			NodeId     *big.Int //nolint:revive,stylecheck
			Who        common.Address
			MembraneId *big.Int //nolint:revive,stylecheck
		}
		if err := unpackLog(contractABI, &raw, name, log); err != nil {
			return nil, err
		}
		if raw.NodeId == nil {
			return nil, fmt.Errorf("missing nodeId")
		}
		return MembraneSignal{
			NodeID:     dec(raw.NodeId),
			Who:        lower(raw.Who),
			MembraneID: dec(raw.MembraneId),
		}, nil

	case "InflationSignal":
		var raw struct {
			NodeId *big.Int //nolint:revive,stylecheck
			Who    common.Address
			Rate   *big.Int
		}
		if err := unpackLog(contractABI, &raw, name, log); err != nil {
			return nil, err
		}
		if raw.NodeId == nil {
			return nil, fmt.Errorf("missing nodeId")
		}
		return InflationSignal{NodeID: dec(raw.NodeId), Who: lower(raw.Who), Rate: dec(raw.Rate)}, nil

	case "NewMovementCreated":
		var raw struct {
			NodeId       *big.Int //nolint:revive,stylecheck
			Initiator    common.Address
			MovementHash [32]byte
			Category     uint8
			ExeAccount   common.Address
			ViaNode      *big.Int
			ExpiresAt    *big.Int
			Description  string
		}
		if err := unpackLog(contractABI, &raw, name, log); err != nil {
			return nil, err
		}
		if raw.NodeId == nil {
			return nil, fmt.Errorf("missing nodeId")
		}
		var expiresAt int64
		if raw.ExpiresAt != nil && raw.ExpiresAt.IsInt64() {
			expiresAt = raw.ExpiresAt.Int64()
		}
		return NewMovementCreated{
			NodeID:       dec(raw.NodeId),
			Initiator:    lower(raw.Initiator),
			MovementHash: hashHex(raw.MovementHash),
			Category:     raw.Category,
			ExeAccount:   lower(raw.ExeAccount),
			ViaNode:      dec(raw.ViaNode),
			ExpiresAt:    expiresAt,
			Description:  raw.Description,
		}, nil

	case "QueueExecuted":
		var raw struct {
			QueueHash [32]byte
			NodeId    *big.Int //nolint:revive,stylecheck
		}
		if err := unpackLog(contractABI, &raw, name, log); err != nil {
			return nil, err
		}
		return QueueExecuted{QueueHash: hashHex(raw.QueueHash), NodeID: dec(raw.NodeId)}, nil

	case "NewSignaturesSubmitted":
		var raw struct {
			QueueHash    [32]byte
			MovementHash [32]byte
			Signer       common.Address
			Signature    []byte
		}
		if err := unpackLog(contractABI, &raw, name, log); err != nil {
			return nil, err
		}
		return NewSignaturesSubmitted{
			QueueHash:    hashHex(raw.QueueHash),
			MovementHash: hashHex(raw.MovementHash),
			Signer:       lower(raw.Signer),
			Signature:    hexutil.Encode(raw.Signature),
		}, nil

	case "SignatureRemoved":
		var raw struct {
			QueueHash [32]byte
			Signer    common.Address
		}
		if err := unpackLog(contractABI, &raw, name, log); err != nil {
			return nil, err
		}
		return SignatureRemoved{QueueHash: hashHex(raw.QueueHash), Signer: lower(raw.Signer)}, nil

	case "WillWeSet":
		var raw struct {
			Implementation common.Address
		}
		if err := unpackLog(contractABI, &raw, name, log); err != nil {
			return nil, err
		}
		return WillWeSet{Implementation: lower(raw.Implementation)}, nil

	case "MembraneCreated":
		var raw struct {
			Creator    common.Address
			MembraneId *big.Int //nolint:revive,stylecheck
			CID        string
		}
		if err := unpackLog(contractABI, &raw, name, log); err != nil {
			return nil, err
		}
		if raw.MembraneId == nil {
			return nil, fmt.Errorf("missing membraneId")
		}
		return MembraneCreated{
			Creator:    lower(raw.Creator),
			MembraneID: dec(raw.MembraneId),
			CID:        raw.CID,
		}, nil

	default:
		return nil, fmt.Errorf("no decoder for event %s", name)
	}
}

// unpackLog decodes both the data section and the indexed topics of a log
// into out, the way abigen bindings do.
func unpackLog(contractABI abi.ABI, out any, name string, log *ethtypes.Log) error {
	event, ok := contractABI.Events[name]
	if !ok {
		return fmt.Errorf("event %s not in ABI", name)
	}

	if len(log.Data) > 0 {
		if err := contractABI.UnpackIntoInterface(out, name, log.Data); err != nil {
			return fmt.Errorf("failed to unpack data: %w", err)
		}
	}

	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}

	if len(indexed) > 0 {
		if len(log.Topics) < len(indexed)+1 {
			return fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(log.Topics))
		}
		if err := abi.ParseTopics(out, indexed, log.Topics[1:len(indexed)+1]); err != nil {
			return fmt.Errorf("failed to parse topics: %w", err)
		}
	}

	return nil
}

func lower(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

func dec(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func decs(values []*big.Int) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, dec(v))
	}
	return out
}

func hashHex(h [32]byte) string {
	return common.Hash(h).Hex()
}
