package db

import (
	"database/sql"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
)

func init() {
	meddler.Register("hash", hexMeddler[common.Hash]{
		fromHex: common.HexToHash,
		toHex:   common.Hash.Hex,
	})
	meddler.Register("address", hexMeddler[common.Address]{
		fromHex: common.HexToAddress,
		toHex:   common.Address.Hex,
	})
}

// hexMeddler stores fixed-size binary chain types (hashes, addresses) as hex
// TEXT columns. Pointer fields map NULL to nil; value fields map NULL to the
// zero value.
type hexMeddler[T any] struct {
	fromHex func(string) T
	toHex   func(T) string
}

func (m hexMeddler[T]) PreRead(fieldAddr interface{}) (scanTarget interface{}, err error) {
	return new(sql.NullString), nil
}

func (m hexMeddler[T]) PostRead(fieldAddr, scanTarget interface{}) error {
	ns, ok := scanTarget.(*sql.NullString)
	if !ok {
		return fmt.Errorf("expected *sql.NullString, got %T", scanTarget)
	}

	switch ptr := fieldAddr.(type) {
	case **T:
		if !ns.Valid {
			*ptr = nil
			return nil
		}
		v := m.fromHex(ns.String)
		*ptr = &v
		return nil
	case *T:
		if !ns.Valid {
			var zero T
			*ptr = zero
			return nil
		}
		*ptr = m.fromHex(ns.String)
		return nil
	default:
		return fmt.Errorf("expected *%T or **%T, got %T", *new(T), *new(T), fieldAddr)
	}
}

func (m hexMeddler[T]) PreWrite(field interface{}) (saveValue interface{}, err error) {
	switch v := field.(type) {
	case *T:
		if v == nil {
			return nil, nil
		}
		return m.toHex(*v), nil
	case T:
		return m.toHex(v), nil
	default:
		return nil, fmt.Errorf("expected %T or *%T, got %T", *new(T), *new(T), field)
	}
}
