package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/russross/meddler"
)

func init() {
	// Register custom meddler converter for []string stored as a JSON array
	meddler.Register("jsonstrings", StringSliceMeddler{})
}

// StringSliceMeddler stores a []string column as a JSON-encoded array.
// Used for node member lists, children lists, root paths and signal arrays,
// which arrive as arrays of decimal strings.
type StringSliceMeddler struct{}

func (s StringSliceMeddler) PreRead(fieldAddr interface{}) (scanTarget interface{}, err error) {
	return new(sql.NullString), nil
}

func (s StringSliceMeddler) PostRead(fieldAddr, scanTarget interface{}) error {
	ns, ok := scanTarget.(*sql.NullString)
	if !ok {
		return fmt.Errorf("expected *sql.NullString, got %T", scanTarget)
	}

	ptr, ok := fieldAddr.(*[]string)
	if !ok {
		return fmt.Errorf("expected *[]string, got %T", fieldAddr)
	}

	if !ns.Valid || ns.String == "" {
		*ptr = []string{}
		return nil
	}

	var values []string
	if err := json.Unmarshal([]byte(ns.String), &values); err != nil {
		return fmt.Errorf("failed to decode JSON string array: %w", err)
	}
	if values == nil {
		values = []string{}
	}
	*ptr = values

	return nil
}

func (s StringSliceMeddler) PreWrite(field interface{}) (saveValue interface{}, err error) {
	values, ok := field.([]string)
	if !ok {
		return nil, fmt.Errorf("expected []string, got %T", field)
	}

	if values == nil {
		values = []string{}
	}

	encoded, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON string array: %w", err)
	}

	return string(encoded), nil
}
