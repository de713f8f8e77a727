package rpc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type mockDataError struct {
	data any
	msg  string
}

func (m *mockDataError) Error() string {
	return m.msg
}

func (m *mockDataError) ErrorData() any {
	return m.data
}

func TestIsTooManyResultsError(t *testing.T) {
	t.Parallel()

	tooMany := "Query returned more than 20000 results. Try with this block range [0x7dfd25, 0x7e0fcc]."

	tests := []struct {
		name      string
		err       error
		wantMatch bool
		wantData  string
	}{
		{name: "nil error"},
		{name: "plain error", err: errors.New("some other error")},
		{
			name:     "DataError with unrelated message",
			err:      &mockDataError{data: "execution reverted", msg: "execution reverted"},
			wantData: "execution reverted",
		},
		{
			name:      "DataError with too many results message",
			err:       &mockDataError{data: tooMany, msg: tooMany},
			wantMatch: true,
			wantData:  tooMany,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gotMatch, gotData := IsTooManyResultsError(tt.err)

			require.Equal(t, tt.wantMatch, gotMatch)
			require.Equal(t, tt.wantData, gotData)
		})
	}
}

func TestParseSuggestedBlockRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		errMsg   string
		wantFrom uint64
		wantTo   uint64
		wantOK   bool
	}{
		{
			name:     "valid suggestion",
			errMsg:   "Query returned more than 20000 results. Try with this block range [0x7dfd25, 0x7e0fcc].",
			wantFrom: 0x7dfd25,
			wantTo:   0x7e0fcc,
			wantOK:   true,
		},
		{
			name:     "suggestion without space",
			errMsg:   "Try with this block range [0x10,0x20].",
			wantFrom: 0x10,
			wantTo:   0x20,
			wantOK:   true,
		},
		{name: "no range present", errMsg: "Query returned more than 20000 results."},
		{name: "empty message", errMsg: ""},
		{name: "malformed range", errMsg: "Try with this block range [0x10]."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			from, to, ok := ParseSuggestedBlockRange(tt.errMsg)

			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.wantFrom, from)
			require.Equal(t, tt.wantTo, to)
		})
	}
}
