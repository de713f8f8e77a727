package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockFinality(t *testing.T) {
	tests := []struct {
		name      string
		finality  BlockFinality
		wantValid bool
	}{
		{name: "finalized", finality: FinalityFinalized, wantValid: true},
		{name: "safe", finality: FinalitySafe, wantValid: true},
		{name: "latest", finality: FinalityLatest, wantValid: true},
		{name: "invalid", finality: BlockFinality("pending"), wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.wantValid, tt.finality.IsValid())
			require.Equal(t, string(tt.finality), tt.finality.String())
		})
	}
}

func TestParseBlockFinality(t *testing.T) {
	tests := []struct {
		input     string
		want      BlockFinality
		wantError bool
	}{
		{input: "finalized", want: FinalityFinalized},
		{input: "safe", want: FinalitySafe},
		{input: "latest", want: FinalityLatest},
		{input: "pending", wantError: true},
		{input: "", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBlockFinality(tt.input)
			if tt.wantError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
