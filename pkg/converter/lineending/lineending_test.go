package lineending_test

import (
	"testing"

	"github.com/PaddyThePaddy/crlf/pkg/converter/lineending"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineEndingString(t *testing.T) {
	assert.Equal(t, "crlf", lineending.CRLF.String())
	assert.Equal(t, "lf", lineending.LF.String())
}

func TestLineEndingBytes(t *testing.T) {
	assert.Equal(t, []byte("\r\n"), lineending.CRLF.Bytes())
	assert.Equal(t, []byte("\n"), lineending.LF.Bytes())
	assert.Nil(t, lineending.LineEnding("cr").Bytes())

	// The returned slice is a copy.
	b := lineending.LF.Bytes()
	b[0] = 'x'
	assert.Equal(t, []byte("\n"), lineending.LF.Bytes())
}

func TestParseLineEnding(t *testing.T) {
	tests := []struct {
		in      string
		want    lineending.LineEnding
		wantErr bool
	}{
		{in: "crlf", want: lineending.CRLF},
		{in: "LF", want: lineending.LF},
		{in: "  CrLf ", want: lineending.CRLF},
		{in: "cr", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := lineending.ParseLineEnding(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, lineending.ErrUnknownLineEnding)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatsClassify(t *testing.T) {
	tests := []struct {
		name   string
		stats  lineending.Stats
		want   lineending.LineEnding
		wantOK bool
	}{
		{name: "empty", stats: lineending.Stats{}},
		{name: "crlf only", stats: lineending.Stats{CRLF: 3}, want: lineending.CRLF, wantOK: true},
		{name: "lf only", stats: lineending.Stats{LF: 2}, want: lineending.LF, wantOK: true},
		{name: "mixed", stats: lineending.Stats{LF: 1, CRLF: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.stats.Classify()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatsTotalAndMixed(t *testing.T) {
	s := lineending.Stats{LF: 2, CRLF: 5}
	assert.Equal(t, uint64(7), s.Total())
	assert.True(t, s.IsMixed())
	assert.False(t, lineending.Stats{LF: 2}.IsMixed())
	assert.False(t, lineending.Stats{}.IsMixed())
}
