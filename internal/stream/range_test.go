package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRange(t *testing.T) {
	const size = 100

	tests := []struct {
		name    string
		header  string
		want    ByteRange
		partial bool
		err     error
	}{
		{name: "absent", header: ""},
		{name: "closed", header: "bytes=10-19", want: ByteRange{10, 19}, partial: true},
		{name: "open end", header: "bytes=90-", want: ByteRange{90, 99}, partial: true},
		{name: "missing start", header: "bytes=-20", want: ByteRange{0, 20}, partial: true},
		{name: "single byte", header: "bytes=0-0", want: ByteRange{0, 0}, partial: true},
		{name: "last byte", header: "bytes=99-99", want: ByteRange{99, 99}, partial: true},
		{name: "end clamped", header: "bytes=50-1000", want: ByteRange{50, 99}, partial: true},
		{name: "whitespace", header: "  bytes= 5 - 9 ", want: ByteRange{5, 9}, partial: true},
		{name: "wrong unit", header: "items=0-5"},
		{name: "no dash", header: "bytes=5"},
		{name: "both missing", header: "bytes=-"},
		{name: "not a number", header: "bytes=abc-def"},
		{name: "negative", header: "bytes=--5"},
		{name: "multi range", header: "bytes=0-1,5-6"},
		{name: "start past end of file", header: "bytes=100-", partial: true, err: ErrRangeNotSatisfiable},
		{name: "start after end", header: "bytes=20-10", partial: true, err: ErrRangeNotSatisfiable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, partial, err := ParseRange(tt.header, size)
			assert.Equal(t, tt.partial, partial)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			assert.NoError(t, err)
			if tt.partial {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseRange_EmptyFile(t *testing.T) {
	_, partial, err := ParseRange("bytes=0-", 0)
	assert.True(t, partial)
	assert.ErrorIs(t, err, ErrRangeNotSatisfiable)

	_, partial, err = ParseRange("", 0)
	assert.False(t, partial)
	assert.NoError(t, err)
}

func TestParseRange_WithinBounds(t *testing.T) {
	for size := int64(1); size <= 64; size++ {
		for start := int64(0); start < size; start++ {
			for end := start; end < size+3; end++ {
				r, partial, err := ParseRange(formatRange(start, end), size)
				if !assert.NoError(t, err) || !assert.True(t, partial) {
					return
				}
				assert.True(t, r.Start >= 0 && r.Start <= r.End && r.End < size)
				assert.Equal(t, min(end, size-1)-start+1, r.Length())
			}
		}
	}
}
