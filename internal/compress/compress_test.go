package compress

import (
	"bytes"
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompress(t *testing.T) {
	text := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 200))
	random := make([]byte, 4096)
	_, err := rand.Read(random)
	require.NoError(t, err)

	tests := []struct {
		name           string
		data           []byte
		level          Level
		wantCompressed bool
		wantGzipped    bool
	}{
		{"small payload is skipped", []byte("hello"), Balanced, false, false},
		{"fast uses deflate", text, Fast, true, false},
		{"balanced uses deflate", text, Balanced, true, false},
		{"maximum uses gzip", text, Maximum, true, true},
		{"incompressible payload is kept", random, Balanced, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Compress(tt.data, tt.level)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCompressed, res.Compressed)
			assert.Equal(t, tt.wantGzipped, res.Gzipped)

			if !res.Compressed {
				assert.True(t, bytes.Equal(tt.data, res.Data))
				return
			}
			assert.Less(t, len(res.Data), len(tt.data))

			back, err := Decompress(res.Data, res.Gzipped)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(tt.data, back))
		})
	}
}

func TestDecompress_Garbage(t *testing.T) {
	_, err := Decompress([]byte("not gzip"), true)
	assert.Error(t, err)
}
