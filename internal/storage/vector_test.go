package storage

import (
	"database/sql/driver"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorEncoding(t *testing.T) {
	vec := []float32{0.5, -1.25, 3, 0}

	blob := encodeVector(vec)
	require.Len(t, blob, 16)

	decoded, err := decodeVector(blob)
	require.NoError(t, err)
	assert.Equal(t, vec, decoded)

	empty, err := decodeVector(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 0}, b: []float32{1, 0}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "unnormalized", a: []float32{3, 4}, b: []float32{6, 8}, want: 1},
		{name: "zero magnitude", a: []float32{0, 0}, b: []float32{1, 0}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	_, err := cosineSimilarity([]float32{1}, []float32{1, 0})
	assert.Error(t, err)
}

func TestVecCosineSQLFunction(t *testing.T) {
	got, err := vecCosine(nil, []driver.Value{encodeVector([]float32{1, 1}), encodeVector([]float32{1, 1})})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got.(float64), 1e-9)

	got, err = vecCosine(nil, []driver.Value{nil, encodeVector([]float32{1})})
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = vecCosine(nil, []driver.Value{"text", encodeVector([]float32{1})})
	assert.Error(t, err)
}

func TestBlobKey(t *testing.T) {
	assert.Equal(t, "abc.pdf", BlobKey("abc", "Resume.PDF"))
	assert.Equal(t, "abc", BlobKey("abc", ""))
}
