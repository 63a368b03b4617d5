package store

import (
	"encoding/binary"
	"math"
)

// serializeVector converts a float32 slice to little-endian raw bytes.
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts raw bytes back to a float32 slice.
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// serializeMatrix flattens a T x D matrix row-major into raw bytes.
func serializeMatrix(matrix [][]float32) []byte {
	if len(matrix) == 0 {
		return nil
	}
	dim := len(matrix[0])
	blob := make([]byte, 0, len(matrix)*dim*4)
	for _, row := range matrix {
		blob = append(blob, serializeVector(row)...)
	}
	return blob
}

// deserializeMatrix shapes raw bytes back into a tokenCount x dim matrix.
// Returns nil when the blob length disagrees with the declared shape.
func deserializeMatrix(blob []byte, tokenCount, dim int) [][]float32 {
	if tokenCount <= 0 || dim <= 0 || len(blob) != tokenCount*dim*4 {
		return nil
	}
	matrix := make([][]float32, tokenCount)
	for i := 0; i < tokenCount; i++ {
		matrix[i] = deserializeVector(blob[i*dim*4 : (i+1)*dim*4])
	}
	return matrix
}

// isFinite reports whether every component is a finite float.
func isFinite(vector []float32) bool {
	for _, v := range vector {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// SerializeVector is an exported helper for testing.
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing.
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}
