package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// MockDimension matches the OpenAI text-embedding-3-small dimension so mock
// vectors fit the same schema.
const MockDimension = 1536

// MockClient produces deterministic unit vectors derived from the text hash.
// Identical text always maps to the same vector, distinct text to vectors that
// are almost certainly dissimilar. Used for local development and tests.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (c *MockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, MockDimension)

	seed := sha256.Sum256([]byte(text))
	var norm float64
	for i := 0; i < MockDimension; i++ {
		// Stretch the 32-byte digest over the full dimension by re-hashing
		// with the chunk index.
		if i%len(seed) == 0 && i > 0 {
			var idx [8]byte
			binary.LittleEndian.PutUint64(idx[:], uint64(i))
			seed = sha256.Sum256(append(seed[:], idx[:]...))
		}
		b := seed[i%len(seed)]
		v := float64(int(b)-128) / 128.0
		vec[i] = float32(v)
		norm += v * v
	}

	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}
