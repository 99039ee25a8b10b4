package prover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wellFormedProof(scaledPrice int64) *Proof {
	blob := make([]byte, MinProofLen)
	for i := range blob {
		blob[i] = byte(i%251 + 1)
	}
	return &Proof{
		Proof:        blob,
		PublicInputs: [][]byte{PriceToPublicInput(scaledPrice)},
	}
}

func TestValidate(t *testing.T) {
	const scaled = int64(1000100000)

	tests := []struct {
		name    string
		mutate  func(*Proof)
		wantErr error
	}{
		{name: "well formed", mutate: func(*Proof) {}},
		{
			name:    "empty proof",
			mutate:  func(p *Proof) { p.Proof = nil },
			wantErr: ErrEmptyProof,
		},
		{
			name:    "too short",
			mutate:  func(p *Proof) { p.Proof = p.Proof[:MinProofLen-1] },
			wantErr: ErrProofTooShort,
		},
		{
			name: "zero prefix",
			mutate: func(p *Proof) {
				for i := 0; i < 64; i++ {
					p.Proof[i] = 0
				}
			},
			wantErr: ErrZeroProofPrefix,
		},
		{
			name:    "no public inputs",
			mutate:  func(p *Proof) { p.PublicInputs = nil },
			wantErr: ErrNoPublicInputs,
		},
		{
			name:    "narrow public input",
			mutate:  func(p *Proof) { p.PublicInputs[0] = p.PublicInputs[0][:16] },
			wantErr: ErrMalformedPublicInput,
		},
		{
			name:    "price mismatch",
			mutate:  func(p *Proof) { p.PublicInputs[0] = PriceToPublicInput(scaled + circuitPriceDivisor) },
			wantErr: ErrPriceMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proof := wellFormedProof(scaled)
			tt.mutate(proof)
			err := Validate(proof, scaled)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateNilProof(t *testing.T) {
	assert.ErrorIs(t, Validate(nil, 1), ErrEmptyProof)
}

func TestCircuitPrice(t *testing.T) {
	tests := []struct {
		name   string
		scaled int64
		want   int64
	}{
		{name: "two decimal price", scaled: 1000100000, want: 10001},
		{name: "round figure", scaled: 420000000, want: 4200},
		{name: "sub-cent precision dropped", scaled: 1000199999, want: 10001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CircuitPrice(tt.scaled))
		})
	}
}

func TestPriceToPublicInput(t *testing.T) {
	input := PriceToPublicInput(1000100000)
	require.Len(t, input, PublicInputLen)

	// 10001 = 0x2711, big-endian in the trailing bytes.
	assert.Equal(t, byte(0x27), input[30])
	assert.Equal(t, byte(0x11), input[31])
	for i := 0; i < 30; i++ {
		assert.Zero(t, input[i])
	}
}

func TestReplayKey(t *testing.T) {
	// keccak256 of the empty string.
	assert.Equal(t,
		"c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		ReplayKey(nil),
	)

	proof := wellFormedProof(1000100000)
	first := ReplayKey(proof.Proof)
	assert.Equal(t, first, ReplayKey(proof.Proof))
	assert.Len(t, first, 64)

	proof.Proof[100]++
	assert.NotEqual(t, first, ReplayKey(proof.Proof))
}
