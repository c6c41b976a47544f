package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestHasher uses deliberately cheap parameters so tests stay fast.
func newTestHasher() *PasswordHasher {
	return NewPasswordHasher(HashParams{MemoryKiB: 1024, Iterations: 1, Parallelism: 1})
}

func TestHash_VerifyRoundtrip(t *testing.T) {
	hasher := newTestHasher()

	hash, err := hasher.Hash("P@ss1234")
	require.NoError(t, err)

	assert.True(t, hasher.Verify("P@ss1234", hash))
	assert.False(t, hasher.Verify("p@ss1234", hash))
	assert.False(t, hasher.Verify("", hash))
}

func TestHash_SaltRandomization(t *testing.T) {
	hasher := newTestHasher()

	first, err := hasher.Hash("same-password")
	require.NoError(t, err)
	second, err := hasher.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "fresh salt per call must change the encoding")
	assert.True(t, hasher.Verify("same-password", first))
	assert.True(t, hasher.Verify("same-password", second))
}

func TestHash_PHCFormat(t *testing.T) {
	hasher := newTestHasher()

	hash, err := hasher.Hash("secret")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"), "got %q", hash)
	assert.Len(t, strings.Split(hash, "$"), 6)
}

func TestVerify_DifferentPasswords(t *testing.T) {
	hasher := newTestHasher()

	hash, err := hasher.Hash("correct horse battery staple")
	require.NoError(t, err)

	assert.False(t, hasher.Verify("Tr0ub4dor&3", hash))
}

func TestVerify_ParamsComeFromHash(t *testing.T) {
	// A hash produced under one cost configuration must still verify under
	// another; the stored hash's embedded parameters are authoritative.
	old := NewPasswordHasher(HashParams{MemoryKiB: 1024, Iterations: 1, Parallelism: 1})
	current := NewPasswordHasher(HashParams{MemoryKiB: 2048, Iterations: 2, Parallelism: 2})

	hash, err := old.Hash("migrate-me")
	require.NoError(t, err)

	assert.True(t, current.Verify("migrate-me", hash))
}

func TestVerify_MalformedHash(t *testing.T) {
	hasher := newTestHasher()

	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"plaintext", "hunter2"},
		{"bcrypt format", "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"},
		{"wrong algorithm", "$argon2i$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA"},
		{"wrong version", "$argon2id$v=18$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA"},
		{"zero memory", "$argon2id$v=19$m=0,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA"},
		{"missing params", "$argon2id$v=19$m=1024$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA"},
		{"bad salt encoding", "$argon2id$v=19$m=1024,t=1,p=1$!!!!$aGFzaA"},
		{"bad key encoding", "$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$!!!!"},
		{"too few segments", "$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Corrupt hashes must read as a plain verification failure.
			assert.False(t, hasher.Verify("any-password", tt.hash))
		})
	}
}

func TestDefaultHashParams(t *testing.T) {
	p := DefaultHashParams()
	assert.Equal(t, uint32(64*1024), p.MemoryKiB)
	assert.Equal(t, uint32(3), p.Iterations)
	assert.Equal(t, uint8(4), p.Parallelism)
}
