package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomPasswordHash(t *testing.T) {
	hash, err := HashRoomPassword("hunter2")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")
	assert.NotContains(t, hash, "hunter2")

	ok, err := ComparePasswordAndHash("hunter2", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ComparePasswordAndHash("hunter3", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := HashRoomPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salts must differ")
}

func TestDecodeHashRejectsGarbage(t *testing.T) {
	_, err := ComparePasswordAndHash("x", "plaintext")
	assert.ErrorIs(t, err, ErrInvalidHash)

	_, err = ComparePasswordAndHash("x", "$argon2id$v=1$m=1,t=1,p=1$AAAA$AAAA")
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
}

func TestJWTRoundTrip(t *testing.T) {
	require.NoError(t, Init(time.Hour))
	sid := uuid.New()

	token, err := CreateJWT(sid, "alice")
	require.NoError(t, err)

	claims, err := AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, sid, claims.SessionID)
	assert.Equal(t, "alice", claims.Nick)

	_, err = AuthenticateJWT(token + "x")
	assert.Error(t, err)
}

func TestJWTRejectsOtherKey(t *testing.T) {
	require.NoError(t, Init(0))
	token, err := CreateJWT(uuid.New(), "bob")
	require.NoError(t, err)

	// A restart rotates the keys.
	require.NoError(t, Init(0))
	_, err = AuthenticateJWT(token)
	assert.Error(t, err)
}

func TestDecodeHashReadsParams(t *testing.T) {
	cheap := Params{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}
	hash, err := cheap.Hash("pw")
	require.NoError(t, err)

	p, salt, key, err := DecodeHash(hash)
	require.NoError(t, err)
	assert.Equal(t, cheap, p)
	assert.Len(t, salt, 8)
	assert.Len(t, key, 16)

	_, _, _, err = DecodeHash("$argon2id$v=19$m=x$AAAA$AAAA")
	assert.ErrorIs(t, err, ErrInvalidHash)
}
