// SPDX-License-Identifier: Apache-2.0

package krb5msg

import (
	"testing"

	"github.com/jcmturner/gokrb5/v8/iana/chksumtype"
	"github.com/jcmturner/gokrb5/v8/iana/etypeID"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC32IsNeitherKeyedNorCollisionProof(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry
	id := CksumID(chksumtype.CRC32)
	assert.True(t, reg.ValidCksumtype(id))
	assert.False(t, reg.IsKeyed(id))
	assert.False(t, reg.IsCollisionProof(id))
}

func TestRSAMD5IsCollisionProofButNotKeyed(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry
	id := CksumID(chksumtype.RSAMD5)
	assert.True(t, reg.IsCollisionProof(id))
	assert.False(t, reg.IsKeyed(id))
}

func TestHMACSHA1AES256IsKeyedAndCollisionProof(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry
	id := CksumID(chksumtype.HMACSHA1_96AES256)
	assert.True(t, reg.IsKeyed(id))
	assert.True(t, reg.IsCollisionProof(id))

	size, err := reg.ChecksumSize(id)
	require.NoError(t, err)
	assert.Equal(t, 12, size)
}

func TestValidEtype(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry
	assert.True(t, reg.ValidEtype(EType(etypeID.AES256_CTS_HMAC_SHA1_96)))
	assert.False(t, reg.ValidEtype(EType(9999)))
}

func TestUseCstypeRoundTrip(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry
	ks, err := reg.UseCstype(EType(etypeID.AES256_CTS_HMAC_SHA1_96))
	require.NoError(t, err)
	defer ks.Finish()

	key := []byte("0123456789abcdef0123456789abcdef")
	require.NoError(t, ks.ProcessKey(key))

	ct, err := ks.Encrypt([]byte("hello world"), usagePrivPart)
	require.NoError(t, err)

	pt, err := ks.Decrypt(ct, usagePrivPart)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(pt))
}
