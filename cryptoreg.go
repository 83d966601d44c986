// SPDX-License-Identifier: Apache-2.0

package krb5msg

import (
	"fmt"

	"github.com/jcmturner/gokrb5/v8/crypto"
	"github.com/jcmturner/gokrb5/v8/crypto/etype"
	"github.com/jcmturner/gokrb5/v8/iana/chksumtype"
	"github.com/jcmturner/gokrb5/v8/iana/etypeID"
)

// EType identifies a Kerberos encryption type (RFC 3961 §8).
type EType int32

// CksumID identifies a Kerberos checksum type (RFC 3961 §8, RFC 4120 §7.5.1).
type CksumID int32

// CryptoRegistry is the capability table the message layer consults for
// everything cryptographic. It never references a specific algorithm by
// name: adding support for a new etype or checksum type means adding a row
// to the underlying table, not touching safe.go/priv.go.
type CryptoRegistry interface {
	ValidEtype(id EType) bool
	ValidCksumtype(id CksumID) bool

	// IsCollisionProof and IsKeyed are checked together: a checksum type is
	// usable for message authentication only when both hold.
	IsCollisionProof(id CksumID) bool
	IsKeyed(id CksumID) bool

	ChecksumSize(id CksumID) (int, error)
	CalculateChecksum(id CksumID, data, key []byte) ([]byte, error)

	// UseCstype binds an encryption type to a new KeySchedule. Callers must
	// call ProcessKey before Encrypt/Decrypt and must call Finish exactly
	// once the schedule is no longer needed, on every exit path.
	UseCstype(id EType) (*KeySchedule, error)
}

// KeySchedule is the scoped key-preparation/release pair from §4.1:
// UseCstype + ProcessKey acquire it, Finish always releases it. Modeled as
// a value type (rather than a context-wide global) so concurrent calls on
// distinct KeySchedules never interfere.
type KeySchedule struct {
	etype etype.EType
	key   []byte
}

// BlockLength returns the cipher's block size in bytes, used both for CBC
// chaining (ivec) and for locating the last ciphertext block.
func (ks *KeySchedule) BlockLength() int {
	return ks.etype.GetCypherBlockLength()
}

// ProcessKey stashes the key bytes for use by Encrypt/Decrypt. It performs
// no key-schedule expansion of its own (gokrb5's EType methods are already
// stateless per call) but is kept as an explicit step to preserve the
// scoped-acquisition shape described in the design notes.
func (ks *KeySchedule) ProcessKey(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("krb5msg: empty key")
	}
	ks.key = key
	return nil
}

// Finish releases the key schedule. The key bytes passed to ProcessKey are
// owned by the caller and are not zeroized here; the plaintext/ciphertext
// buffers returned by Encrypt/Decrypt are not zeroized by this package
// either.
func (ks *KeySchedule) Finish() {
	ks.key = nil
	ks.etype = nil
}

// Decrypt decrypts ciphertext of the given key usage. It takes no external
// IV: gokrb5's DecryptMessage is stateless with respect to IV chaining, so no
// caller-held chaining state enters the cipher. ReadPriv copies the last
// ciphertext block into the caller's Ivec afterwards (see updateIvec).
func (ks *KeySchedule) Decrypt(ciphertext []byte, usage uint32) ([]byte, error) {
	return ks.etype.DecryptMessage(ks.key, ciphertext, usage)
}

// Encrypt seals plaintext under the given key usage.
func (ks *KeySchedule) Encrypt(plaintext []byte, usage uint32) ([]byte, error) {
	_, ct, err := ks.etype.EncryptMessage(ks.key, plaintext, usage)
	return ct, err
}

// gokrb5Registry adapts github.com/jcmturner/gokrb5/v8/crypto's etype
// registry to the CryptoRegistry interface, the way the teacher's
// message_token.go wraps the same package's crypto.GetEtype calls.
type gokrb5Registry struct{}

// DefaultRegistry is the production CryptoRegistry used when callers do not
// supply one explicitly.
var DefaultRegistry CryptoRegistry = gokrb5Registry{}

func (gokrb5Registry) ValidEtype(id EType) bool {
	_, err := crypto.GetEtype(int32(id))
	return err == nil
}

func (gokrb5Registry) ValidCksumtype(id CksumID) bool {
	_, ok := cksumTable[id]
	return ok
}

func (gokrb5Registry) IsCollisionProof(id CksumID) bool {
	info, ok := cksumTable[id]
	return ok && info.collisionProof
}

func (gokrb5Registry) IsKeyed(id CksumID) bool {
	info, ok := cksumTable[id]
	return ok && info.keyed
}

func (gokrb5Registry) ChecksumSize(id CksumID) (int, error) {
	info, ok := cksumTable[id]
	if !ok {
		return 0, fmt.Errorf("krb5msg: unsupported checksum type %d", id)
	}
	return info.size, nil
}

func (gokrb5Registry) CalculateChecksum(id CksumID, data, key []byte) ([]byte, error) {
	info, ok := cksumTable[id]
	if !ok {
		return nil, fmt.Errorf("krb5msg: unsupported checksum type %d", id)
	}
	if !info.keyed {
		return nil, fmt.Errorf("krb5msg: checksum type %d has no keyed implementation here", id)
	}

	et, err := crypto.GetEtype(info.etypeID)
	if err != nil {
		return nil, err
	}

	return et.GetChecksumHash(key, data, uint32(info.usage))
}

func (gokrb5Registry) UseCstype(id EType) (*KeySchedule, error) {
	et, err := crypto.GetEtype(int32(id))
	if err != nil {
		return nil, err
	}
	return &KeySchedule{etype: et}, nil
}

// cksumInfo maps a Kerberos checksum type to the encryption type whose key
// schedule computes it (for keyed checksums), its keyed/collision-proof
// status, and its on-the-wire length. The message layer never sees this
// table directly - only the CryptoRegistry predicates built from it.
type cksumInfo struct {
	etypeID        int32
	usage          uint32
	size           int
	keyed          bool
	collisionProof bool
}

// key usages for the keyed-checksum calculations below, per RFC 3961 §7.5.1.
const (
	usageKrbSafeChecksum = 15
	usageKrbPrivPart     = 13 // KRB-PRIV encrypted part, used by priv.go's Encrypt/Decrypt calls
)

var cksumTable = map[CksumID]cksumInfo{
	CksumID(chksumtype.CRC32):             {size: 4, keyed: false, collisionProof: false},
	CksumID(chksumtype.RSAMD4):            {size: 16, keyed: false, collisionProof: true},
	CksumID(chksumtype.RSAMD4DES):         {etypeID: etypeID.DES3_CBC_SHA1_KD, usage: usageKrbSafeChecksum, size: 24, keyed: true, collisionProof: true},
	CksumID(chksumtype.DESMAC):            {etypeID: etypeID.DES3_CBC_SHA1_KD, usage: usageKrbSafeChecksum, size: 16, keyed: true, collisionProof: false},
	CksumID(chksumtype.RSAMD5):            {size: 16, keyed: false, collisionProof: true},
	CksumID(chksumtype.RSAMD5DES):         {etypeID: etypeID.DES3_CBC_SHA1_KD, usage: usageKrbSafeChecksum, size: 24, keyed: true, collisionProof: true},
	CksumID(chksumtype.HMACSHA1DES3KD):    {etypeID: etypeID.DES3_CBC_SHA1_KD, usage: usageKrbSafeChecksum, size: 20, keyed: true, collisionProof: true},
	CksumID(chksumtype.HMACSHA1_96AES128): {etypeID: etypeID.AES128_CTS_HMAC_SHA1_96, usage: usageKrbSafeChecksum, size: 12, keyed: true, collisionProof: true},
	CksumID(chksumtype.HMACSHA1_96AES256): {etypeID: etypeID.AES256_CTS_HMAC_SHA1_96, usage: usageKrbSafeChecksum, size: 12, keyed: true, collisionProof: true},
}
