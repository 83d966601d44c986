// SPDX-License-Identifier: Apache-2.0

package krb5msg

import (
	"testing"
	"time"

	"github.com/jcmturner/gokrb5/v8/iana/chksumtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeReadSafeRoundTrip(t *testing.T) {
	t.Parallel()

	key := sampleKey()
	clock := fixedClock{sec: 1000, usec: sampleUsec}
	cache := NewMemoryCache()

	params := SafeParams{
		Key:       key,
		CksumType: sampleCksumType(),
		SAddress:  sampleSAddress(),
		RAddress:  sampleRAddress(),
		SeqNumber: sampleSeqNumber,
		Flags:     FlagDoSequence,
		Clock:     clock,
		Cache:     cache,
	}

	msg, err := MakeSafe([]byte(sampleData), params)
	require.NoError(t, err)
	require.NotEmpty(t, msg)

	// A fresh cache is required on read because replay entries are
	// per-direction; reuse of the sender's cache would self-reject.
	readParams := params
	readParams.Cache = NewMemoryCache()

	out, err := ReadSafe(msg, readParams)
	require.NoError(t, err)
	assert.Equal(t, sampleData, string(out))
}

func TestReadSafeDetectsTamper(t *testing.T) {
	t.Parallel()

	key := sampleKey()
	clock := fixedClock{sec: 1000, usec: sampleUsec}
	params := SafeParams{
		Key:       key,
		CksumType: sampleCksumType(),
		SAddress:  sampleSAddress(),
		Clock:     clock,
		Cache:     NewMemoryCache(),
	}

	msg, err := MakeSafe([]byte(sampleData), params)
	require.NoError(t, err)

	tampered := append([]byte(nil), msg...)
	tampered[len(tampered)-1] ^= 0xFF

	readParams := params
	readParams.Cache = NewMemoryCache()
	_, err = ReadSafe(tampered, readParams)
	require.Error(t, err)

	var kerr *Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, KindAPErrModified, kerr.Kind)
}

func TestMakeSafeRejectsUnkeyedChecksum(t *testing.T) {
	t.Parallel()

	key := sampleKey()
	params := SafeParams{
		Key:       key,
		CksumType: CksumID(chksumtype.CRC32),
		SAddress:  sampleSAddress(),
		Flags:     FlagNoTime,
	}

	_, err := MakeSafe([]byte(sampleData), params)
	require.Error(t, err)

	var kerr *Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, KindAPErrInappCksum, kerr.Kind)
}

func TestReadSafeRejectsReplay(t *testing.T) {
	t.Parallel()

	key := sampleKey()
	clock := fixedClock{sec: 1000, usec: sampleUsec}
	cache := NewMemoryCache()
	params := SafeParams{
		Key:       key,
		CksumType: sampleCksumType(),
		SAddress:  sampleSAddress(),
		Clock:     clock,
		Cache:     cache,
	}

	msg, err := MakeSafe([]byte(sampleData), SafeParams{
		Key:       key,
		CksumType: sampleCksumType(),
		SAddress:  sampleSAddress(),
		Clock:     clock,
		Cache:     NewMemoryCache(),
	})
	require.NoError(t, err)

	_, err = ReadSafe(msg, params)
	require.NoError(t, err)

	_, err = ReadSafe(msg, params)
	require.Error(t, err)

	var kerr *Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, KindAPErrRepeat, kerr.Kind)
}

func TestReadSafeRequiresReplayCacheUnlessNoTime(t *testing.T) {
	t.Parallel()

	key := sampleKey()
	clock := fixedClock{sec: 1000, usec: sampleUsec}
	msg, err := MakeSafe([]byte(sampleData), SafeParams{
		Key:       key,
		CksumType: sampleCksumType(),
		SAddress:  sampleSAddress(),
		Clock:     clock,
		Cache:     NewMemoryCache(),
	})
	require.NoError(t, err)

	_, err = ReadSafe(msg, SafeParams{
		Key:       key,
		CksumType: sampleCksumType(),
		SAddress:  sampleSAddress(),
		Clock:     clock,
	})
	require.Error(t, err)

	var kerr *Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, KindRCRequired, kerr.Kind)
}

func TestReadSafeEnforcesClockSkewBoundary(t *testing.T) {
	orig := CurrentClockSkew()
	defer SetClockSkew(orig)
	SetClockSkew(10 * time.Second)

	key := sampleKey()
	makeClock := fixedClock{sec: 1000, usec: 0}
	msg, err := MakeSafe([]byte(sampleData), SafeParams{
		Key:       key,
		CksumType: sampleCksumType(),
		SAddress:  sampleSAddress(),
		Clock:     makeClock,
		Cache:     NewMemoryCache(),
	})
	require.NoError(t, err)

	// Exactly at the skew boundary (diff == clock_skew) must fail, per
	// spec §8: "at the boundary T - now == clock_skew the call fails".
	_, err = ReadSafe(msg, SafeParams{
		Key:       key,
		CksumType: sampleCksumType(),
		SAddress:  sampleSAddress(),
		Clock:     fixedClock{sec: 1010, usec: 0},
		Cache:     NewMemoryCache(),
	})
	require.Error(t, err)
	var kerr *Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, KindAPErrSkew, kerr.Kind)

	// Just inside the window must succeed.
	_, err = ReadSafe(msg, SafeParams{
		Key:       key,
		CksumType: sampleCksumType(),
		SAddress:  sampleSAddress(),
		Clock:     fixedClock{sec: 1009, usec: 999999},
		Cache:     NewMemoryCache(),
	})
	require.NoError(t, err)
}

func TestReadSafeReplayCacheCheckedBeforeSequence(t *testing.T) {
	t.Parallel()

	key := sampleKey()
	clock := fixedClock{sec: 1000, usec: sampleUsec}
	msg, err := MakeSafe([]byte(sampleData), SafeParams{
		Key:       key,
		CksumType: sampleCksumType(),
		SAddress:  sampleSAddress(),
		SeqNumber: sampleSeqNumber,
		Flags:     FlagDoSequence,
		Clock:     clock,
		Cache:     NewMemoryCache(),
	})
	require.NoError(t, err)

	// No Cache and a mismatched sequence number: the spec orders the
	// timestamp/replay-cache check (step 7) before the sequence check
	// (step 8), so RC_REQUIRED must win even though the sequence number
	// is also wrong.
	_, err = ReadSafe(msg, SafeParams{
		Key:       key,
		CksumType: sampleCksumType(),
		SAddress:  sampleSAddress(),
		SeqNumber: sampleSeqNumber + 1,
		Flags:     FlagDoSequence,
		Clock:     clock,
	})
	require.Error(t, err)

	var kerr *Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, KindRCRequired, kerr.Kind)
}

func TestReadSafeRejectsWrongSenderAddress(t *testing.T) {
	t.Parallel()

	key := sampleKey()
	clock := fixedClock{sec: 1000, usec: sampleUsec}
	msg, err := MakeSafe([]byte(sampleData), SafeParams{
		Key:       key,
		CksumType: sampleCksumType(),
		SAddress:  sampleSAddress(),
		Clock:     clock,
		Flags:     FlagNoTime,
	})
	require.NoError(t, err)

	wrongSender := Address{Type: AddressTypeIPv4, Contents: []byte{192, 168, 1, 1}}
	_, err = ReadSafe(msg, SafeParams{
		Key:       key,
		CksumType: sampleCksumType(),
		SAddress:  wrongSender,
		Clock:     clock,
		Flags:     FlagNoTime,
	})
	require.Error(t, err)

	var kerr *Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, KindAPErrBadAddr, kerr.Kind)
}
