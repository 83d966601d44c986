// SPDX-License-Identifier: Apache-2.0

package krb5msg

import (
	"crypto/subtle"
	"fmt"

	"github.com/jcmturner/gokrb5/v8/types"
)

// SafeParams bundles the inputs to MakeSafe/ReadSafe. The three
// collaborators (Registry, Codec, Clock) default to the package's
// production implementations when left nil; Cache has no default because
// whether one is required depends on Flags (§4.3).
type SafeParams struct {
	Key       types.EncryptionKey
	CksumType CksumID
	SAddress  Address
	RAddress  Address // zero value means "not present"
	SeqNumber int64
	Flags     Flags

	Registry CryptoRegistry
	Codec    Codec
	Clock    Clock
	Cache    Cache
}

func (p *SafeParams) registry() CryptoRegistry {
	if p.Registry != nil {
		return p.Registry
	}
	return DefaultRegistry
}

func (p *SafeParams) codec() Codec {
	if p.Codec != nil {
		return p.Codec
	}
	return DefaultCodec
}

func (p *SafeParams) clock() Clock {
	if p.Clock != nil {
		return p.Clock
	}
	return DefaultClock
}

// MakeSafe builds a KRB-SAFE message protecting userData with a keyed
// checksum under p.Key, following krb5_mk_safe (mk_safe.c): the message is
// encoded once with a placeholder checksum (type 0, a single zero octet), the real checksum
// is computed over that encoding, and the body is then re-encoded with the
// real checksum installed - the "double encode" the checksum's own length
// prevents from being predicted any other way.
func MakeSafe(userData []byte, p SafeParams) ([]byte, error) {
	const op = "make_safe"
	reg := p.registry()

	if !reg.ValidCksumtype(p.CksumType) {
		return nil, newError(op, KindProgSumtypeNoSupp, nil)
	}
	if !reg.IsKeyed(p.CksumType) || !reg.IsCollisionProof(p.CksumType) {
		return nil, newError(op, KindAPErrInappCksum, nil)
	}

	body := safeBody{
		UserData: userData,
		SAddress: p.SAddress.toHostAddress(),
	}
	if p.RAddress.Contents != nil {
		body.RAddress = p.RAddress.toHostAddress()
	}

	var sec int64
	var usec int32
	if p.Flags&FlagNoTime == 0 {
		if p.Cache == nil {
			return nil, newError(op, KindRCRequired, nil)
		}
		sec, usec = p.clock().Now()
		body.Timestamp = sec
		body.Usec = usec
	}
	if p.Flags&FlagDoSequence != 0 {
		body.SeqNumber = p.SeqNumber
	}

	codec := p.codec()

	msg := newSafeMsg()
	msg.Body = body
	msg.Cksum = checksumField{CksumType: 0, Checksum: []byte{0}}

	placeholder, err := codec.EncodeSafe(msg)
	if err != nil {
		return nil, newError(op, KindEncoding, err)
	}

	sum, err := reg.CalculateChecksum(p.CksumType, placeholder, p.Key.KeyValue)
	if err != nil {
		return nil, newError(op, KindEncoding, err)
	}

	msg.Cksum = checksumField{CksumType: int32(p.CksumType), Checksum: sum}
	out, err := codec.EncodeSafe(msg)
	if err != nil {
		return nil, newError(op, KindEncoding, err)
	}

	if p.Flags&FlagNoTime == 0 {
		if p.Cache == nil {
			return nil, newError(op, KindRCRequired, nil)
		}
		entry := Entry{
			Client:    p.SAddress.String(),
			Timestamp: sec,
			Usec:      usec,
			SeqNumber: p.SeqNumber,
			Tag:       "_safe",
		}
		// The original's own comment doubts whether a store failure here
		// should abort the call; we keep its literal behaviour and
		// propagate rather than silently swallow it.
		if err := p.Cache.Store(entry); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// ReadSafe validates and opens a KRB-SAFE message produced by MakeSafe,
// following krb5_rd_safe (part of the rd_priv.c family of checks shared with
// ReadPriv): checksum type support, checksum recomputation over the
// placeholder-checksum encoding, clock skew, replay detection,
// sequence-number policy and address policy, in that order, matching the original's
// cleanup-on-first-failure control flow.
func ReadSafe(raw []byte, p SafeParams) ([]byte, error) {
	const op = "read_safe"
	reg := p.registry()
	codec := p.codec()

	msg, err := codec.DecodeSafe(raw)
	if err != nil {
		return nil, newError(op, KindDecoding, err)
	}

	cksumType := CksumID(msg.Cksum.CksumType)
	if !reg.ValidCksumtype(cksumType) {
		return nil, newError(op, KindProgSumtypeNoSupp, nil)
	}
	if !reg.IsKeyed(cksumType) || !reg.IsCollisionProof(cksumType) {
		return nil, newError(op, KindAPErrInappCksum, nil)
	}

	received := msg.Cksum.Checksum
	verify := msg
	verify.Cksum = checksumField{CksumType: 0, Checksum: []byte{0}}
	placeholder, err := codec.EncodeSafe(verify)
	if err != nil {
		return nil, newError(op, KindEncoding, err)
	}

	expected, err := reg.CalculateChecksum(cksumType, placeholder, p.Key.KeyValue)
	if err != nil {
		return nil, newError(op, KindEncoding, err)
	}
	if subtle.ConstantTimeCompare(expected, received) != 1 {
		return nil, policyError(op, KindAPErrModified, nil)
	}

	if p.Flags&FlagNoTime == 0 {
		if err := checkTimestamp(p.clock(), msg.Body.Timestamp, msg.Body.Usec); err != nil {
			return nil, policyError(op, KindAPErrSkew, err)
		}
		if p.Cache == nil {
			return nil, newError(op, KindRCRequired, nil)
		}
		entry := Entry{
			Client:    p.SAddress.String(),
			Timestamp: msg.Body.Timestamp,
			Usec:      msg.Body.Usec,
			SeqNumber: msg.Body.SeqNumber,
			Tag:       "_safe",
		}
		if err := p.Cache.Store(entry); err != nil {
			return nil, err
		}
	}

	if p.Flags&FlagDoSequence != 0 {
		if msg.Body.SeqNumber != p.SeqNumber {
			return nil, policyError(op, KindAPErrBadOrder, nil)
		}
	}

	if err := checkAddresses(msg.Body.SAddress, msg.Body.RAddress, p); err != nil {
		return nil, err
	}

	return msg.Body.UserData, nil
}

func checkTimestamp(clock Clock, sec int64, usec int32) error {
	nowSec, nowUsec := clock.Now()
	nowMicros := nowSec*1e6 + int64(nowUsec)
	msgMicros := sec*1e6 + int64(usec)

	diff := nowMicros - msgMicros
	if diff < 0 {
		diff = -diff
	}
	if diff >= CurrentClockSkew().Microseconds() {
		return fmt.Errorf("krb5msg: timestamp outside clock skew window")
	}
	return nil
}

// checkAddresses implements the address policy checks shared by ReadSafe and
// ReadPriv: when the caller supplied p.SAddress, the message's sender address
// must match it exactly; if the message named a recipient address, it must
// match p.RAddress when the caller supplied one, and otherwise be one of the
// process's local addresses (LocalAddresses).
func checkAddresses(sAddr, rAddr types.HostAddress, p SafeParams) error {
	const op = "address_check"

	if p.SAddress.Contents != nil {
		got := fromHostAddress(sAddr)
		if !AddressCompare(got, p.SAddress) {
			return policyError(op, KindAPErrBadAddr, nil)
		}
	}

	if len(rAddr.Address) == 0 {
		return nil
	}
	got := fromHostAddress(rAddr)

	if p.RAddress.Contents != nil {
		if !AddressCompare(got, p.RAddress) {
			return policyError(op, KindAPErrBadAddr, nil)
		}
		return nil
	}

	local, err := LocalAddresses()
	if err != nil {
		return newError(op, KindENOMEM, err)
	}
	if !AddressSearch(got, local) {
		return policyError(op, KindAPErrBadAddr, nil)
	}
	return nil
}
