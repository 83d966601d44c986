// SPDX-License-Identifier: Apache-2.0

package krb5msg

import (
	"fmt"

	"github.com/jcmturner/gofork/encoding/asn1"
	"github.com/jcmturner/gokrb5/v8/asn1tools"
	"github.com/jcmturner/gokrb5/v8/iana"
	"github.com/jcmturner/gokrb5/v8/iana/asnAppTag"
	"github.com/jcmturner/gokrb5/v8/iana/msgtype"
	"github.com/jcmturner/gokrb5/v8/krberror"
	"github.com/jcmturner/gokrb5/v8/types"
)

// checksumField is the Checksum ASN.1 production (RFC 4120 §5.2.9), used
// both for the real checksum and for the fixed {0, []byte{0}} placeholder
// the first make_safe encoding pass installs (§4.5 step 5 / §9).
type checksumField struct {
	CksumType int32  `asn1:"explicit,tag:0"`
	Checksum  []byte `asn1:"explicit,tag:1"`
}

// safeBody is KRB-SAFE-BODY (RFC 4120 §5.6.1).
type safeBody struct {
	UserData  []byte            `asn1:"explicit,tag:0"`
	Timestamp int64             `asn1:"optional,explicit,tag:1"`
	Usec      int32             `asn1:"optional,explicit,tag:2"`
	SeqNumber int64             `asn1:"optional,explicit,tag:3"`
	SAddress  types.HostAddress `asn1:"explicit,tag:4"`
	RAddress  types.HostAddress `asn1:"optional,explicit,tag:5"`
}

// safeMsg is KRB-SAFE, [APPLICATION 20] (RFC 4120 §5.6.1). Derived from the
// same hand-rolled-struct-plus-AddASNAppTag recipe as the teacher's
// krb5/APRep.go, generalized to a second application tag.
type safeMsg struct {
	PVNO    int           `asn1:"explicit,tag:0"`
	MsgType int           `asn1:"explicit,tag:1"`
	Body    safeBody      `asn1:"explicit,tag:2"`
	Cksum   checksumField `asn1:"explicit,tag:3"`
}

// privMsg is KRB-PRIV, [APPLICATION 21] (RFC 4120 §5.7.1).
type privMsg struct {
	PVNO    int                 `asn1:"explicit,tag:0"`
	MsgType int                 `asn1:"explicit,tag:1"`
	EncPart types.EncryptedData `asn1:"explicit,tag:3"`
}

// encPrivPartMsg is EncKrbPrivPart, [APPLICATION 28] (RFC 4120 §5.7.1) - the
// plaintext that results from decrypting a KRB-PRIV's enc-part.
type encPrivPartMsg struct {
	UserData  []byte            `asn1:"explicit,tag:0"`
	Timestamp int64             `asn1:"optional,explicit,tag:1"`
	Usec      int32             `asn1:"optional,explicit,tag:2"`
	SeqNumber int64             `asn1:"optional,explicit,tag:3"`
	SAddress  types.HostAddress `asn1:"explicit,tag:4"`
	RAddress  types.HostAddress `asn1:"optional,explicit,tag:5"`
}

// Codec is the ASN.1 round-trip contract consumed by the message layer
// (§4.2). The production implementation is asn1Codec; tests may substitute
// a fake to exercise make_safe/read_priv's error handling in isolation.
type Codec interface {
	EncodeSafe(msg safeMsg) ([]byte, error)
	DecodeSafe(b []byte) (safeMsg, error)
	EncodePriv(msg privMsg) ([]byte, error)
	DecodePriv(b []byte) (privMsg, error)
	EncodeEncPrivPart(msg encPrivPartMsg) ([]byte, error)
	DecodeEncPrivPart(b []byte) (encPrivPartMsg, error)
	IsKrbPriv(b []byte) bool
}

type asn1Codec struct{}

// DefaultCodec is the production Codec used when callers do not supply one.
var DefaultCodec Codec = asn1Codec{}

func (asn1Codec) EncodeSafe(msg safeMsg) ([]byte, error) {
	b, err := asn1.Marshal(msg)
	if err != nil {
		return nil, krberror.Errorf(err, krberror.EncodingError, "error marshaling KRB-SAFE")
	}
	return asn1tools.AddASNAppTag(b, asnAppTag.KRBSafe), nil
}

func (asn1Codec) DecodeSafe(b []byte) (safeMsg, error) {
	var m safeMsg
	_, err := asn1.UnmarshalWithParams(b, &m, fmt.Sprintf("application,explicit,tag:%d", asnAppTag.KRBSafe))
	if err != nil {
		return safeMsg{}, krberror.Errorf(err, krberror.EncodingError, "error unmarshaling KRB-SAFE")
	}
	if m.MsgType != msgtype.KRB_SAFE {
		return safeMsg{}, krberror.NewErrorf(krberror.KRBMsgError, "message ID does not indicate a KRB-SAFE, expected: %d, actual: %d", msgtype.KRB_SAFE, m.MsgType)
	}
	return m, nil
}

func (asn1Codec) EncodePriv(msg privMsg) ([]byte, error) {
	b, err := asn1.Marshal(msg)
	if err != nil {
		return nil, krberror.Errorf(err, krberror.EncodingError, "error marshaling KRB-PRIV")
	}
	return asn1tools.AddASNAppTag(b, asnAppTag.KRBPriv), nil
}

func (asn1Codec) DecodePriv(b []byte) (privMsg, error) {
	var m privMsg
	_, err := asn1.UnmarshalWithParams(b, &m, fmt.Sprintf("application,explicit,tag:%d", asnAppTag.KRBPriv))
	if err != nil {
		return privMsg{}, krberror.Errorf(err, krberror.EncodingError, "error unmarshaling KRB-PRIV")
	}
	if m.MsgType != msgtype.KRB_PRIV {
		return privMsg{}, krberror.NewErrorf(krberror.KRBMsgError, "message ID does not indicate a KRB-PRIV, expected: %d, actual: %d", msgtype.KRB_PRIV, m.MsgType)
	}
	return m, nil
}

func (asn1Codec) EncodeEncPrivPart(msg encPrivPartMsg) ([]byte, error) {
	b, err := asn1.Marshal(msg)
	if err != nil {
		return nil, krberror.Errorf(err, krberror.EncodingError, "error marshaling EncKrbPrivPart")
	}
	return asn1tools.AddASNAppTag(b, asnAppTag.EncKrbPrivPart), nil
}

func (asn1Codec) DecodeEncPrivPart(b []byte) (encPrivPartMsg, error) {
	var m encPrivPartMsg
	_, err := asn1.UnmarshalWithParams(b, &m, fmt.Sprintf("application,explicit,tag:%d", asnAppTag.EncKrbPrivPart))
	if err != nil {
		return encPrivPartMsg{}, krberror.Errorf(err, krberror.EncodingError, "error unmarshaling EncKrbPrivPart")
	}
	return m, nil
}

// IsKrbPriv inspects just the outer application tag octet, the way the
// original krb5_is_krb_priv avoids a full decode merely to route a buffer.
func (asn1Codec) IsKrbPriv(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	// [APPLICATION n] constructed tag encodes as 0x60 | n in the single-byte
	// identifier form that every KRB-PRIV buffer uses.
	return b[0] == byte(0x60|asnAppTag.KRBPriv)
}

func newSafeMsg() safeMsg {
	return safeMsg{
		PVNO:    iana.PVNO,
		MsgType: msgtype.KRB_SAFE,
	}
}

func newPrivMsg() privMsg {
	return privMsg{
		PVNO:    iana.PVNO,
		MsgType: msgtype.KRB_PRIV,
	}
}
