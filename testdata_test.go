// SPDX-License-Identifier: Apache-2.0

package krb5msg

import (
	"github.com/jcmturner/gokrb5/v8/iana/chksumtype"
	"github.com/jcmturner/gokrb5/v8/iana/etypeID"
	"github.com/jcmturner/gokrb5/v8/types"
)

// Sample data from MIT Kerberos v1.19.1, src/tests/asn.1/ktest.h, reused
// here the way the teacher's krb5/sample_test.go reuses it for AP-REP.
const (
	sampleUsec      = 123456
	sampleSeqNumber = 17
	sampleData      = "krb5data"
)

func sampleKey() types.EncryptionKey {
	return types.EncryptionKey{
		KeyType:          int32(etypeID.AES256_CTS_HMAC_SHA1_96),
		KeyValue:         []byte("0123456789abcdef0123456789abcdef"),
		KeyVersionNumber: 1,
	}
}

func sampleCksumType() CksumID {
	return CksumID(chksumtype.HMACSHA1_96AES256)
}

func sampleSAddress() Address {
	return Address{Type: AddressTypeIPv4, Contents: []byte{10, 0, 0, 1}}
}

func sampleRAddress() Address {
	return Address{Type: AddressTypeIPv4, Contents: []byte{10, 0, 0, 2}}
}

// fixedClock is a Clock that never advances, so tests can assert on exact
// Timestamp/Usec fields instead of racing the wall clock.
type fixedClock struct {
	sec  int64
	usec int32
}

func (c fixedClock) Now() (int64, int32) { return c.sec, c.usec }
