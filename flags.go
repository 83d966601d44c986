// SPDX-License-Identifier: Apache-2.0

package krb5msg

// Flags controls the optional behaviour of MakeSafe/ReadSafe/MakePriv/ReadPriv.
// The bit values are fixed by the Kerberos v5 wire protocol and must not change.
type Flags uint32

const (
	// FlagNoTime omits the timestamp/microsecond fields from the message and
	// skips the replay cache entirely. Unknown bits are ignored by producers
	// and accepted (but ignored) by consumers.
	FlagNoTime Flags = 0x1

	// FlagDoSequence includes (on make) or requires (on read) the sequence
	// number field.
	FlagDoSequence Flags = 0x2
)
