// SPDX-License-Identifier: Apache-2.0

/*
Package krb5msg implements the Kerberos v5 KRB-SAFE and KRB-PRIV
application message types (RFC 4120 §§5.6-5.7): integrity-protected and
confidentiality-protected user data exchanged between two parties that
already share a session key, independent of how that key was established.

MakeSafe and ReadSafe produce and open KRB-SAFE messages, which carry a
keyed checksum over the user data but leave it in the clear. MakePriv and
ReadPriv produce and open KRB-PRIV messages, which encrypt the user data.
Both message types optionally carry a timestamp, a sequence number, and the
sender/recipient network addresses, and both are checked against a replay
Cache on read.

This package does not perform ticket acquisition or AP-REQ/AP-REP context
establishment; callers are expected to arrive with an already-negotiated
types.EncryptionKey, however they obtained it.
*/
package krb5msg
