// SPDX-License-Identifier: Apache-2.0

package krb5msg

import (
	"bytes"
	"fmt"
	"net"

	"github.com/jcmturner/gokrb5/v8/types"
)

// AddressType identifies the address family of an Address's Contents, using
// the Kerberos v5 address-type numbering (RFC 4120 §7.5.3).
type AddressType int32

const (
	AddressTypeIPv4    AddressType = 2
	AddressTypeIPv6    AddressType = 24
	AddressTypeNetBios AddressType = 20
)

// Address is a tagged network address as carried in SAFE/PRIV messages:
// a small address-type integer plus the raw address bytes. Two addresses
// are equal iff both fields match exactly.
type Address struct {
	Type     AddressType
	Contents []byte
}

// NewIPAddress builds an Address from a net.IP, choosing AddressTypeIPv4 or
// AddressTypeIPv6 based on the IP's form.
func NewIPAddress(ip net.IP) (Address, error) {
	if v4 := ip.To4(); v4 != nil {
		return Address{Type: AddressTypeIPv4, Contents: v4}, nil
	}
	if v6 := ip.To16(); v6 != nil {
		return Address{Type: AddressTypeIPv6, Contents: v6}, nil
	}
	return Address{}, fmt.Errorf("krb5msg: %q is not a valid IP address", ip)
}

// toHostAddress converts to the wire representation used inside the ASN.1
// SAFE/EncPrivPart structures, reusing gokrb5's existing HostAddress type
// the same way the teacher package reuses types.EncryptionKey rather than
// inventing a parallel key type.
func (a Address) toHostAddress() types.HostAddress {
	return types.HostAddress{
		AddrType: int32(a.Type),
		Address:  a.Contents,
	}
}

func fromHostAddress(h types.HostAddress) Address {
	return Address{Type: AddressType(h.AddrType), Contents: h.Address}
}

// String renders a stable, distinguishing representation of a, used as the
// sender-address-stringified component of a replay.Entry's Client field
// (§3/§4.5 step 10/§4.6 step 7/§9 "Replay-entry naming"), mirroring
// krb5_gen_replay_name's address-type-plus-bytes encoding.
func (a Address) String() string {
	return fmt.Sprintf("%d/%x", a.Type, a.Contents)
}

// AddressCompare reports whether a and b refer to the same network address:
// both the address-type and the raw bytes must match.
func AddressCompare(a, b Address) bool {
	return a.Type == b.Type && bytes.Equal(a.Contents, b.Contents)
}

// AddressSearch reports whether target appears in list, by AddressCompare.
func AddressSearch(target Address, list []Address) bool {
	for _, a := range list {
		if AddressCompare(target, a) {
			return true
		}
	}
	return false
}

// LocalAddresses enumerates the process's local, non-loopback network
// addresses, mirroring the original krb5_os_localaddr used by read_priv's
// receiver-address policy check when the caller does not supply recv_addr.
func LocalAddresses() ([]Address, error) {
	ifaceAddrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, fmt.Errorf("krb5msg: enumerating local addresses: %w", err)
	}

	var addrs []Address
	for _, ia := range ifaceAddrs {
		ipNet, ok := ia.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}

		addr, err := NewIPAddress(ipNet.IP)
		if err != nil {
			continue
		}
		addrs = append(addrs, addr)
	}

	return addrs, nil
}
