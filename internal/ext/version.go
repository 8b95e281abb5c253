package ext

import (
	"fmt"
)

// Version is an extension interface version. On the wire it is packed as
// major<<16 | minor.
type Version struct {
	Major uint16
	Minor uint16
}

// HostVersion is the interface version this host implements.
var HostVersion = Version{Major: 1, Minor: 0}

func (v Version) Packed() uint32 { return uint32(v.Major)<<16 | uint32(v.Minor) }

func Unpack(p uint32) Version {
	return Version{Major: uint16(p >> 16), Minor: uint16(p)}
}

func (v Version) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

// Compatible reports whether a module built against m can run on a host
// implementing v. Majors must match and the host minor must be at least
// the module's.
func (v Version) Compatible(m Version) error {
	if v.Major != m.Major {
		return fmt.Errorf("%w: major version mismatch, requested %d got %d", ErrIncompatible, m.Major, v.Major)
	}
	if v.Minor < m.Minor {
		return fmt.Errorf("%w: minor version mismatch, requested at least %d got %d", ErrIncompatible, m.Minor, v.Minor)
	}
	return nil
}
