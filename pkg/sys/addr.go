//go:build linux

package sys

import (
	"net"
	"syscall"
	"unsafe"

	"github.com/brickingsoft/errors"
)

var (
	ErrInvalidAddr = errors.Define("sys: invalid addr")
)

// Addr is a resolved IPv4 or IPv6 socket address. It is immutable after
// resolution and exposes the raw sockaddr form the kernel expects. The raw
// form is stored behind a pointer so the address bytes keep a stable
// location while the kernel reads them asynchronously.
type Addr struct {
	family int
	raw    *syscall.RawSockaddrAny
	rawLen int32
}

func (addr *Addr) Family() int {
	return addr.family
}

// Raw yields the sockaddr pointer and length pair for kernel calls.
func (addr *Addr) Raw() (*syscall.RawSockaddrAny, int32) {
	return addr.raw, addr.rawLen
}

func (addr *Addr) IsIPv4() bool {
	return addr.family == syscall.AF_INET
}

func (addr *Addr) IsIPv6() bool {
	return addr.family == syscall.AF_INET6
}

func AddrFromSockaddr(sa syscall.Sockaddr) (addr *Addr, err error) {
	switch s := sa.(type) {
	case *syscall.SockaddrInet4:
		raw, rawLen := SockaddrInet4ToRawSockaddrAny(s)
		addr = &Addr{family: syscall.AF_INET, raw: raw, rawLen: rawLen}
		return
	case *syscall.SockaddrInet6:
		raw, rawLen := SockaddrInet6ToRawSockaddrAny(s)
		addr = &Addr{family: syscall.AF_INET6, raw: raw, rawLen: rawLen}
		return
	default:
		err = errors.From(ErrInvalidAddr)
		return
	}
}

func AddrFromIP(ip net.IP, port int, zone string) (addr *Addr, err error) {
	if ip4 := ip.To4(); ip4 != nil {
		sa := &syscall.SockaddrInet4{Port: port}
		copy(sa.Addr[:], ip4)
		return AddrFromSockaddr(sa)
	}
	if ip16 := ip.To16(); ip16 != nil {
		sa := &syscall.SockaddrInet6{Port: port}
		copy(sa.Addr[:], ip16)
		if zone != "" {
			if ifi, ifiErr := net.InterfaceByName(zone); ifiErr == nil {
				sa.ZoneId = uint32(ifi.Index)
			}
		}
		return AddrFromSockaddr(sa)
	}
	err = errors.From(ErrInvalidAddr)
	return
}

func SockaddrToTCPAddr(sa syscall.Sockaddr) (addr net.Addr) {
	switch sa := sa.(type) {
	case *syscall.SockaddrInet4:
		addr = &net.TCPAddr{
			IP:   append([]byte{}, sa.Addr[:]...),
			Port: sa.Port,
		}
	case *syscall.SockaddrInet6:
		var zone string
		if sa.ZoneId != 0 {
			if ifi, err := net.InterfaceByIndex(int(sa.ZoneId)); err == nil {
				zone = ifi.Name
			}
		}
		addr = &net.TCPAddr{
			IP:   append([]byte{}, sa.Addr[:]...),
			Port: sa.Port,
			Zone: zone,
		}
	}
	return
}

func SockaddrInet4ToRawSockaddrAny(sa *syscall.SockaddrInet4) (name *syscall.RawSockaddrAny, nameLen int32) {
	name = &syscall.RawSockaddrAny{}
	raw := (*syscall.RawSockaddrInet4)(unsafe.Pointer(name))
	raw.Family = syscall.AF_INET
	p := (*[2]byte)(unsafe.Pointer(&raw.Port))
	p[0] = byte(sa.Port >> 8)
	p[1] = byte(sa.Port)
	raw.Addr = sa.Addr
	nameLen = int32(unsafe.Sizeof(*raw))
	return
}

func SockaddrInet6ToRawSockaddrAny(sa *syscall.SockaddrInet6) (name *syscall.RawSockaddrAny, nameLen int32) {
	name = &syscall.RawSockaddrAny{}
	raw := (*syscall.RawSockaddrInet6)(unsafe.Pointer(name))
	raw.Family = syscall.AF_INET6
	p := (*[2]byte)(unsafe.Pointer(&raw.Port))
	p[0] = byte(sa.Port >> 8)
	p[1] = byte(sa.Port)
	raw.Scope_id = sa.ZoneId
	raw.Addr = sa.Addr
	nameLen = int32(unsafe.Sizeof(*raw))
	return
}
