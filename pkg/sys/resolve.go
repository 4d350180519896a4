//go:build linux

package sys

import (
	"net"
	"strconv"

	"github.com/brickingsoft/errors"
)

var (
	ErrResolve = errors.Define("sys: resolve failed")
)

// Resolve performs blocking name resolution for a stream socket. With
// passive set, an empty host resolves to the wildcard address, matching the
// AI_PASSIVE behavior of getaddrinfo. The first resolved address wins, IPv4
// preferred.
func Resolve(host string, port int, passive bool) (addr *Addr, err error) {
	if host == "" {
		if !passive {
			err = errors.From(ErrResolve, errors.WithMeta("host", host))
			return
		}
		return AddrFromIP(net.IPv4zero, port, "")
	}
	if ip := net.ParseIP(host); ip != nil {
		return AddrFromIP(ip, port, "")
	}
	ipAddr, resolveErr := net.ResolveIPAddr("ip", host)
	if resolveErr != nil {
		err = errors.From(ErrResolve, errors.WithWrap(resolveErr), errors.WithMeta("host", net.JoinHostPort(host, strconv.Itoa(port))))
		return
	}
	return AddrFromIP(ipAddr.IP, port, ipAddr.Zone)
}
