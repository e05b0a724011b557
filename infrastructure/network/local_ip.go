package network

import (
	"net"

	"github.com/samber/lo"
	psnet "github.com/shirou/gopsutil/net"
)

const loopbackIP = "127.0.0.1"

// LocalIP returns the advertised IP when set, otherwise the first
// non-loopback IPv4 address of the host interfaces.
func LocalIP(advertised string) string {
	if advertised != "" {
		return advertised
	}
	interfaces, err := psnet.Interfaces()
	if err != nil {
		return loopbackIP
	}
	for _, itf := range interfaces {
		if !lo.Contains(itf.Flags, "up") {
			continue
		}
		for _, addr := range itf.Addrs {
			ip, _, err := net.ParseCIDR(addr.Addr)
			if err != nil {
				continue
			}
			if ip.To4() != nil && !ip.IsLoopback() && !ip.IsLinkLocalUnicast() {
				return ip.String()
			}
		}
	}
	return loopbackIP
}
