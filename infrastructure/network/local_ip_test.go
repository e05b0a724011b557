package network

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalIP_Advertised_Wins(t *testing.T) {
	require.Equal(t, "192.168.1.50", LocalIP("192.168.1.50"))
}

func TestLocalIP_Detected_Is_IPv4(t *testing.T) {
	ip := net.ParseIP(LocalIP(""))
	require.NotNil(t, ip)
	require.NotNil(t, ip.To4())
}
