package net

import (
	"fmt"
	"log/slog"
	"net"
)

// OutgoingIP returns the address peers on the LAN should use to reach this
// machine. It asks the routing table first and falls back to the first
// private IPv4 interface address, then loopback.
func OutgoingIP() string {
	if conn, err := net.Dial("udp", "8.8.8.8:80"); err == nil {
		defer conn.Close()
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
			return addr.IP.String()
		}
	}
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		slog.Warn("listing interface addresses", slog.String("error", err.Error()))
		return "127.0.0.1"
	}
	if ip := pickLANAddr(addrs); ip != nil {
		return ip.String()
	}
	slog.Warn("no LAN address found, share link uses loopback")
	return "127.0.0.1"
}

// pickLANAddr prefers private IPv4 addresses over other non-loopback ones.
func pickLANAddr(addrs []net.Addr) net.IP {
	var fallback net.IP
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() || ipnet.IP.To4() == nil {
			continue
		}
		if ipnet.IP.IsPrivate() {
			return ipnet.IP
		}
		if fallback == nil {
			fallback = ipnet.IP
		}
	}
	return fallback
}

// ShareLink is the websocket URL peers on the LAN can join.
func ShareLink(port int) string {
	return fmt.Sprintf("ws://%s:%d/ws", OutgoingIP(), port)
}
