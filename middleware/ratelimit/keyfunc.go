package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

const (
	UnknownClient = "unknown"

	// DefaultKeyPrefix é o prefixo usado nas chaves do login.
	DefaultKeyPrefix = "rate-limit:"
)

type KeyFunc func(r *http.Request) string

// ClientIP resolve o identificador do cliente pelos headers do proxy:
// primeiro valor do X-Forwarded-For, depois X-Real-IP, senão "unknown".
//
// Todos os clientes sem identificação dividem o mesmo bucket "unknown".
// Os headers são confiados como vieram: só use ClientIP atrás de um proxy que
// sobrescreve X-Forwarded-For. Exposto direto à internet, use TrustedClientIP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return UnknownClient
}

// DefaultKeyFunc prefixa o IP do cliente (ex: "rate-limit:9.9.9.9").
func DefaultKeyFunc(prefix string) KeyFunc {
	return func(r *http.Request) string {
		return prefix + ClientIP(r)
	}
}

// ParseTrustedProxies aceita CIDRs ("10.0.0.0/8") ou IPs soltos ("127.0.0.1").
func ParseTrustedProxies(values []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", v, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", v, err)
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// TrustedClientIP só lê os headers quando o peer (RemoteAddr) está em trusted.
// Para qualquer outro peer o identificador é o próprio RemoteAddr, então
// trocar o X-Forwarded-For não abre um bucket novo. Lista vazia equivale a
// ClientIP.
func TrustedClientIP(trusted []netip.Prefix) func(r *http.Request) string {
	if len(trusted) == 0 {
		return ClientIP
	}
	return func(r *http.Request) string {
		peer := remoteHost(r)
		addr, err := netip.ParseAddr(peer)
		if err != nil {
			if peer == "" {
				return UnknownClient
			}
			return peer
		}
		addr = addr.Unmap()
		for _, p := range trusted {
			if p.Contains(addr) {
				return ClientIP(r)
			}
		}
		return addr.String()
	}
}

// TrustedProxyKeyFunc é o DefaultKeyFunc com TrustedClientIP.
func TrustedProxyKeyFunc(prefix string, trusted []netip.Prefix) KeyFunc {
	ip := TrustedClientIP(trusted)
	return func(r *http.Request) string {
		return prefix + ip(r)
	}
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
