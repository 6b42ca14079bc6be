package ratelimit

import (
	"net/http"
	"strings"
)

// routeOf é o rótulo de rota usado nas estatísticas. Nunca usa o path cru
// quando há alternativa: sob um prefixo, cada path distinto viraria uma
// série nova no Prometheus e um campo novo no Redis.
//
// Ordem: route explícito, depois o pattern do ServeMux (sem o método),
// e só então r.URL.Path.
func routeOf(r *http.Request, route string) string {
	if route != "" {
		return route
	}
	if r.Pattern != "" {
		if _, path, ok := strings.Cut(r.Pattern, " "); ok {
			return strings.TrimSpace(path)
		}
		return r.Pattern
	}
	return r.URL.Path
}
