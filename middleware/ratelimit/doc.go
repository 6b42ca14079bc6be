// Package ratelimit fornece adapters HTTP (net/http) para o controle de admissão
// (janela fixa por chave) e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decide, modo header, modo guard, acquire/timeout)
//   - infra: implementações concretas (janela fixa, token bucket, semáforo, stats)
//   - ratelimit (este pacote): middlewares HTTP + extração de identificador +
//     tradução para status/headers
//
// Fluxo no login:
//
//  1. Extrai o IP do cliente (X-Forwarded-For, X-Real-IP ou "unknown")
//  2. Chama a camada application para obter a decisão
//  3. Anexa X-RateLimit-Limit/Remaining/Reset em qualquer resposta
//  4. Se negado, responde 429 com Retry-After; senão chama o próximo handler
//
// Para server actions, GuardRequest executa a ação só se houver cota e
// devolve *domain.QuotaExceededError caso contrário.
package ratelimit
