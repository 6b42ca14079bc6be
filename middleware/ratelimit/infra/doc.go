// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - WindowStore: contador de janela fixa por chave, em memória
//   - BurstStore: token bucket por chave usando golang.org/x/time/rate
//   - ChanPool: semáforo simples para limite de concorrência
//   - *StatsStore: estatísticas de decisão em memória, Redis e Prometheus
package infra
