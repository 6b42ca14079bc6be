// Package application contém os casos de uso (regras de aplicação) para o
// controle de admissão e limite de concorrência.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Os dois estilos de consumo ficam sobre a mesma primitiva check:
//   - Service.Quota: modo header (decisão + headers de cota, nunca falha)
//   - Guard: modo guard (executa a ação ou devolve QuotaExceededError)
package application
