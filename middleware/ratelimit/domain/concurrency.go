package domain

import "context"

// SlotPool limita quantos requests ficam em voo ao mesmo tempo no gateway,
// independente da cota por chave.
//
// Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar.
// Ao adquirir, retorna uma função de release que deve ser chamada exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
