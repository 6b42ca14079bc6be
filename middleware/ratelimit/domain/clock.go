package domain

import "time"

// Clock é a fonte de "agora". Testes injetam um relógio falso para cruzar
// fronteiras de janela sem dormir.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
