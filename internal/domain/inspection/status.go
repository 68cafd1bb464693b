package inspection

import "fmt"

// Status статус записи в локальной очереди
type Status string

const (
	StatusPending Status = "pending"
	StatusSynced  Status = "synced"
	StatusError   Status = "error"
)

var transitions = map[Status][]Status{
	StatusPending: {StatusSynced, StatusError},
	StatusError:   {StatusPending, StatusSynced, StatusError},
	StatusSynced:  {},
}

// IsValid проверяет, что статус известен
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo проверяет допустимость перехода.
// synced -> synced допускается как повторная отметка без эффекта.
func (s Status) CanTransitionTo(next Status) bool {
	if s == StatusSynced && next == StatusSynced {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseStatus разбирает статус из строки
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", fmt.Errorf("unknown status %q: %w", s, ErrInvalid)
	}
	return st, nil
}

// Tipo тип осмотра
type Tipo string

const (
	TipoEntrada    Tipo = "entrada"
	TipoSaida      Tipo = "saida"
	TipoManutencao Tipo = "manutencao"
)

// IsValid проверяет тип осмотра
func (t Tipo) IsValid() bool {
	switch t {
	case TipoEntrada, TipoSaida, TipoManutencao:
		return true
	}
	return false
}

// ParseTipo разбирает тип осмотра из строки
func ParseTipo(s string) (Tipo, error) {
	t := Tipo(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown tipo %q, expected entrada|saida|manutencao: %w", s, ErrInvalid)
	}
	return t, nil
}
