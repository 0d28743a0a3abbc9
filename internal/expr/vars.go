package expr

import "sync"

// VarStore — потокобезопасное хранилище переменных run.
//
// Переменные разделяются всеми ветками выполнения. Записи экстракторов
// применяются по принципу last-write-wins без транзакционной изоляции:
// гонка двух веток, пишущих одну переменную, — известный и документированный
// источник недетерминизма. Гарантируется только то, что записи одной ветки
// применяются в порядке её собственного выполнения.
type VarStore struct {
	mu     sync.RWMutex
	values map[string]any
	subs   map[int]func(name string)
	nextID int
}

// NewVarStore создаёт хранилище с начальными переменными.
func NewVarStore(initial map[string]any) *VarStore {
	values := make(map[string]any, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &VarStore{
		values: values,
		subs:   make(map[int]func(string)),
	}
}

// Get возвращает значение переменной.
func (s *VarStore) Get(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

// Set устанавливает значение переменной.
func (s *VarStore) Set(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
}

// Delete удаляет переменную и уведомляет подписчиков.
func (s *VarStore) Delete(name string) {
	s.mu.Lock()
	_, existed := s.values[name]
	delete(s.values, name)

	var fns []func(string)
	if existed {
		fns = make([]func(string), 0, len(s.subs))
		for _, fn := range s.subs {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	// Подписчики вызываются вне блокировки, чтобы они могли
	// обращаться к хранилищу.
	for _, fn := range fns {
		fn(name)
	}
}

// OnVariableDeleted подписывает fn на удаление переменных.
// Возвращает функцию отписки.
func (s *VarStore) OnVariableDeleted(fn func(name string)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Snapshot возвращает копию всех переменных.
func (s *VarStore) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Len возвращает количество переменных.
func (s *VarStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
