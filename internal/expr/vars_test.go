package expr

import (
	"sync"
	"testing"
)

func TestVarStoreBasics(t *testing.T) {
	s := NewVarStore(map[string]any{"seed": 1})

	if v, ok := s.Get("seed"); !ok || v != 1 {
		t.Errorf("Get(seed) = %v, %v", v, ok)
	}

	s.Set("token", "abc")
	if v, _ := s.Get("token"); v != "abc" {
		t.Errorf("Get(token) = %v", v)
	}

	// last-write-wins
	s.Set("token", "def")
	if v, _ := s.Get("token"); v != "def" {
		t.Errorf("Get(token) after overwrite = %v", v)
	}

	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}

	snap := s.Snapshot()
	snap["token"] = "mutated"
	if v, _ := s.Get("token"); v != "def" {
		t.Error("Snapshot is not a copy")
	}
}

func TestVarStoreDeleteNotifies(t *testing.T) {
	s := NewVarStore(map[string]any{"a": 1, "b": 2})

	var deleted []string
	unsub := s.OnVariableDeleted(func(name string) {
		deleted = append(deleted, name)
	})

	s.Delete("a")
	if len(deleted) != 1 || deleted[0] != "a" {
		t.Fatalf("deleted = %v, want [a]", deleted)
	}
	if _, ok := s.Get("a"); ok {
		t.Error("a still present after Delete")
	}

	// Удаление несуществующей переменной не уведомляет
	s.Delete("ghost")
	if len(deleted) != 1 {
		t.Errorf("deleted = %v after deleting absent key", deleted)
	}

	unsub()
	s.Delete("b")
	if len(deleted) != 1 {
		t.Errorf("observer fired after unsubscribe: %v", deleted)
	}
}

func TestVarStoreObserverMayUseStore(t *testing.T) {
	s := NewVarStore(map[string]any{"a": 1})

	// Подписчик обращается к хранилищу — не должно быть дедлока
	s.OnVariableDeleted(func(name string) {
		s.Set("last_deleted", name)
	})

	s.Delete("a")
	if v, _ := s.Get("last_deleted"); v != "a" {
		t.Errorf("last_deleted = %v", v)
	}
}

func TestVarStoreConcurrentWrites(t *testing.T) {
	s := NewVarStore(nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Set("shared", n)
				s.Get("shared")
			}
		}(i)
	}
	wg.Wait()

	if _, ok := s.Get("shared"); !ok {
		t.Error("shared missing after concurrent writes")
	}
}
