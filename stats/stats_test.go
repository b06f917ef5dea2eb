package stats

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestAddGet(t *testing.T) {
	s := New()
	mi := s.AddMethodStatistics("p/A", "run", "()V", 1, 42, 3)
	if want, got := 42, mi.NumBytes; want != got {
		t.Errorf("NumBytes: want %d but got %d", want, got)
	}
	s.AddMethodStatistics("p/A", "run", "()V", 1, 50, 4)
	got := s.GetMethodStatistics("p/A", "run", "()V")
	if got.NumBytes != 50 || got.NumMethodCalls != 4 || got.DeclaredAccess != 1 {
		t.Errorf("expects statistics to be replaced, got %+v", got)
	}
	if s.Len() != 1 {
		t.Errorf("expects 1 method but got %d", s.Len())
	}
}

func TestNotFound(t *testing.T) {
	s := New()
	mi := s.GetMethodStatistics("p/A", "run", "()V")
	if !NotFound(mi) {
		t.Errorf("expects not found value, got %+v", mi)
	}
	s.AddMethodStatistics("p/A", "run", "()V", 0, 1, 0)
	if NotFound(s.GetMethodStatistics("p/A", "run", "()V")) {
		t.Errorf("expects statistics after add")
	}
	if !NotFound(s.GetMethodStatistics("p/A", "run", "(I)V")) {
		t.Errorf("descriptor is part of the method identity")
	}
}

func TestCounts(t *testing.T) {
	s := New()
	s.SetRegions("p/A", "f", "()V", 3)
	s.SetFindings("p/A", "f", "()V", 1)
	s.SetFindings("p/A", "f", "()V", 1)
	mi := s.GetMethodStatistics("p/A", "f", "()V")
	if mi.NumRegions != 3 || mi.NumFindings != 1 {
		t.Errorf("want 3 regions 1 finding but got %+v", mi)
	}
	s.SetRegions("p/A", "f", "()V", 3)
	if want, got := 3, s.GetMethodStatistics("p/A", "f", "()V").NumRegions; want != got {
		t.Errorf("recording a method again: want %d regions but got %d", want, got)
	}
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("expects empty statistics after Clear, got %d", s.Len())
	}
}

// Tests that the MethodInfo returned by AddMethodStatistics is not the
// stored one.
func TestAddReturnsCopy(t *testing.T) {
	s := New()
	mi := s.AddMethodStatistics("p/A", "run", "()V", 1, 42, 3)
	mi.NumBytes = 0
	mi.NumFindings = 9
	got := s.GetMethodStatistics("p/A", "run", "()V")
	if got.NumBytes != 42 || got.NumFindings != 0 {
		t.Errorf("stored statistics changed through returned value: %+v", got)
	}
}

func TestEachOrder(t *testing.T) {
	s := New()
	s.AddMethodStatistics("q/B", "a", "()V", 0, 1, 0)
	s.AddMethodStatistics("p/A", "b", "()V", 0, 1, 0)
	s.AddMethodStatistics("p/A", "a", "(I)V", 0, 1, 0)
	s.AddMethodStatistics("p/A", "a", "()V", 0, 1, 0)
	var got []string
	s.Each(func(m FQMethod, _ MethodInfo) { got = append(got, m.String()) })
	want := "p.A.a()V p.A.a(I)V p.A.b()V q.B.a()V"
	if strings.Join(got, " ") != want {
		t.Errorf("want %s\ngot %s", want, strings.Join(got, " "))
	}
	if !strings.Contains(s.String(), "│ p.A.b()V:\t1\t0\t0\t0\n") {
		t.Errorf("unexpected table:\n%s", s)
	}
}

func TestConcurrentAdd(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("m%d", i)
			for j := 1; j <= 100; j++ {
				mi := s.AddMethodStatistics("p/A", name, "()V", 0, j, 0)
				mi.NumBytes = -1
				s.SetFindings("p/A", name, "()V", j)
				s.GetMethodStatistics("p/A", "m0", "()V")
			}
		}(i)
	}
	wg.Wait()
	if want, got := 8, s.Len(); want != got {
		t.Errorf("want %d methods but got %d", want, got)
	}
	s.Each(func(m FQMethod, mi MethodInfo) {
		if mi.NumBytes != 100 || mi.NumFindings != 100 {
			t.Errorf("%v: want last recorded values but got %+v", m, mi)
		}
	})
}
