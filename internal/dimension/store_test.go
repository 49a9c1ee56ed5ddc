package dimension

import "testing"

func TestStoreNumbering(t *testing.T) {
	s := NewStore()

	if id := s.NextID(); id != 1 {
		t.Errorf("first id = %d, want 1", id)
	}
	if id := s.NextID(); id != 2 {
		t.Errorf("second id = %d, want 2", id)
	}

	t.Run("deleted numbers are never reused", func(t *testing.T) {
		s := NewStore()
		id := s.NextID()
		if err := s.Put(&Dimension{ID: id, Value: "1.000"}); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if !s.Delete(id) {
			t.Fatal("Delete returned false")
		}
		if next := s.NextID(); next != 2 {
			t.Errorf("id after delete = %d, want 2", next)
		}
	})

	t.Run("external ids advance the counter", func(t *testing.T) {
		s := NewStore()
		if err := s.Put(&Dimension{ID: 7, Value: "1.000"}); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if next := s.NextID(); next != 8 {
			t.Errorf("id after external put = %d, want 8", next)
		}
	})
}

func TestStorePutRejectsUnallocated(t *testing.T) {
	s := NewStore()
	if err := s.Put(nil); err == nil {
		t.Error("Put(nil) succeeded")
	}
	if err := s.Put(&Dimension{}); err == nil {
		t.Error("Put with zero id succeeded")
	}
}

func TestStoreGetReturnsCopy(t *testing.T) {
	s := NewStore()
	id := s.NextID()
	if err := s.Put(&Dimension{ID: id, Value: "1.000"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := s.Get(id)
	if !ok {
		t.Fatal("Get missed")
	}
	got.Value = "changed"

	again, _ := s.Get(id)
	if again.Value != "1.000" {
		t.Errorf("stored value = %q, mutated through a copy", again.Value)
	}
}

func TestStoreMutate(t *testing.T) {
	s := NewStore()
	id := s.NextID()
	if err := s.Put(&Dimension{ID: id, Value: "1.000"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	err := s.Mutate(id, func(d *Dimension) error {
		d.Sheet = "2"
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	got, _ := s.Get(id)
	if got.Sheet != "2" {
		t.Errorf("sheet = %q, want 2", got.Sheet)
	}

	if err := s.Mutate(999, func(*Dimension) error { return nil }); err == nil {
		t.Error("Mutate on a missing id succeeded")
	}
}

func TestStoreList(t *testing.T) {
	s := NewStore()
	for _, v := range []string{"a", "b", "c"} {
		id := s.NextID()
		if err := s.Put(&Dimension{ID: id, Value: v}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	s.Delete(2)

	list := s.List()
	if len(list) != 2 || list[0].ID != 1 || list[1].ID != 3 {
		t.Fatalf("list = %+v, want ids 1 and 3 in order", list)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}
