package store

import "testing"

func TestRegistrySetGet(t *testing.T) {
	r := New[string, int]()
	r.Set("a", 1)

	v, ok := r.Get("a")
	if !ok || v != 1 {
		t.Fatalf("Get(a) = %v, %v; want 1, true", v, ok)
	}

	if _, ok := r.Get("missing"); ok {
		t.Fatal("Get(missing) should report false")
	}
}

func TestRegistryDeleteCallsOnEvict(t *testing.T) {
	r := New[string, int]()
	r.Set("a", 1)

	var evictedKey string
	var evictedVal int
	r.SetOnEvict(func(k string, v int) {
		evictedKey, evictedVal = k, v
	})

	if !r.Delete("a") {
		t.Fatal("Delete(a) should report true")
	}
	if evictedKey != "a" || evictedVal != 1 {
		t.Fatalf("onEvict got (%q, %d), want (a, 1)", evictedKey, evictedVal)
	}
	if r.Delete("a") {
		t.Fatal("second Delete(a) should report false")
	}
}

func TestRegistryUpdate(t *testing.T) {
	r := New[string, int]()
	r.Set("a", 1)

	if !r.Update("a", func(v int) int { return v + 10 }) {
		t.Fatal("Update(a) should report true")
	}
	v, _ := r.Get("a")
	if v != 11 {
		t.Fatalf("Get(a) = %d, want 11", v)
	}

	if r.Update("missing", func(v int) int { return v }) {
		t.Fatal("Update(missing) should report false")
	}
}

func TestRegistryForEachStopsEarly(t *testing.T) {
	r := New[string, int]()
	r.Set("a", 1)
	r.Set("b", 2)
	r.Set("c", 3)

	seen := 0
	r.ForEach(func(k string, v int) bool {
		seen++
		return false
	})
	if seen != 1 {
		t.Fatalf("ForEach visited %d items, want 1 after early stop", seen)
	}
}

func TestRegistryLenAndAll(t *testing.T) {
	r := New[string, int]()
	r.Set("a", 1)
	r.Set("b", 2)

	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
	all := r.All()
	if len(all) != 2 || all["a"] != 1 || all["b"] != 2 {
		t.Fatalf("All() = %v, want map[a:1 b:2]", all)
	}
}
