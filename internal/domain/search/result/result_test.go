package result

import "testing"

func TestNew(t *testing.T) {
	meta := map[string]any{"city": "Austin", "bedrooms": 2.0}

	r := New("apt-1", 0.95, meta)

	if r.ID() != "apt-1" {
		t.Errorf("ID() = %q", r.ID())
	}
	if r.Score() != 0.95 {
		t.Errorf("Score() = %f", r.Score())
	}
	if r.Metadata()["city"] != "Austin" {
		t.Errorf("Metadata() = %v", r.Metadata())
	}
}

func TestNew_NilMetadata(t *testing.T) {
	r := New("id", 0, nil)
	if r.Metadata() != nil {
		t.Errorf("Metadata() = %v, want nil", r.Metadata())
	}
}

func TestSortByScore(t *testing.T) {
	results := []Result{
		New("a", 0.2, nil),
		New("b", 0.9, nil),
		New("c", 0.5, nil),
		New("d", 0.9, nil),
		New("e", -0.3, nil),
	}

	SortByScore(results)

	want := []string{"b", "d", "c", "a", "e"}
	for i, id := range want {
		if results[i].ID() != id {
			t.Errorf("[%d] = %q, want %q", i, results[i].ID(), id)
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score() > results[i-1].Score() {
			t.Fatalf("scores increase at %d", i)
		}
	}
}
