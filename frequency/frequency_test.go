package frequency

import (
	"reflect"
	"testing"
)

func TestCountCaseFolding(t *testing.T) {
	m := Count("Cat cat CAT!")
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
	if n, ok := m.Get("cat"); !ok || n != 3 {
		t.Errorf("cat = %d (%v), want 3", n, ok)
	}
}

func TestCountEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "   ...", "!?, -- ;"} {
		t.Run(in, func(t *testing.T) {
			m := Count(in)
			if m.Len() != 0 || m.Total() != 0 {
				t.Errorf("Count(%q) = %v, want empty", in, m.Entries())
			}
			if len(m.Lines()) != 0 {
				t.Errorf("Lines() not empty")
			}
		})
	}
}

func TestCountFirstOccurrenceOrder(t *testing.T) {
	m := Count("the quick brown fox the fox")
	want := []Entry{{"the", 2}, {"quick", 1}, {"brown", 1}, {"fox", 2}}
	if got := m.Entries(); !reflect.DeepEqual(got, want) {
		t.Errorf("Entries() = %v, want %v", got, want)
	}
	wantLines := []string{"the: 2", "quick: 1", "brown: 1", "fox: 2"}
	if got := m.Lines(); !reflect.DeepEqual(got, wantLines) {
		t.Errorf("Lines() = %v, want %v", got, wantLines)
	}
	if m.Total() != 6 {
		t.Errorf("Total() = %d, want 6", m.Total())
	}
}

func TestCountTokenization(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want []Entry
	}{
		{"don't stop", []Entry{{"don", 1}, {"t", 1}, {"stop", 1}}},
		{"snake_case and 42 apples", []Entry{{"snake_case", 1}, {"and", 1}, {"42", 1}, {"apples", 1}}},
		{"well-known, well known", []Entry{{"well", 2}, {"known", 2}}},
		{"  spaced\tout\nwords ", []Entry{{"spaced", 1}, {"out", 1}, {"words", 1}}},
		{"café", []Entry{{"caf", 1}}},
	} {
		t.Run(tt.in, func(t *testing.T) {
			if got := Count(tt.in).Entries(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Count(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCountMatchesOccurrences(t *testing.T) {
	text := "a b a c b a d"
	m := Count(text)
	for word, want := range map[string]int{"a": 3, "b": 2, "c": 1, "d": 1} {
		if got, _ := m.Get(word); got != want {
			t.Errorf("%s = %d, want %d", word, got, want)
		}
	}
	if _, ok := m.Get("e"); ok {
		t.Error("unexpected key e")
	}
}

func TestZeroMap(t *testing.T) {
	var m Map
	if m.Len() != 0 {
		t.Error("zero Map should be empty")
	}
	if _, ok := m.Get("x"); ok {
		t.Error("zero Map Get should miss")
	}
}

func TestEntriesIsCopy(t *testing.T) {
	m := Count("x y")
	e := m.Entries()
	e[0].Count = 99
	if n, _ := m.Get("x"); n != 1 {
		t.Error("Entries() exposed internal storage")
	}
}
