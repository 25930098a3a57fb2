// Package frequency counts word tokens in a transcript.
package frequency

import (
	"fmt"
	"regexp"
	"strings"
)

// ASCII word characters only; accented letters split words.
var wordRe = regexp.MustCompile(`\w+`)

type Entry struct {
	Word  string
	Count int
}

func (e Entry) String() string {
	return fmt.Sprintf("%s: %d", e.Word, e.Count)
}

// Map is a word → count table that enumerates in first-occurrence order.
// The zero value is an empty map.
type Map struct {
	entries []Entry
	index   map[string]int
}

// Count lowercases text and tallies every maximal run of word characters.
func Count(text string) Map {
	var m Map
	for _, word := range wordRe.FindAllString(strings.ToLower(text), -1) {
		m.add(word)
	}
	return m
}

func (m *Map) add(word string) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[word]; ok {
		m.entries[i].Count++
		return
	}
	m.index[word] = len(m.entries)
	m.entries = append(m.entries, Entry{Word: word, Count: 1})
}

func (m Map) Len() int { return len(m.entries) }

// Total is the number of tokens counted.
func (m Map) Total() int {
	n := 0
	for _, e := range m.entries {
		n += e.Count
	}
	return n
}

func (m Map) Get(word string) (int, bool) {
	i, ok := m.index[word]
	if !ok {
		return 0, false
	}
	return m.entries[i].Count, true
}

// Entries returns a copy of the table in first-occurrence order.
func (m Map) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Lines renders each entry as "word: count".
func (m Map) Lines() []string {
	lines := make([]string, len(m.entries))
	for i, e := range m.entries {
		lines[i] = e.String()
	}
	return lines
}
