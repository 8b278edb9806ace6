package chat

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/kbukum/streambot/database"
)

// Word is a filtered word.
type Word struct {
	Word string `yaml:"word"`
	Why  string `yaml:"why"`
}

// BadWordSource loads the persisted bad words.
type BadWordSource interface {
	BadWords(ctx context.Context) ([]database.BadWord, error)
}

// Words is the bad-word filter.
type Words struct {
	mu    sync.RWMutex
	words map[string]Word
}

// NewWords creates an empty filter.
func NewWords() *Words {
	return &Words{words: make(map[string]Word)}
}

// Insert adds or replaces a word.
func (w *Words) Insert(word Word) {
	word.Word = strings.ToLower(strings.TrimSpace(word.Word))
	if word.Word == "" {
		return
	}
	w.mu.Lock()
	w.words[word.Word] = word
	w.mu.Unlock()
}

// Remove deletes a word.
func (w *Words) Remove(word string) {
	w.mu.Lock()
	delete(w.words, strings.ToLower(word))
	w.mu.Unlock()
}

// Len returns the number of words.
func (w *Words) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.words)
}

// LoadFrom merges the words persisted in src.
func (w *Words) LoadFrom(ctx context.Context, src BadWordSource) error {
	rows, err := src.BadWords(ctx)
	if err != nil {
		return fmt.Errorf("load bad words: %w", err)
	}
	for _, r := range rows {
		w.Insert(Word{Word: r.Word, Why: r.Why})
	}
	return nil
}

type wordsFile struct {
	Words []Word `yaml:"words"`
}

// LoadFile merges a YAML file of the form `words: [{word, why}]`.
func (w *Words) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read bad words %s: %w", path, err)
	}
	var f wordsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse bad words %s: %w", path, err)
	}
	for _, word := range f.Words {
		w.Insert(word)
	}
	return nil
}

// Test returns the first bad word in text.
func (w *Words) Test(text string) (Word, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.words) == 0 {
		return Word{}, false
	}
	for _, token := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	}) {
		if word, ok := w.words[token]; ok {
			return word, true
		}
	}
	return Word{}, false
}
