// Package wordlist loads word lists from files.
package wordlist

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed lists/*.txt
var builtin embed.FS

// LoadWords reads one word per line from the provided file path.
func LoadWords(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only word list.
			_ = cerr
		}
	}()
	return readWords(file)
}

// Default returns the built-in word list for lang, falling back to English.
func Default(lang string) ([]string, error) {
	name := "lists/" + strings.ToLower(lang) + ".txt"
	file, err := builtin.Open(name)
	if err != nil {
		file, err = builtin.Open("lists/en.txt")
		if err != nil {
			return nil, fmt.Errorf("failed to open built-in word list: %w", err)
		}
	}
	defer func() {
		_ = file.Close()
	}()
	return readWords(file)
}

// Load reads the list at path, or the built-in list when path is empty, and
// keeps only the words lang's filter accepts.
func Load(path, lang string) ([]string, error) {
	var (
		words []string
		err   error
	)
	if path == "" {
		words, err = Default(lang)
	} else {
		words, err = LoadWords(path)
	}
	if err != nil {
		return nil, err
	}
	filter := FilterForLang(lang)
	kept := words[:0]
	for _, w := range words {
		if filter(w) {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("word list has no usable words for %q", lang)
	}
	return kept, nil
}

func readWords(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("word list is empty")
	}
	return words, nil
}
