package parsing

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// Oracle answers whether a candidate word exists in the language. The header
// normalizer consults it when deciding if two line-wrapped fragments form one
// word.
type Oracle interface {
	WordIsKnown(word string) bool
}

// DictionaryOracle is a word-list backed oracle. The list is loaded once and
// read-only afterwards.
type DictionaryOracle struct {
	words map[string]struct{}
}

// LoadDictionary reads a newline-delimited word list.
func LoadDictionary(path string) (*DictionaryOracle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer f.Close()

	words := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" {
			continue
		}
		words[strings.ToLower(word)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	return &DictionaryOracle{words: words}, nil
}

// WordIsKnown checks the word case-insensitively.
func (o *DictionaryOracle) WordIsKnown(word string) bool {
	_, ok := o.words[strings.ToLower(word)]
	return ok
}

// NopOracle knows no words. With it every undecided fragment pair falls back
// to a space join.
type NopOracle struct{}

func (NopOracle) WordIsKnown(string) bool { return false }

// caseVariants returns the spellings under which a combined fragment is
// checked against the oracle: as written, lowercased, title-cased.
func caseVariants(word string) []string {
	variants := []string{word, strings.ToLower(word)}
	runes := []rune(strings.ToLower(word))
	if len(runes) > 0 {
		runes[0] = unicode.ToUpper(runes[0])
	}
	variants = append(variants, string(runes))
	return variants
}
