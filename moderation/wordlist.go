package moderation

import (
	"bufio"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"courier/errors"
)

//go:embed wordlists/*.txt
var wordlistFS embed.FS

// Wordlist is the merged set of censored words plus the languages it was
// built from, one file per language.
type Wordlist struct {
	Languages []string
	Words     []string
}

// LoadWordlist reads every embedded language file, one word per line.
// Blank lines and lines starting with '#' are skipped. Duplicates across
// languages are collapsed.
func LoadWordlist() (Wordlist, error) {
	entries, err := fs.ReadDir(wordlistFS, "wordlists")
	if err != nil {
		return Wordlist{}, err
	}

	var list Wordlist
	seen := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		lang := strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
		list.Languages = append(list.Languages, lang)

		file, err := wordlistFS.Open(path.Join("wordlists", entry.Name()))
		if err != nil {
			return Wordlist{}, fmt.Errorf("open wordlist %s: %w", entry.Name(), err)
		}

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			word := strings.TrimSpace(scanner.Text())
			if word == "" || strings.HasPrefix(word, "#") {
				continue
			}
			if _, ok := seen[word]; ok {
				continue
			}
			seen[word] = struct{}{}
			list.Words = append(list.Words, word)
		}
		scanErr := scanner.Err()
		_ = file.Close()
		if scanErr != nil {
			return Wordlist{}, scanErr
		}
	}

	if len(list.Words) == 0 {
		return Wordlist{}, errors.ErrEmptyWordlist
	}
	return list, nil
}
