package translate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/telhawk-systems/telhawk-normalize/common/logging"
	"github.com/telhawk-systems/telhawk-normalize/internal/fuzzy"
)

// LoadDir loads a rules directory tree into a fuzzy registry. Each
// subdirectory names a source type and holds that source's rule
// documents as JSON files, applied in lexical order. A malformed rule
// document aborts the load.
func LoadDir(root, separator string, logger *logging.Logger) (*fuzzy.Map[*Translators], error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("rules dir: %w", err)
	}

	registry := fuzzy.New[*Translators](separator)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		source := entry.Name()
		manager, err := loadSource(filepath.Join(root, source), source)
		if err != nil {
			return nil, err
		}
		if manager.Len() == 0 {
			continue
		}
		logger.Info("loaded rules",
			logging.SourceType(source), logging.Count(manager.Len()))
		registry.Put(source, manager)
	}
	return registry, nil
}

func loadSource(dir, source string) (*Translators, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("rules dir %q: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	manager := NewTranslators(source)
	for _, name := range files {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", path, err)
		}
		rule, err := FromJSON(data)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", path, err)
		}
		manager.Add(rule)
	}
	return manager, nil
}
