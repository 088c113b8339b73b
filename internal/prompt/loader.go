package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// templateFile is the on-disk YAML shape: one file holds one or more
// template definitions.
type templateFile struct {
	Templates []*Template `yaml:"templates"`
}

// LoadFile reads template definitions from a YAML file and registers
// them, replacing built-ins with the same name and version. Returns the
// number of templates loaded.
func (s *Store) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read template file: %w", err)
	}

	var tf templateFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return 0, fmt.Errorf("failed to parse template file %s: %w", path, err)
	}

	loaded := 0
	for _, t := range tf.Templates {
		if t.Name == "" || t.Body == "" {
			s.logger.Warn("skipping template with missing name or body",
				zap.String("file", path))
			continue
		}
		s.Register(t)
		loaded++
	}

	s.logger.Info("loaded prompt templates",
		zap.String("file", path),
		zap.Int("count", loaded))
	return loaded, nil
}

// LoadDir loads every .yaml/.yml file in dir. Missing directories are not
// an error; overrides are optional.
func (s *Store) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read template dir: %w", err)
	}

	total := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		n, err := s.LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			s.logger.Warn("failed to load template file",
				zap.String("file", e.Name()),
				zap.Error(err))
			continue
		}
		total += n
	}
	return total, nil
}
