package chat

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-go-golems/glazed/pkg/helpers/templating"
	"github.com/pkg/errors"
)

const DefaultExportFormat = `{{.Year}}/{{.Month}}/{{.Day}}/{{.Time.Format "150405"}}-{{.ConversationID}}.json`

type exportConfig struct {
	enabled bool
	dir     string
	format  string
}

// WithExport writes the thread as JSON after every finished answer. The file path is rendered from
// format, relative to dir.
func WithExport(dir string, format string) SessionOption {
	return func(s *Session) {
		s.export.enabled = true
		s.export.dir = dir
		if dir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				homeDir = "."
			}
			s.export.dir = filepath.Join(homeDir, ".threadview", "history")
		}
		s.export.format = format
		if format == "" {
			s.export.format = DefaultExportFormat
		}
	}
}

// exportPath must be called with the session lock held.
func (s *Session) exportPath() (string, error) {
	data := map[string]interface{}{
		"Year":           s.startTime.Format("2006"),
		"Month":          s.startTime.Format("01"),
		"Day":            s.startTime.Format("02"),
		"Time":           s.startTime,
		"ConversationID": s.id,
	}

	tmpl, err := templating.CreateTemplate("export").Parse(s.export.format)
	if err != nil {
		return "", errors.Wrap(err, "could not parse export path template")
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", errors.Wrap(err, "could not render export path")
	}
	return filepath.Join(s.export.dir, sb.String()), nil
}

// exportThread must be called with the session lock held.
func (s *Session) exportThread() error {
	if !s.export.enabled {
		return nil
	}
	path, err := s.exportPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return s.thread.SaveToFile(path)
}
