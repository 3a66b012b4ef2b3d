// Package doc holds the help topics of the threadview CLI.
package doc

import (
	"embed"

	"github.com/go-go-golems/glazed/pkg/help"
	"github.com/pkg/errors"
)

//go:embed topics
var topicsFS embed.FS

// AddDocToHelpSystem registers the replay script and milestone topics.
func AddDocToHelpSystem(helpSystem *help.HelpSystem) error {
	if err := helpSystem.LoadSectionsFromFS(topicsFS, "topics"); err != nil {
		return errors.Wrap(err, "could not load threadview help topics")
	}
	return nil
}
