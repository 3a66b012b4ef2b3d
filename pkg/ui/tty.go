//go:build !windows

package ui

import (
	"os"

	"github.com/pkg/errors"
)

// OpenTTY opens the controlling terminal, for reading keys when stdin carries a script.
func OpenTTY() (*os.File, error) {
	f, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrap(err, "could not open /dev/tty")
	}
	return f, nil
}
