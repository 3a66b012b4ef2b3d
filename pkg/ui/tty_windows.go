//go:build windows

package ui

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// OpenTTY returns the console input handle.
func OpenTTY() (*os.File, error) {
	handle, err := windows.GetStdHandle(windows.STD_INPUT_HANDLE)
	if err != nil {
		return nil, err
	}

	fd := os.NewFile(uintptr(handle), "conin$")
	if fd == nil {
		return nil, errors.New("could not open console input")
	}

	return fd, nil
}
