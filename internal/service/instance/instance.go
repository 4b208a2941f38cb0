package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning is returned when another process with the same executable name exists.
var ErrAlreadyRunning = errors.New("another instance is already running")

// Lister returns the running processes.
type Lister func() ([]ps.Process, error)

// Guard checks for concurrent instances of an executable.
type Guard struct {
	list Lister
	self int
}

// NewGuard creates a guard backed by the operating system process table.
func NewGuard() *Guard {
	return &Guard{
		list: ps.Processes,
		self: os.Getpid(),
	}
}

// Check returns ErrAlreadyRunning when a process other than this one runs executable.
func (g *Guard) Check(executable string) error {
	processList, err := g.list()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	for _, process := range processList {
		if process.Pid() == g.self {
			continue
		}

		if !sameExecutable(process.Executable(), executable) {
			continue
		}

		return fmt.Errorf("%w: %s (pid %d)", ErrAlreadyRunning, executable, process.Pid())
	}

	return nil
}

// EnsureSingle fails with ErrAlreadyRunning when another process runs executable.
func EnsureSingle(executable string) error {
	return NewGuard().Check(executable)
}

// CurrentExecutable returns the file name of the running binary.
func CurrentExecutable() string {
	path, err := os.Executable()
	if err != nil {
		return filepath.Base(os.Args[0])
	}

	return filepath.Base(path)
}

// sameExecutable compares names ignoring the Windows extension and, on
// Linux, the 15-character truncation of the comm field.
func sameExecutable(running, wanted string) bool {
	running = strings.TrimSuffix(strings.ToLower(running), ".exe")
	wanted = strings.TrimSuffix(strings.ToLower(wanted), ".exe")

	if running == wanted {
		return true
	}

	const commLen = 15

	return len(running) == commLen && strings.HasPrefix(wanted, running)
}
