package sensor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning indicates another sensor process owns the alarm output.
var ErrAlreadyRunning = errors.New("another sensor instance is already running")

// ensureSingleInstance fails when another process runs the same executable.
func ensureSingleInstance() error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	processList, err := ps.Processes()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	pids := otherInstances(processList, filepath.Base(executable), os.Getpid())
	if len(pids) > 0 {
		return fmt.Errorf("%w: pid %v", ErrAlreadyRunning, pids)
	}

	return nil
}

// otherInstances returns the PIDs running name, except self and its parent.
// The parent is skipped so a wrapper exec-ing the sensor does not count.
func otherInstances(processList []ps.Process, name string, self int) []int {
	var (
		parent = os.Getppid()
		pids   []int
	)

	for _, process := range processList {
		if process.Pid() == self || process.Pid() == parent {
			continue
		}

		if process.Executable() != name {
			continue
		}

		pids = append(pids, process.Pid())
	}

	return pids
}
