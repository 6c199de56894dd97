package domain

import (
	"fmt"
	"strings"
)

// RunMode selects which candidates a run processes.
type RunMode string

const (
	ModeExisting RunMode = "existing"
	ModeWatch    RunMode = "watch"
	ModeBoth     RunMode = "both"
)

var RunModes = []RunMode{ModeExisting, ModeWatch, ModeBoth}

func ParseRunMode(raw string) (RunMode, error) {
	switch RunMode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeExisting, "once", "scan":
		return ModeExisting, nil
	case ModeWatch:
		return ModeWatch, nil
	case ModeBoth:
		return ModeBoth, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse mode", fmt.Errorf("unknown mode %q (want existing, watch or both)", raw))
	}
}

// Continuous reports whether the run keeps watching until cancelled.
func (m RunMode) Continuous() bool {
	return m == ModeWatch || m == ModeBoth
}

func (m RunMode) Describe() string {
	switch m {
	case ModeExisting:
		return "Process existing files, then exit"
	case ModeWatch:
		return "Watch for new scans"
	case ModeBoth:
		return "Process existing files, then keep watching"
	default:
		return string(m)
	}
}
