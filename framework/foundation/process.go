package foundation

import (
	"fmt"
	"strings"
)

// StartProcess is a phase of the application lifecycle. Phases only ever
// advance, in declaration order, over the lifetime of one Application.
type StartProcess int32

const (
	Construct StartProcess = iota
	Bootstrap
	Bootstrapping
	Bootstrapped
	Init
	Initing
	Inited
	Running
	Terminate
	Terminating
	Terminated
)

func (p StartProcess) String() string {
	switch p {
	case Construct:
		return "Construct"
	case Bootstrap:
		return "Bootstrap"
	case Bootstrapping:
		return "Bootstrapping"
	case Bootstrapped:
		return "Bootstrapped"
	case Init:
		return "Init"
	case Initing:
		return "Initing"
	case Inited:
		return "Inited"
	case Running:
		return "Running"
	case Terminate:
		return "Terminate"
	case Terminating:
		return "Terminating"
	case Terminated:
		return "Terminated"
	default:
		return fmt.Sprintf("StartProcess(%d)", int32(p))
	}
}

// DebugLevel tells services how much diagnostic work they may do.
type DebugLevel int

const (
	Production DebugLevel = iota
	Staging
	Development
)

func (l DebugLevel) String() string {
	switch l {
	case Production:
		return "production"
	case Staging:
		return "staging"
	case Development:
		return "development"
	default:
		return fmt.Sprintf("DebugLevel(%d)", int(l))
	}
}

// ParseDebugLevel maps a case-insensitive name to a DebugLevel.
func ParseDebugLevel(s string) (DebugLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod":
		return Production, nil
	case "staging":
		return Staging, nil
	case "development", "dev":
		return Development, nil
	default:
		return Production, fmt.Errorf("unknown debug level %q", s)
	}
}
