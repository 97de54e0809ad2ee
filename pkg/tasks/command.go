package tasks

import (
	"errors"
	"fmt"
	"strings"
)

// CommandKind is the closed set of operations a task entry can describe
type CommandKind int

const (
	// KindUnknown is never produced by ParseCommandKind on success
	KindUnknown CommandKind = iota
	KindInstall
	KindUninstall
	KindStart
	KindStop
	KindUpdate
	KindUpgrade
	KindCopy
	KindRaw
)

// DependenciesKey is the task table key reserved for dependency declarations
const DependenciesKey = "dependencies"

// ErrUnrecognizedCommandKind is reported for task keys that are no command kind
var ErrUnrecognizedCommandKind = errors.New("unrecognized command kind")

var kindNames = map[CommandKind]string{
	KindInstall:   "install",
	KindUninstall: "uninstall",
	KindStart:     "start",
	KindStop:      "stop",
	KindUpdate:    "update",
	KindUpgrade:   "upgrade",
	KindCopy:      "copy",
	KindRaw:       "raw",
}

func (k CommandKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseCommandKind maps a task key to its CommandKind
func ParseCommandKind(key string) (CommandKind, error) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "install":
		return KindInstall, nil
	case "uninstall":
		return KindUninstall, nil
	case "start":
		return KindStart, nil
	case "stop":
		return KindStop, nil
	case "update":
		return KindUpdate, nil
	case "upgrade":
		return KindUpgrade, nil
	case "copy":
		return KindCopy, nil
	case "raw":
		return KindRaw, nil
	default:
		return KindUnknown, fmt.Errorf("%w: %q", ErrUnrecognizedCommandKind, key)
	}
}

// CommandSpec is one operation to run on a node
type CommandSpec struct {
	Kind CommandKind
	// Args holds packages, services or the raw command line
	Args []string
	// Src, Dest and Recursive are only used by KindCopy
	Src       string
	Dest      string
	Recursive bool
	Sudo      bool
}

// Install returns a package installation command
func Install(packages ...string) CommandSpec {
	return CommandSpec{Kind: KindInstall, Args: packages}
}

// Uninstall returns a package removal command
func Uninstall(packages ...string) CommandSpec {
	return CommandSpec{Kind: KindUninstall, Args: packages}
}

// Start returns a service start command
func Start(service string) CommandSpec {
	return CommandSpec{Kind: KindStart, Args: []string{service}}
}

// Stop returns a service stop command
func Stop(service string) CommandSpec {
	return CommandSpec{Kind: KindStop, Args: []string{service}}
}

// Update returns the package index update command
func Update() CommandSpec {
	return CommandSpec{Kind: KindUpdate}
}

// Upgrade returns the package upgrade command
func Upgrade() CommandSpec {
	return CommandSpec{Kind: KindUpgrade}
}

// Raw returns an arbitrary shell command
func Raw(command string) CommandSpec {
	return CommandSpec{Kind: KindRaw, Args: []string{command}}
}

// Copy returns a file transfer command
func Copy(src, dest string, recursive bool) CommandSpec {
	return CommandSpec{Kind: KindCopy, Src: src, Dest: dest, Recursive: recursive}
}

// WithSudo returns a copy of the command with the sudo flag set
func (c CommandSpec) WithSudo(sudo bool) CommandSpec {
	c.Sudo = sudo
	c.Args = append([]string(nil), c.Args...)
	return c
}

// IsCopy reports whether the command is a file transfer instead of a shell line
func (c CommandSpec) IsCopy() bool {
	return c.Kind == KindCopy
}

// Shell renders the command line executed on the node. Copy commands have no
// shell form and render to an empty string.
func (c CommandSpec) Shell() string {
	var line string
	switch c.Kind {
	case KindInstall:
		line = "apt-get install -y " + strings.Join(c.Args, " ")
	case KindUninstall:
		line = "apt-get remove -y " + strings.Join(c.Args, " ")
	case KindStart:
		return c.services("start")
	case KindStop:
		return c.services("stop")
	case KindUpdate:
		line = "apt-get update -y"
	case KindUpgrade:
		line = "apt-get upgrade -y"
	case KindRaw:
		line = strings.Join(c.Args, " ")
	default:
		return ""
	}

	return c.prefix() + line
}

func (c CommandSpec) services(action string) string {
	lines := make([]string, 0, len(c.Args))
	for _, service := range c.Args {
		lines = append(lines, fmt.Sprintf("%sservice %s %s", c.prefix(), service, action))
	}
	return strings.Join(lines, " && ")
}

func (c CommandSpec) prefix() string {
	if c.Sudo {
		return "sudo "
	}
	return ""
}

// String describes the command for events and logs
func (c CommandSpec) String() string {
	if c.IsCopy() {
		return fmt.Sprintf("copy %s -> %s", c.Src, c.Dest)
	}
	return c.Shell()
}
