package tasks

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// CyclicDependencyError is returned when a task depends on itself, directly or
// through other tasks
type CyclicDependencyError struct {
	Path []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic task dependency: %s", strings.Join(e.Path, " -> "))
}

// UnknownTaskError is returned when a task or dependency is not configured
type UnknownTaskError struct {
	Name string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("task '%s' not found", e.Name)
}

// Warning is a non-fatal problem found while resolving a task
type Warning struct {
	Task string
	Key  string
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("task '%s': skipping '%s': %v", w.Task, w.Key, w.Err)
}

// Expansion is the result of resolving a task
type Expansion struct {
	Commands []CommandSpec
	Warnings []Warning
}

// Resolver expands tasks into ordered command lists. It works on a private
// snapshot of the task table, so resolutions never observe or cause mutation.
type Resolver struct {
	tasks map[string]Task
	log   zerolog.Logger
}

// NewResolver snapshots the given tasks
func NewResolver(tasks map[string]Task, logger zerolog.Logger) *Resolver {
	snapshot := make(map[string]Task, len(tasks))
	for name, task := range tasks {
		t := task.clone()
		if t.Name == "" {
			t.Name = name
		}
		snapshot[name] = t
	}

	return &Resolver{tasks: snapshot, log: logger}
}

// Names returns the configured task names in sorted order
func (r *Resolver) Names() []string {
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the commands of the named task, dependencies first.
// Warnings are logged and otherwise dropped.
func (r *Resolver) Resolve(name string, sudo bool) ([]CommandSpec, error) {
	expansion, err := r.Expand(name, sudo)
	if err != nil {
		return nil, err
	}

	for _, warning := range expansion.Warnings {
		r.log.Warn().Str("task", warning.Task).Str("key", warning.Key).Msg(warning.Err.Error())
	}

	return expansion.Commands, nil
}

// Expand resolves the named task and reports skipped entries as warnings
func (r *Resolver) Expand(name string, sudo bool) (*Expansion, error) {
	w := &walk{
		resolver: r,
		sudo:     sudo,
		done:     map[string]bool{},
		onStack:  map[string]bool{},
		result:   &Expansion{},
	}

	if err := w.visit(name); err != nil {
		return nil, err
	}

	return w.result, nil
}

type walk struct {
	resolver *Resolver
	sudo     bool
	done     map[string]bool
	onStack  map[string]bool
	stack    []string
	result   *Expansion
}

func (w *walk) visit(name string) error {
	if w.onStack[name] {
		path := append([]string{}, w.stack[indexOf(w.stack, name):]...)
		return &CyclicDependencyError{Path: append(path, name)}
	}
	if w.done[name] {
		return nil
	}

	task, ok := w.resolver.tasks[name]
	if !ok {
		return &UnknownTaskError{Name: name}
	}

	w.onStack[name] = true
	w.stack = append(w.stack, name)

	for _, dep := range task.Dependencies {
		if err := w.visit(dep); err != nil {
			return err
		}
	}

	for _, entry := range task.Entries {
		kind, err := ParseCommandKind(entry.Key)
		if err != nil {
			w.result.Warnings = append(w.result.Warnings, Warning{Task: name, Key: entry.Key, Err: err})
			continue
		}

		commands, err := entry.commands(kind, w.sudo)
		if errors.Is(err, ErrUnrecognizedCommandKind) {
			w.result.Warnings = append(w.result.Warnings, Warning{Task: name, Key: entry.Key, Err: err})
			continue
		}
		if err != nil {
			return fmt.Errorf("task '%s': %s: %v", name, entry.Key, err)
		}
		w.result.Commands = append(w.result.Commands, commands...)
	}

	w.stack = w.stack[:len(w.stack)-1]
	delete(w.onStack, name)
	w.done[name] = true

	return nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return 0
}
