package tasks

import (
	"fmt"
	"strings"
)

// Entry is one key of a task table in declared order
type Entry struct {
	Key     string
	Payload interface{}
}

// Task is a named bundle of commands with dependencies on other tasks
type Task struct {
	Name         string
	Entries      []Entry
	Dependencies []string
}

// NewTask builds a task from its ordered table entries, splitting out the
// dependencies key. Dependencies may be declared as a single name or a list.
func NewTask(name string, entries []Entry) (Task, error) {
	task := Task{Name: name}
	for _, entry := range entries {
		if entry.Key != DependenciesKey {
			task.Entries = append(task.Entries, entry)
			continue
		}

		deps, err := stringList(entry.Payload)
		if err != nil {
			return Task{}, fmt.Errorf("task '%s': dependencies: %v", name, err)
		}
		task.Dependencies = append(task.Dependencies, deps...)
	}

	return task, nil
}

func (t Task) clone() Task {
	c := Task{
		Name:         t.Name,
		Entries:      make([]Entry, len(t.Entries)),
		Dependencies: append([]string(nil), t.Dependencies...),
	}
	for i, entry := range t.Entries {
		c.Entries[i] = Entry{Key: entry.Key, Payload: clonePayload(entry.Payload)}
	}
	return c
}

func clonePayload(payload interface{}) interface{} {
	switch p := payload.(type) {
	case []interface{}:
		out := make([]interface{}, len(p))
		for i, v := range p {
			out[i] = clonePayload(v)
		}
		return out
	case []string:
		return append([]string(nil), p...)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(p))
		for k, v := range p {
			out[k] = clonePayload(v)
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(p))
		for i, v := range p {
			out[i] = clonePayload(v)
		}
		return out
	default:
		return p
	}
}

// commands renders the entry for the given kind into command specs
func (e Entry) commands(kind CommandKind, sudo bool) ([]CommandSpec, error) {
	var specs []CommandSpec

	switch kind {
	case KindInstall, KindUninstall, KindStart, KindStop:
		args, err := stringList(e.Payload)
		if err != nil {
			return nil, err
		}
		if len(args) == 0 {
			return nil, nil
		}
		specs = append(specs, CommandSpec{Kind: kind, Args: args})
	case KindUpdate, KindUpgrade:
		if enabled, ok := e.Payload.(bool); ok && !enabled {
			return nil, nil
		}
		specs = append(specs, CommandSpec{Kind: kind})
	case KindRaw:
		lines, err := stringList(e.Payload)
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			specs = append(specs, Raw(line))
		}
	case KindCopy:
		copies, err := copyList(e.Payload)
		if err != nil {
			return nil, err
		}
		specs = append(specs, copies...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedCommandKind, e.Key)
	}

	for i := range specs {
		specs[i].Sudo = sudo
	}

	return specs, nil
}

func stringList(payload interface{}) ([]string, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(p) == "" {
			return nil, nil
		}
		return []string{p}, nil
	case []string:
		return append([]string(nil), p...), nil
	case []interface{}:
		out := make([]string, 0, len(p))
		for _, v := range p {
			switch s := v.(type) {
			case string:
				out = append(out, s)
			case int64, int, float64, bool:
				out = append(out, fmt.Sprint(s))
			default:
				return nil, fmt.Errorf("unsupported list item %T", v)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected string or list of strings, got %T", payload)
	}
}

func copyList(payload interface{}) ([]CommandSpec, error) {
	switch p := payload.(type) {
	case map[string]interface{}:
		spec, err := copySpec(p)
		if err != nil {
			return nil, err
		}
		return []CommandSpec{spec}, nil
	case []map[string]interface{}:
		var specs []CommandSpec
		for _, item := range p {
			spec, err := copySpec(item)
			if err != nil {
				return nil, err
			}
			specs = append(specs, spec)
		}
		return specs, nil
	case []interface{}:
		var specs []CommandSpec
		for _, item := range p {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("copy entries must be tables, got %T", item)
			}
			spec, err := copySpec(m)
			if err != nil {
				return nil, err
			}
			specs = append(specs, spec)
		}
		return specs, nil
	default:
		return nil, fmt.Errorf("copy requires a table with src and dest, got %T", payload)
	}
}

func copySpec(m map[string]interface{}) (CommandSpec, error) {
	src, _ := m["src"].(string)
	dest, _ := m["dest"].(string)
	if src == "" || dest == "" {
		return CommandSpec{}, fmt.Errorf("copy requires src and dest")
	}
	recursive, _ := m["recursive"].(bool)

	return Copy(src, dest, recursive), nil
}
