package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/xetys/herd/pkg/tasks"
)

type taskFile struct {
	Tasks map[string]map[string]interface{} `toml:"tasks"`
}

// loadTasks decodes the [tasks.*] tables keeping each table's key order
func loadTasks(path string) (map[string]tasks.Task, error) {
	var file taskFile
	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		return nil, fmt.Errorf("decoding tasks: %w", err)
	}

	order := map[string][]string{}
	seen := map[string]bool{}
	for _, key := range meta.Keys() {
		if len(key) != 3 || key[0] != "tasks" || seen[key.String()] {
			continue
		}
		seen[key.String()] = true
		order[key[1]] = append(order[key[1]], key[2])
	}

	table := make(map[string]tasks.Task, len(file.Tasks))
	for name, values := range file.Tasks {
		entries := make([]tasks.Entry, 0, len(values))
		for _, key := range order[name] {
			entries = append(entries, tasks.Entry{Key: key, Payload: values[key]})
		}

		task, err := tasks.NewTask(name, entries)
		if err != nil {
			return nil, err
		}
		table[name] = task
	}

	return table, nil
}
