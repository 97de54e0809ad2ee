package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// WriteTextfile writes every herd metric to path in the text exposition
// format. The file is replaced atomically.
func WriteTextfile(path string) error {
	return writeTextfile(path, Registry)
}

func writeTextfile(path string, gatherer prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
