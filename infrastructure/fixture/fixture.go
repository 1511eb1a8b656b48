// Package fixture loads queues and jobs from YAML documents.
package fixture

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/helixml/jobsel/domain/attribute"
	"github.com/helixml/jobsel/domain/job"
	"github.com/helixml/jobsel/domain/queue"
)

// ErrInvalid is returned for fixtures that fail validation.
var ErrInvalid = errors.New("invalid fixture")

// Queue is one queue entry.
type Queue struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Job is one job entry. Attributes are keyed by attribute name and
// resources by resource name; both hold the raw external form.
type Job struct {
	ID         string            `yaml:"id"`
	Queue      string            `yaml:"queue"`
	Array      string            `yaml:"array,omitempty"`
	Summary    bool              `yaml:"summary,omitempty"`
	Attributes map[string]string `yaml:"attributes,omitempty"`
	Resources  map[string]string `yaml:"resources,omitempty"`
}

// Fixture is a YAML document describing a job table.
type Fixture struct {
	Queues []Queue `yaml:"queues"`
	Jobs   []Job   `yaml:"jobs"`
}

// Load decodes a fixture from r.
func Load(r io.Reader) (Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return Fixture{}, nil
		}
		return Fixture{}, fmt.Errorf("decode fixture: %w", err)
	}
	return f, nil
}

// LoadFile decodes the fixture stored at path.
func LoadFile(path string) (Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("open fixture: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// BuildQueues converts the queue entries to domain queues.
func (f Fixture) BuildQueues() ([]*queue.Queue, error) {
	out := make([]*queue.Queue, 0, len(f.Queues))
	seen := make(map[string]bool, len(f.Queues))
	for i, q := range f.Queues {
		if q.Name == "" {
			return nil, fmt.Errorf("%w: queue %d has no name", ErrInvalid, i+1)
		}
		if seen[q.Name] {
			return nil, fmt.Errorf("%w: queue %s listed twice", ErrInvalid, q.Name)
		}
		seen[q.Name] = true
		t, err := queue.ParseType(q.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: queue %s: %v", ErrInvalid, q.Name, err)
		}
		out = append(out, queue.New(q.Name, t))
	}
	return out, nil
}

// BuildJobs converts the job entries to domain jobs, decoding attributes
// through catalog. Attributes are applied in name order so the result does
// not depend on map iteration.
func (f Fixture) BuildJobs(catalog attribute.Catalog) ([]*job.Job, error) {
	out := make([]*job.Job, 0, len(f.Jobs))
	for i, entry := range f.Jobs {
		if entry.ID == "" {
			return nil, fmt.Errorf("%w: job %d has no id", ErrInvalid, i+1)
		}
		set := catalog.NewSet()
		if err := catalog.DecodeInto(&set, attribute.NameQueue, "", entry.Queue); err != nil {
			return nil, fmt.Errorf("%w: job %s: %v", ErrInvalid, entry.ID, err)
		}
		for _, name := range slices.Sorted(maps.Keys(entry.Attributes)) {
			if err := catalog.DecodeInto(&set, name, "", entry.Attributes[name]); err != nil {
				return nil, fmt.Errorf("%w: job %s: %v", ErrInvalid, entry.ID, err)
			}
		}
		for _, name := range slices.Sorted(maps.Keys(entry.Resources)) {
			if err := catalog.DecodeInto(&set, attribute.NameResourceList, name, entry.Resources[name]); err != nil {
				return nil, fmt.Errorf("%w: job %s: %v", ErrInvalid, entry.ID, err)
			}
		}

		var opts []job.Option
		if entry.Array != "" {
			opts = append(opts, job.WithArray(entry.Array))
		}
		if entry.Summary {
			opts = append(opts, job.AsArraySummary())
		}
		out = append(out, job.New(entry.ID, set, opts...))
	}
	return out, nil
}
