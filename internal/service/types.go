package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// StatusConnected is the literal a backend reports for a healthy subsystem.
const StatusConnected = "connected"

// TaskID is an opaque task identifier assigned by the backend.
// JSON numbers and strings are both accepted; numeric ids are written back as numbers.
type TaskID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *TaskID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = TaskID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid task id %s: %w", data, err)
	}
	*id = TaskID(n.String())
	return nil
}

// MarshalJSON implements json.Marshaler.
func (id TaskID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// String returns the id as text.
func (id TaskID) String() string { return string(id) }

// Task represents a single task item.
type Task struct {
	ID        TaskID `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	Completed bool   `json:"completed" yaml:"completed"`
}

// HealthReport is the payload of a health probe.
type HealthReport struct {
	Status   string `json:"status,omitempty"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// DatabaseConnected reports whether the persistent store is reachable.
func (r HealthReport) DatabaseConnected() bool { return r.Database == StatusConnected }

// CacheConnected reports whether the cache is reachable.
func (r HealthReport) CacheConnected() bool { return r.Cache == StatusConnected }
