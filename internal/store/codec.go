package store

import (
	"tasklist-cli/internal/model"

	"github.com/bytedance/sonic"
)

// The persisted value is a JSON array of task records, in canonical order.

func encodeTasks(tasks []model.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []model.Task{}
	}
	return sonic.ConfigStd.Marshal(tasks)
}

// decodeTasks fails on anything that is not an array of task objects. A JSON null
// decodes to an empty list.
func decodeTasks(b []byte) ([]model.Task, error) {
	var out []model.Task
	if err := sonic.ConfigStd.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Task{}
	}
	return out, nil
}
