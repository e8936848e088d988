package model

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// tables accepted by Seed
const (
	TableTasks       = "tasks"
	TableInputOutput = "input_output"
	TableInput       = "input"
	TableOutput      = "output"
)

var SeedTables = []string{TableTasks, TableInputOutput, TableInput, TableOutput}

// ReadSeedFile reads a JSON array of flat records.
func ReadSeedFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s does not contain valid JSON", path)
	}
	return data, nil
}

// Seed inserts the records of data into table inside one transaction and
// returns the number of rows written.
func Seed(ctx context.Context, db *gorm.DB, table string, data []byte) (int, error) {
	var rows interface{}
	var count int

	switch table {
	case TableTasks:
		var tasks []Task
		if err := json.Unmarshal(data, &tasks); err != nil {
			return 0, err
		}
		rows, count = &tasks, len(tasks)
	case TableInputOutput:
		var cases []InputOutput
		if err := json.Unmarshal(data, &cases); err != nil {
			return 0, err
		}
		rows, count = &cases, len(cases)
	case TableInput:
		var inputs []Input
		if err := json.Unmarshal(data, &inputs); err != nil {
			return 0, err
		}
		rows, count = &inputs, len(inputs)
	case TableOutput:
		var outputs []Output
		if err := json.Unmarshal(data, &outputs); err != nil {
			return 0, err
		}
		rows, count = &outputs, len(outputs)
	default:
		return 0, fmt.Errorf("unsupported table: %s", table)
	}

	if count == 0 {
		return 0, nil
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(rows).Error
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
