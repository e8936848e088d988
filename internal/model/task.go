package model

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrTaskNotFound = errors.New("task not found")

type Task struct {
	ID           int           `gorm:"column:id;primaryKey" json:"id"`
	Name         string        `gorm:"column:name;size:50;not null" json:"name"`
	Description  string        `gorm:"column:description;type:text;not null" json:"description"`
	Topic        string        `gorm:"column:topic;size:50;not null" json:"topic"`
	CorrectCode  string        `gorm:"column:correct_code;type:text;not null" json:"correct_code"`
	MessedCode   string        `gorm:"column:messed_code;type:text;not null" json:"messed_code"`
	InputOutputs []InputOutput `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Task) TableName() string {
	return "tasks"
}

// Problem is the statement handed to the review agent.
func (task Task) Problem() string {
	return task.Name + "\n" + task.Description
}

func ListTasks(ctx context.Context) ([]Task, error) {
	var tasks []Task
	err := DB.WithContext(ctx).Order("id").Find(&tasks).Error
	return tasks, err
}

func ListTasksByTopic(ctx context.Context, topic string) ([]Task, error) {
	var tasks []Task
	err := DB.WithContext(ctx).Where("topic = ?", topic).Order("id").Find(&tasks).Error
	return tasks, err
}

func GetTask(ctx context.Context, id int) (Task, error) {
	var task Task
	if err := DB.WithContext(ctx).First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return task, ErrTaskNotFound
		}
		return task, err
	}
	return task, nil
}

// GetTaskCases returns the stored test cases of a task with their inputs
// and outputs, all ordered by id.
func GetTaskCases(ctx context.Context, taskID int) ([]InputOutput, error) {
	byID := func(db *gorm.DB) *gorm.DB { return db.Order("id") }

	var cases []InputOutput
	err := DB.WithContext(ctx).
		Preload("Inputs", byID).
		Preload("Outputs", byID).
		Where("task_id = ?", taskID).
		Order("id").
		Find(&cases).Error
	return cases, err
}

// DeleteTask removes a task together with its test cases. The dependent rows
// are deleted explicitly so the cascade holds on backends that do not
// enforce foreign keys.
func DeleteTask(ctx context.Context, id int) error {
	return DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task Task
		if err := tx.First(&task, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return err
		}

		cases := tx.Model(&InputOutput{}).Select("id").Where("task_id = ?", id)

		if err := tx.Where("input_output_id IN (?)", cases).Delete(&Output{}).Error; err != nil {
			return err
		}
		if err := tx.Where("input_output_id IN (?)", cases).Delete(&Input{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&InputOutput{}).Error; err != nil {
			return err
		}
		return tx.Delete(&task).Error
	})
}
