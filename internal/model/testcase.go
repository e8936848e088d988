package model

// InputOutput groups the inputs and expected outputs of one test case.
type InputOutput struct {
	ID      int      `gorm:"column:id;primaryKey" json:"id"`
	TaskID  int      `gorm:"column:task_id;not null;index" json:"task_id"`
	Inputs  []Input  `gorm:"foreignKey:InputOutputID;constraint:OnDelete:CASCADE" json:"inputs,omitempty"`
	Outputs []Output `gorm:"foreignKey:InputOutputID;constraint:OnDelete:CASCADE" json:"outputs,omitempty"`
}

func (InputOutput) TableName() string {
	return "input_output"
}

type Input struct {
	ID            int    `gorm:"column:id;primaryKey" json:"id"`
	Value         string `gorm:"column:input;size:100;not null" json:"input"`
	Type          string `gorm:"column:input_type;size:50;not null" json:"input_type"`
	InputOutputID int    `gorm:"column:input_output_id;not null;index" json:"input_output_id"`
}

func (Input) TableName() string {
	return "input"
}

type Output struct {
	ID            int    `gorm:"column:id;primaryKey" json:"id"`
	Value         string `gorm:"column:output;size:100;not null" json:"output"`
	Type          string `gorm:"column:output_type;size:50;not null" json:"output_type"`
	InputOutputID int    `gorm:"column:input_output_id;not null;index" json:"input_output_id"`
}

func (Output) TableName() string {
	return "output"
}

// Stdin returns the input values in order, one per line.
func (io InputOutput) Stdin() []string {
	lines := make([]string, 0, len(io.Inputs))
	for _, in := range io.Inputs {
		lines = append(lines, in.Value)
	}
	return lines
}

// Expected returns the expected output values in order.
func (io InputOutput) Expected() []string {
	lines := make([]string, 0, len(io.Outputs))
	for _, out := range io.Outputs {
		lines = append(lines, out.Value)
	}
	return lines
}
