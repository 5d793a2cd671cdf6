package core

// Table names are fixed so both dialects and raw joins agree on them.

func (Workflow) TableName() string          { return "workflows" }
func (Analysis) TableName() string          { return "analyses" }
func (History) TableName() string           { return "histories" }
func (Job) TableName() string               { return "jobs" }
func (Dataset) TableName() string           { return "datasets" }
func (AnalysisInput) TableName() string     { return "analysis_inputs" }
func (AnalysisOutput) TableName() string    { return "analysis_outputs" }
func (Tag) TableName() string               { return "tags" }
func (AnalysisOutputTag) TableName() string { return "analysis_output_tags" }
