package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const invocationFixture = `{
  "id": "inv1",
  "state": "scheduled",
  "steps": [
    {"id": "s0", "workflow_step_id": 10, "job_id": null, "order_index": 0},
    {"id": "s1", "workflow_step_id": 11, "job_id": "jobA", "order_index": 1},
    {"id": "s2", "workflow_step_id": 12, "job_id": "jobB", "order_index": 2}
  ],
  "outputs": {
    "trimmed": {"id": "d1", "src": "hda", "workflow_step_id": 11},
    "report":  {"id": "d2", "src": "hda", "workflow_step_id": 11},
    "aligned": {"id": "d3", "src": "hda", "workflow_step_id": 12},
    "orphan":  {"id": "d4", "src": "hda", "workflow_step_id": 10}
  }
}`

func TestOutputMap_GroupsOutputsByJob(t *testing.T) {
	var inv InvocationDescriptor
	require.NoError(t, json.Unmarshal([]byte(invocationFixture), &inv))

	got := inv.OutputMap()
	require.Len(t, got, 2)

	assert.Equal(t, "jobA", got[0].GalaxyJobID)
	assert.Equal(t, 1, got[0].StepID)
	assert.Equal(t, []string{"d2", "d1"}, got[0].DatasetIDs, "ordered by output label")

	assert.Equal(t, "jobB", got[1].GalaxyJobID)
	assert.Equal(t, 2, got[1].StepID)
	assert.Equal(t, []string{"d3"}, got[1].DatasetIDs)
}

func TestOutputMap_SkipsStepsWithoutJob(t *testing.T) {
	inv := &InvocationDescriptor{
		Steps:   []InvocationStep{{WorkflowStepID: 1, OrderIndex: 0}},
		Outputs: map[string]InvocationIO{"out": {ID: "d1", WorkflowStepID: 1}},
	}
	assert.Empty(t, inv.OutputMap())
}

func TestOutputMap_NilAndEmpty(t *testing.T) {
	var inv *InvocationDescriptor
	assert.Nil(t, inv.OutputMap())
	assert.Nil(t, (&InvocationDescriptor{}).OutputMap())
}

func TestJobDescriptor_Created(t *testing.T) {
	j := &JobDescriptor{CreateTime: "2024-03-05T10:11:12.123456"}
	created := j.Created()
	assert.Equal(t, 2024, created.Year())
	assert.Equal(t, 10, created.Hour())

	bad := &JobDescriptor{CreateTime: "not a time"}
	assert.False(t, bad.Created().IsZero())
}
