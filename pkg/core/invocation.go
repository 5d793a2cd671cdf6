package core

import (
	"sort"
)

// JobOutputs groups the output datasets an invocation expects from one job.
type JobOutputs struct {
	GalaxyJobID string
	StepID      int
	DatasetIDs  []string
}

// OutputMap derives the job -> expected outputs map from the invocation.
// Outputs whose step has not been assigned a job yet are left out; they show
// up on a later pass once the cached descriptor is refreshed.
//
// The result is ordered by step then job id so passes walk jobs in a stable order.
func (inv *InvocationDescriptor) OutputMap() []JobOutputs {
	if inv == nil || len(inv.Outputs) == 0 {
		return nil
	}

	type jobInfo struct {
		jobID string
		step  int
	}
	stepToJob := make(map[int]jobInfo, len(inv.Steps))
	for _, s := range inv.Steps {
		stepToJob[s.WorkflowStepID] = jobInfo{jobID: s.JobID, step: s.OrderIndex}
	}

	labels := make([]string, 0, len(inv.Outputs))
	for label := range inv.Outputs {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	byJob := make(map[string]*JobOutputs)
	for _, label := range labels {
		out := inv.Outputs[label]
		info, ok := stepToJob[out.WorkflowStepID]
		if !ok || info.jobID == "" {
			continue
		}
		jo, ok := byJob[info.jobID]
		if !ok {
			jo = &JobOutputs{GalaxyJobID: info.jobID, StepID: info.step}
			byJob[info.jobID] = jo
		}
		jo.DatasetIDs = append(jo.DatasetIDs, out.ID)
	}

	result := make([]JobOutputs, 0, len(byJob))
	for _, jo := range byJob {
		result = append(result, *jo)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StepID != result[j].StepID {
			return result[i].StepID < result[j].StepID
		}
		return result[i].GalaxyJobID < result[j].GalaxyJobID
	})
	return result
}
