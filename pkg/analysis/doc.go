// Package analysis starts workflow invocations on the remote server and
// records them as analyses in the local mirror.
//
// Submitting stores the analysis with the invocation descriptor as it was
// right after the invocation was created, plus one input row per local
// dataset passed to the workflow. Everything else the invocation produces is
// discovered later by the reconcile package.
//
//	runner := analysis.New(store, client, blobs)
//	res, err := runner.Submit(ctx, analysis.SubmitRequest{
//	    Name:             "variant calling",
//	    HistoryGalaxyID:  h.GalaxyID,
//	    HistoryID:        h.ID,
//	    WorkflowGalaxyID: wf.GalaxyID,
//	    WorkflowID:       wf.ID,
//	    OwnerID:          owner,
//	    Inputs: map[string]core.WorkflowInput{
//	        "0": {ID: reads.GalaxyID, Src: "hda", DBID: reads.ID},
//	    },
//	})
package analysis
