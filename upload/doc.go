// Package upload runs the three-step dataset upload.
//
// An upload registers a dataset with the API, streams the bytes to the
// one-time URL the API hands back, then fetches the dataset record to confirm
// what the server stored:
//
//	created -> registered -> uploaded -> confirmed
//
// Any step can end the run in the failed state. The error is a
// *datalake.StageError naming the step. A failure after register leaves the
// registered dataset on the server; nothing is rolled back. Such datasets are
// recorded by the journal package and removed only on request.
//
// A Plan wraps a single-pass reader and may be run once.
package upload
