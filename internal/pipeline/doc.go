// Package pipeline ingests worker results into the Link Store.
//
// A submitted scrape result passes through a fixed sequence of steps:
// validation, redirect recording, page freshness, failure handling and
// link recording. Each step receives the Ingestion being built and can
// stop the pipeline early.
//
// Design decision: We use a pipeline pattern instead of one large function
// because:
// 1. Each step has a single store concern and can be tested in isolation
// 2. It provides consistent logging and cancellation between steps
// 3. The failure policy is a swappable step rather than a branch
//
// Validation runs first and touches nothing, so a rejected submission
// leaves the store unchanged. Per-link problems are counted on the
// Ingestion and never abort the rest of the submission.
package pipeline
