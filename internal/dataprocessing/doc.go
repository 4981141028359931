// Package dataprocessing implements the battery-swap record pipeline: schema
// resolution and parsing of uploaded workbooks, duplicate detection,
// battery-standard classification, self-exchange filtering, and the
// per-client summary aggregation.
//
// The pipeline is synchronous and stateless across calls. One invocation
// processes one complete record set in memory and returns complete results;
// input records are never mutated, all derived attributes live on working
// copies. Stages run strictly in order:
//
//	Duplicate Detector → Classifier → Self-Exchange Filter → Aggregator
//
// Correctness here is load-bearing for business reporting: a wrong threshold,
// a wrong dedup window, or a double count silently corrupts every client
// rollup downstream.
package dataprocessing
