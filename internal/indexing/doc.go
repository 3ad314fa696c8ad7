// Package indexing defines the types and interfaces shared by the URL
// submission pipeline: submission results, quota state, daily summaries,
// the narrow persistence seams (ResultSink, SummaryStore) and the error
// kinds callers use to tell fatal failures from recoverable ones.
package indexing
