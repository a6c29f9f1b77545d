// Package ingest runs carving jobs end to end: it locks the work directory,
// registers the data source and job in case storage, fans the source's units
// out across a bounded worker pool, and settles the job's accounting record
// when the last worker lets go of the shared workspace.
package ingest
