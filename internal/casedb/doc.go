// Package casedb persists the case data model in SQLite: data sources, the
// virtual directory hierarchy, carved files with their byte-run layouts, and
// ingest job history. Inserting carved files materializes their virtual
// parent chain as a side effect, mirroring how a case store auto-creates
// container directories.
package casedb
