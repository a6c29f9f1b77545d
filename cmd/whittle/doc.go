// Command whittle is the file-carving pipeline CLI. It carves evidence
// dropped at a path or watched in a spool directory, records job history in
// the case database, and reports on configuration and engine health.
package main
