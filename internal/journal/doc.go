// Package journal indexes composed meta records and classification history in
// SQLite.
//
// The journal answers the portal's "latest meta" query after a restart,
// tracks which records still need uploading, and keeps a rolling history of
// aggregated classification results. Meta files on disk stay authoritative;
// the journal can be deleted and the controller keeps working.
package journal
