// Package store persists scouting records in MongoDB, one database per
// season year. It implements the collector's RecordStore contract and
// the query surface the HTTP API serves, and pulls team/match context
// from The Blue Alliance to enrich the season database.
package store
