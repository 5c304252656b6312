// Package client contains the client-side plumbing of feedkeeper that talks
// to the outside world.
//
// # Overview
//
//  1. Gateway is the contract of the shared household dataset: record
//     upserts and change queries scoped by household, household creation and
//     lookup, device membership, and archive export.
//  2. GRPCClient implements Gateway over the feedkeeper.v1.Household gRPC
//     service. It attaches the device id to every call and maps gRPC status
//     codes to the sentinel errors in internal/common.
//  3. InitDatabase and RunMigrations open the local SQLite store and apply
//     the embedded goose migrations.
//
// # Error Handling
//
// Transport failures surface as common.ErrRemoteUnavailable, unknown
// households as common.ErrNotFound, and other server-side rejections as
// common.ErrPartialRecordFailure or common.ErrInvalidRecord, so the sync
// engine can tell a pass-level outage from a single bad record.
//
// GRPCClient is safe for concurrent use.
package client
