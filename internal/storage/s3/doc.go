/*
Package s3 provides an S3-backed BlobStore for external and chunked
payloads.

The store maps blob keys onto bucket objects under an optional prefix
and exposes the same Put/Get/Delete/Exists surface as the in-memory
store. Credentials and region resolution follow the standard AWS SDK
chain; a custom endpoint with path-style addressing supports
S3-compatible targets such as MinIO.
*/
package s3
