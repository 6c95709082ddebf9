/*
Package storage provides BlobStore implementations: the put/get-bytes
capability the engine parks chunked and external payloads behind.

MemoryStore is the default, an in-process map suitable for tests and
for callers that persist descriptors themselves. The s3 subpackage
stores payloads in an S3 bucket for deployments that want external
blobs off-box. Both implementations copy on the way in and out; the
engine never shares buffers with a store.
*/
package storage
