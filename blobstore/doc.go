// Package blobstore abstracts where serialized n-gram maps live.
//
// A BlobStore holds named immutable blobs. The root package saves a map with
// Create and loads it with Open, decoding in place when the blob is Mappable
// and streaming through ReadRange otherwise.
//
// # Built-in Implementations
//
//   - LocalStore: a directory on the local file system, read through mmap
//   - MemoryStore: an in-process map, mainly for tests
//   - s3.Store: Amazon S3 with ranged reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible services
package blobstore
