// Package upload pushes a batch of images to the object store.
//
// Each file is compressed, uploaded with progress reporting and retried on
// transient failures under a linear backoff Policy. Files are processed by a
// bounded worker pool. A Batch exposes per-file UploadTask state, the
// aggregate progress, and a single consolidated error when any file is
// exhausted. Abort cancels in-flight transports and fails the batch with
// common.ErrCancelled.
package upload
