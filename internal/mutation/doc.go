// Package mutation applies create, update and delete operations on memory
// records optimistically.
//
// A Coordinator keeps one in-memory view per user and writes it through to
// the persisted cache while the view is fresh. Every change is applied
// locally first under the user's lock, then sent to the document store with
// the lock released; a failed remote call rolls the local change back. Sync
// status is reported along the way and successful mutations are announced on
// the invalidation bus so other views refetch.
//
// Remote calls are not cancelled once issued. Cancelling the context passed
// to Create aborts the image uploads that precede the remote create, but not
// the create itself.
package mutation
