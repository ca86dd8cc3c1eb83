// Package common contains shared constants and sentinel errors used across
// memojournal components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the session
// token on outbound document store requests.
const AccessTokenHeaderName = "access_token"

// ProvisionalIDPrefix marks ids generated on the client for optimistic
// records that the document store has not confirmed yet.
const ProvisionalIDPrefix = "temp-"
