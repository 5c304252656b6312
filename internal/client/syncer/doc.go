// Package syncer reconciles the local record store with the household
// gateway. Engine runs one push-then-pull pass; Scheduler decides when
// passes run and tracks the status shown to the user.
package syncer
