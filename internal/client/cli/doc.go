// Package cli is the interactive front end of the feedkeeper client: a
// line-oriented REPL over the local record store. Every command works
// offline; sync runs in the background and on demand.
package cli
