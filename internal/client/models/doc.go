// Package models defines the client-side entities of feedkeeper: baby
// profiles, feed entries and stash items, the installation settings
// singleton, and the sync status reported to the UI.
//
// Every entity embeds Meta, the part of a row the sync engine reasons about.
// Kind-specific fields travel between devices as the Fields map of a
// wire.Record; the local row id never leaves the installation.
package models
