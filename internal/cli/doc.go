// Package cli wires together the Cobra command tree for the pmscrub binary.
//
// It defines the root command and all subcommands (one fetch command per
// source, serve, cache, version), binds flags, reads configuration, runs the
// fetch-filter-print pipeline, and returns deterministic exit codes.
package cli
