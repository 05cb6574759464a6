// Pmscrub fetches product-management records and redacts PII before the
// data reaches a language model.
//
// Usage:
//
//	pmscrub jira issues               # fetch and filter Jira issues
//	pmscrub productboard notes        # fetch and filter Productboard notes
//	pmscrub dovetail highlights       # fetch and filter Dovetail highlights
//	pmscrub confluence pages          # fetch and filter Confluence pages
//	pmscrub serve                     # run the filter as an HTTP service
//
// Filtered JSON goes to stdout; diagnostics go to stderr.
package main

import (
	"os"

	"github.com/scrubware/pmscrub/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
