// Package cli implements the heapcache-bench command line interface.
package cli
