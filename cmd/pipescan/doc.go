// Package pipescan provides the command-line interface for pipescan. It
// wires the scan, install, report and helper subcommands.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/varalys/pipescan/cmd/pipescan"
//	func main() { os.Exit(pipescan.Execute()) }
package pipescan
