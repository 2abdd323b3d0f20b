// Package labscrub provides the command-line interface for labscrub. It wires
// the subcommands (sanitize, scan, serve, mcp, etc.), parses flags and runs
// the selected command.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/redactyl/labscrub/cmd/labscrub"
//	func main() { labscrub.Execute() }
package labscrub
