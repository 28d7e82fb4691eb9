// Package main is the entry point for the kopy CLI application.
// It initializes all subcommands and executes the root command.
package main

import (
	"github.com/nimblefs/kopy/cmd"
	_ "github.com/nimblefs/kopy/cmd/calc"
	_ "github.com/nimblefs/kopy/cmd/diff"
	_ "github.com/nimblefs/kopy/cmd/hash"
	_ "github.com/nimblefs/kopy/cmd/sync"
)

// main is the entry point of the application.
// It executes the root command which handles all CLI interactions.
func main() {
	cmd.Execute()
}
