// Command mkexpand expands GNU make text from the command line.
package main

import (
	"os"

	"github.com/rcarmo/go-mkexpand/pkg/applets/mkexpand"
	"github.com/rcarmo/go-mkexpand/pkg/core"
)

func main() {
	stdio := core.DefaultStdio()
	os.Exit(mkexpand.Run(stdio, os.Args[1:]))
}
