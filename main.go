// The main package for the scraper control-plane executable.
package main

import (
	"github.com/CyborPunk-2077/article-scraper/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
