// The main package for the pokeapi-ingest executable.
package main

import (
	"github.com/JakeFAU/pokeapi-ingest/cmd"
)

func main() {
	cmd.Execute()
}
