// Command headcatalog runs the head catalog server.
package main

import "github.com/openheads/headcatalog/cmd/headcatalog/cmd"

func main() {
	cmd.Execute()
}
