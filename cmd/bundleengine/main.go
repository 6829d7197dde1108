// Command bundleengine is a demo CLI harness over the wardrobe bundle
// assembly engine. It is not the engine's production interface.
package main

import "github.com/outfitforge/bundleengine/internal/cli"

func main() {
	cli.Execute()
}
