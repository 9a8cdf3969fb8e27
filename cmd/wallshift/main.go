// Wallshift - a catalog-driven wallpaper rotator
//
// Wallshift rotates desktop wallpapers from a curated catalog and extracts
// each image's dominant colours for tinting the surrounding background.
package main

import (
	"github.com/wallshift/wallshift/internal/cli"
)

func main() {
	cli.Execute()
}
