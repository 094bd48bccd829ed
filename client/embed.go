// Package client embeds the console's browser script.
package client

import (
	"embed"
	"io/fs"
)

//go:embed src/*.js
var assets embed.FS

// Script is the asset name of the live session script.
const Script = "admin.js"

// Assets returns the embedded files, rooted at src.
func Assets() fs.FS {
	fsys, err := fs.Sub(assets, "src")
	if err != nil {
		panic(err)
	}
	return fsys
}
