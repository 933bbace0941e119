// Package templates holds the embedded HTML templates for the web UI.
package templates

import "embed"

//go:embed layouts pages partials
var FS embed.FS
