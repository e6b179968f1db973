// ABOUTME: Embeds the console shell HTML templates into the binary using go:embed
// ABOUTME: Templates are parsed per render from templateFS

package console

import "embed"

//go:embed templates/*.html
var templateFS embed.FS
