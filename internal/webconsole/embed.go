// ABOUTME: Embeds HTML templates and help markdown into the binary using go:embed
// ABOUTME: Provides templateFS and helpDocsFS for loading at runtime

package webconsole

import "embed"

//go:embed templates/*.html templates/partials/*.html
var templateFS embed.FS

//go:embed docs/help.md
var helpDocsFS embed.FS
