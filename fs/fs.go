package appfs

import "embed"

// FS carries the assets the binaries need at runtime: SQL migrations and
// email templates.
//go:embed migrations templates
var FS embed.FS
