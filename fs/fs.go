package appfs

import "embed"

// FS embeds the database migrations so the binaries can migrate
// without shipping loose SQL files.
//
//go:embed migrations
var FS embed.FS
