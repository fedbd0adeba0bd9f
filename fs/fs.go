// Package appfs embeds the static files shipped with the binaries: DB migrations and email templates.
package appfs

import "embed"

//go:embed migrations all:assets
var FS embed.FS
