// Package web holds the dashboard page: the template the server fills with
// the configured units and the script that applies pushed slot writes.
package web

import "embed"

// FS contains index.html, app.js and style.css.
//
//go:embed *.html *.css *.js
var FS embed.FS
