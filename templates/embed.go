package templates

import "embed"

// PagesFS contains the HTML pages served by the web handlers.
//
//go:embed pages/*.html
var PagesFS embed.FS

// EmailsFS contains the transactional email bodies.
//
//go:embed emails/*
var EmailsFS embed.FS
