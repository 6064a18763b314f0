// Package web embeds the entry form page and its static assets.
package web

import "embed"

// TemplatesFS embeds HTML templates for server-side rendering.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the form script and styles.
//
//go:embed static/*
var StaticFS embed.FS
