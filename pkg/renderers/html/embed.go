package html

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.tmpl templates/widgets/*.tmpl
var embeddedTemplates embed.FS

//go:embed assets/*
var embeddedAssets embed.FS

// StylesheetName is the bundled stylesheet file name inside AssetsFS.
const StylesheetName = "formbuilder.css"

// TemplatesFS exposes the embedded template bundle so callers can override
// single templates while keeping the rest.
func TemplatesFS() fs.FS {
	return embeddedTemplates
}

// AssetsFS exposes the embedded stylesheet for serving over HTTP.
func AssetsFS() fs.FS {
	sub, err := fs.Sub(embeddedAssets, "assets")
	if err != nil {
		return embeddedAssets
	}
	return sub
}

// Stylesheet returns the bundled CSS.
func Stylesheet() string {
	data, err := fs.ReadFile(embeddedAssets, "assets/"+StylesheetName)
	if err != nil {
		return ""
	}
	return string(data)
}
