// Package template defines the engine contract used by template-driven
// renderers. The gotemplate subpackage implements it on pongo2.
package template
