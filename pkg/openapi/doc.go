// Package openapi describes group submissions as an OpenAPI 3 document built
// with kin-openapi. Each group gets one POST operation whose request body
// mirrors the group's compiled controls.
package openapi
