// Package model defines the entities the form builder edits: typed field
// definitions grouped into named, ordered field groups. Groups are the unit
// the store persists, the compiler turns into runtime forms, and the codec
// exchanges. JSON names match the exchange envelope (`id`, `type`, `label`,
// `required`, `placeholder`, `defaultValue`, `options`, `name`,
// `description`, `elements`) so files written by earlier builds stay
// readable. Element ids are scoped to their group; group ids are unique
// across a store.
package model
