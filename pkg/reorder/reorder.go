// Package reorder moves a field within its group's element order using
// list-splice semantics: the dragged element is removed and re-inserted at
// the target's index as it was before removal.
package reorder

import (
	"github.com/goliatone/go-formbuilder/pkg/model"
)

// GroupUpdater is the store surface Move writes through.
type GroupUpdater interface {
	UpdateGroupFunc(id int64, fn func(model.FieldGroup) (model.FieldGroup, bool)) bool
}

// Reorder returns a new slice with the dragged element relocated. When
// either id is missing or both ids are equal the original order is returned
// (as a copy) together with false.
func Reorder(elements []model.FieldDefinition, draggedID, targetID int64) ([]model.FieldDefinition, bool) {
	out := model.CloneElements(elements)
	if draggedID == targetID {
		return out, false
	}

	from, to := -1, -1
	for idx, element := range out {
		switch element.ID {
		case draggedID:
			from = idx
		case targetID:
			to = idx
		}
	}
	if from < 0 || to < 0 {
		return out, false
	}

	dragged := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out, model.FieldDefinition{})
	copy(out[to+1:], out[to:])
	out[to] = dragged
	return out, true
}

// Move reorders the elements of a stored group and writes the result back
// atomically. It reports false when the group or either element is missing.
func Move(store GroupUpdater, groupID, draggedID, targetID int64) bool {
	if store == nil {
		return false
	}
	return store.UpdateGroupFunc(groupID, func(group model.FieldGroup) (model.FieldGroup, bool) {
		elements, ok := Reorder(group.Elements, draggedID, targetID)
		if !ok {
			return group, false
		}
		group.Elements = elements
		return group, true
	})
}
