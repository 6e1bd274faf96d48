package reorder_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/reorder"
	"github.com/goliatone/go-formbuilder/pkg/store"
)

func elements(ids ...int64) []model.FieldDefinition {
	out := make([]model.FieldDefinition, len(ids))
	for idx, id := range ids {
		out[idx] = model.FieldDefinition{ID: id, Type: model.FieldTypeSingleLineText, Label: string(rune('A' + idx))}
	}
	return out
}

func ids(elements []model.FieldDefinition) []int64 {
	out := make([]int64, len(elements))
	for idx, element := range elements {
		out[idx] = element.ID
	}
	return out
}

func TestReorder(t *testing.T) {
	const A, B, C, D = 1, 2, 3, 4

	tests := []struct {
		name    string
		dragged int64
		target  int64
		want    []int64
		changed bool
	}{
		{name: "forward", dragged: B, target: D, want: []int64{A, C, D, B}, changed: true},
		{name: "backward", dragged: D, target: A, want: []int64{D, A, B, C}, changed: true},
		{name: "adjacent", dragged: A, target: B, want: []int64{B, A, C, D}, changed: true},
		{name: "missing dragged", dragged: 99, target: A, want: []int64{A, B, C, D}},
		{name: "missing target", dragged: A, target: 99, want: []int64{A, B, C, D}},
		{name: "self", dragged: C, target: C, want: []int64{A, B, C, D}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := elements(A, B, C, D)
			got, changed := reorder.Reorder(input, tt.dragged, tt.target)
			if changed != tt.changed {
				t.Fatalf("changed = %v, want %v", changed, tt.changed)
			}
			if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
				t.Fatalf("order mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]int64{A, B, C, D}, ids(input)); diff != "" {
				t.Fatalf("input mutated (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMove_WritesThroughStore(t *testing.T) {
	s := store.New()
	group, _ := s.AddGroup("g", "")
	for _, element := range elements(1, 2, 3, 4) {
		s.AddElementToGroup(group.ID, element)
	}
	s.SelectGroup(group.ID)

	var last *model.FieldGroup
	s.SubscribeSelected(func(g *model.FieldGroup) { last = g })

	if !reorder.Move(s, group.ID, 2, 4) {
		t.Fatalf("move failed")
	}
	if diff := cmp.Diff([]int64{1, 3, 4, 2}, ids(last.Elements)); diff != "" {
		t.Fatalf("selected stream mismatch (-want +got):\n%s", diff)
	}
	if reorder.Move(s, group.ID, 2, 42) {
		t.Fatalf("move with unknown target must be a no-op")
	}
	if reorder.Move(s, 42, 1, 2) {
		t.Fatalf("move in unknown group must be a no-op")
	}
}

func TestDragSession(t *testing.T) {
	s := store.New()
	group, _ := s.AddGroup("g", "")
	for _, element := range elements(1, 2, 3) {
		s.AddElementToGroup(group.ID, element)
	}
	session := reorder.NewDragSession(s, group.ID)

	if session.Drop(2) {
		t.Fatalf("drop without drag must be a no-op")
	}

	session.Start(3)
	if session.Over(3) {
		t.Fatalf("hovering the dragged element must not allow a drop")
	}
	session.Enter(1)
	if !session.Over(1) {
		t.Fatalf("expected drop allowed over another element")
	}
	if !session.Drop(1) {
		t.Fatalf("drop failed")
	}
	if _, dragging := session.Dragging(); dragging {
		t.Fatalf("session must reset after drop")
	}

	got, _ := s.Group(group.ID)
	if diff := cmp.Diff([]int64{3, 1, 2}, ids(got.Elements)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}

	session.Start(1)
	if session.Drop(1) {
		t.Fatalf("drop onto itself must be a no-op")
	}
	session.Start(2)
	session.Cancel()
	if session.Drop(3) {
		t.Fatalf("drop after cancel must be a no-op")
	}
}

func TestDragSession_DropOnHovered(t *testing.T) {
	s := store.New()
	group, _ := s.AddGroup("g", "")
	for _, element := range elements(1, 2, 3) {
		s.AddElementToGroup(group.ID, element)
	}
	session := reorder.NewDragSession(s, group.ID)

	session.Enter(2)
	if _, hovering := session.Hovered(); hovering {
		t.Fatalf("enter without drag must not record a hover")
	}

	session.Start(1)
	if session.Drop(0) {
		t.Fatalf("drop without target or hover must be a no-op")
	}

	session.Start(1)
	session.Enter(2)
	session.Enter(3)
	if over, ok := session.Hovered(); !ok || over != 3 {
		t.Fatalf("hovered = %d, %v", over, ok)
	}
	if !session.Drop(0) {
		t.Fatalf("drop on hovered element failed")
	}
	if _, hovering := session.Hovered(); hovering {
		t.Fatalf("hover must reset after drop")
	}

	got, _ := s.Group(group.ID)
	if diff := cmp.Diff([]int64{2, 3, 1}, ids(got.Elements)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}
