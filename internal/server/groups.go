package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/reorder"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

type groupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type elementRequest struct {
	Type        model.FieldType `json:"type"`
	Label       string          `json:"label"`
	Required    bool            `json:"required"`
	Placeholder string          `json:"placeholder,omitempty"`
	Options     []string        `json:"options,omitempty"`
}

type moveRequest struct {
	TargetID int64 `json:"targetId"`
}

type dragRequest struct {
	Event     string `json:"event"`
	ElementID int64  `json:"elementId,omitempty"`
}

type dragResponse struct {
	Dragging *int64            `json:"dragging"`
	Hovered  *int64            `json:"hovered"`
	CanDrop  bool              `json:"canDrop,omitempty"`
	Moved    bool              `json:"moved,omitempty"`
	Group    *model.FieldGroup `json:"group,omitempty"`
}

type selectRequest struct {
	GroupID *int64 `json:"groupId"`
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups := s.store.Groups()
	if groups == nil {
		groups = []model.FieldGroup{}
	}
	s.writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleAddGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	group, ok := s.store.AddGroup(req.Name, req.Description)
	if !ok {
		s.writeProblem(w, r, http.StatusUnprocessableEntity, "validation_error", "group name is required", nil)
		return
	}
	s.writeJSON(w, http.StatusCreated, group)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, ok := s.group(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, group)
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseID(w, r, "groupID")
	if !ok {
		return
	}
	var group model.FieldGroup
	if err := decodeJSON(r, &group); err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	if group.ID != 0 && group.ID != id {
		s.badRequest(w, r, fmt.Sprintf("group id %d does not match path id %d", group.ID, id))
		return
	}
	group.ID = id
	group.Name = strings.TrimSpace(group.Name)

	if result := validation.ValidateGroup(group); !result.Valid {
		s.invalidGroup(w, r, result)
		return
	}
	if !s.store.UpdateGroup(group) {
		s.notFound(w, r, fmt.Sprintf("group %d not found", id))
		return
	}
	s.observe(group.Elements...)
	updated, _ := s.store.Group(id)
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseID(w, r, "groupID")
	if !ok {
		return
	}
	if !s.store.DeleteGroup(id) {
		s.notFound(w, r, fmt.Sprintf("group %d not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDuplicateGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseID(w, r, "groupID")
	if !ok {
		return
	}
	copied, ok := s.store.DuplicateGroup(id, s.ids)
	if !ok {
		s.notFound(w, r, fmt.Sprintf("group %d not found", id))
		return
	}
	s.writeJSON(w, http.StatusCreated, copied)
}

// handleAddElement accepts either a palette drag payload ({type,label}) or a
// full element without id. The id comes from the server's id source.
func (s *Server) handleAddElement(w http.ResponseWriter, r *http.Request) {
	groupID, ok := s.parseID(w, r, "groupID")
	if !ok {
		return
	}
	data, err := readBody(r)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	payload, err := model.ParseDragPayload(data)
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	var req elementRequest
	if err := decodeStrict(data, &req); err != nil {
		s.badRequest(w, r, err.Error())
		return
	}

	element := model.NewField(payload, s.ids.Next())
	element.Required = req.Required
	element.Placeholder = req.Placeholder
	if element.Type.IsSelection() {
		element.Options = req.Options
	}

	if !s.store.AddElementToGroup(groupID, element) {
		s.notFound(w, r, fmt.Sprintf("group %d not found", groupID))
		return
	}
	s.writeJSON(w, http.StatusCreated, element)
}

func (s *Server) handleUpdateElement(w http.ResponseWriter, r *http.Request) {
	groupID, ok := s.parseID(w, r, "groupID")
	if !ok {
		return
	}
	elementID, ok := s.parseID(w, r, "elementID")
	if !ok {
		return
	}
	var element model.FieldDefinition
	if err := decodeJSON(r, &element); err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	element.ID = elementID

	group, ok := s.store.Group(groupID)
	if !ok {
		s.notFound(w, r, fmt.Sprintf("group %d not found", groupID))
		return
	}
	idx := group.IndexOf(elementID)
	if idx < 0 {
		s.notFound(w, r, fmt.Sprintf("element %d not found in group %d", elementID, groupID))
		return
	}
	group.Elements[idx] = element
	if result := validation.ValidateGroup(group); !result.Valid {
		s.invalidGroup(w, r, result)
		return
	}

	if !s.store.UpdateElement(groupID, element) {
		s.notFound(w, r, fmt.Sprintf("element %d not found in group %d", elementID, groupID))
		return
	}
	s.writeJSON(w, http.StatusOK, element)
}

func (s *Server) handleDeleteElement(w http.ResponseWriter, r *http.Request) {
	groupID, ok := s.parseID(w, r, "groupID")
	if !ok {
		return
	}
	elementID, ok := s.parseID(w, r, "elementID")
	if !ok {
		return
	}
	if !s.store.DeleteElementFromGroup(groupID, elementID) {
		s.notFound(w, r, fmt.Sprintf("element %d not found in group %d", elementID, groupID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMoveElement(w http.ResponseWriter, r *http.Request) {
	groupID, ok := s.parseID(w, r, "groupID")
	if !ok {
		return
	}
	elementID, ok := s.parseID(w, r, "elementID")
	if !ok {
		return
	}
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	if _, ok := s.store.Group(groupID); !ok {
		s.notFound(w, r, fmt.Sprintf("group %d not found", groupID))
		return
	}

	moved := reorder.Move(s.store, groupID, elementID, req.TargetID)
	group, _ := s.store.Group(groupID)
	s.writeJSON(w, http.StatusOK, map[string]any{"moved": moved, "group": group})
}

// handleDrag drives a pointer drag gesture inside one group. A drop without
// elementId lands on the element last entered.
func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	groupID, ok := s.parseID(w, r, "groupID")
	if !ok {
		return
	}
	var req dragRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	if _, ok := s.store.Group(groupID); !ok {
		s.notFound(w, r, fmt.Sprintf("group %d not found", groupID))
		return
	}

	var res dragResponse
	switch req.Event {
	case "start":
		s.dragSession(groupID, true).Start(req.ElementID)
	case "enter":
		if session := s.dragSession(groupID, false); session != nil {
			session.Enter(req.ElementID)
		}
	case "over":
		if session := s.dragSession(groupID, false); session != nil {
			res.CanDrop = session.Over(req.ElementID)
		}
	case "drop":
		if session := s.endDrag(groupID); session != nil {
			res.Moved = session.Drop(req.ElementID)
		}
		group, _ := s.store.Group(groupID)
		res.Group = &group
	case "cancel":
		if session := s.endDrag(groupID); session != nil {
			session.Cancel()
		}
	default:
		s.badRequest(w, r, fmt.Sprintf("unknown drag event %q", req.Event))
		return
	}

	if session := s.dragSession(groupID, false); session != nil {
		if id, ok := session.Dragging(); ok {
			res.Dragging = &id
		}
		if id, ok := session.Hovered(); ok {
			res.Hovered = &id
		}
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) dragSession(groupID int64, create bool) *reorder.DragSession {
	s.dragMu.Lock()
	defer s.dragMu.Unlock()
	session := s.drags[groupID]
	if session == nil && create {
		if s.drags == nil {
			s.drags = make(map[int64]*reorder.DragSession)
		}
		session = reorder.NewDragSession(s.store, groupID)
		s.drags[groupID] = session
	}
	return session
}

func (s *Server) endDrag(groupID int64) *reorder.DragSession {
	s.dragMu.Lock()
	defer s.dragMu.Unlock()
	session := s.drags[groupID]
	delete(s.drags, groupID)
	return session
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"group": s.store.Selected()})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	if req.GroupID == nil {
		s.store.ClearSelection()
		s.writeJSON(w, http.StatusOK, map[string]any{"group": nil})
		return
	}
	if !s.store.SelectGroup(*req.GroupID) {
		if _, exists := s.store.Group(*req.GroupID); !exists {
			s.notFound(w, r, fmt.Sprintf("group %d not found", *req.GroupID))
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"group": s.store.Selected()})
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	s.store.ClearSelection()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePalette(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, model.Palette())
}

func (s *Server) handleRenderers(w http.ResponseWriter, r *http.Request) {
	registry := s.orch.Registry()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"default":   registry.Default(),
		"renderers": registry.List(),
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, validation.ValidateGroups(s.store.Groups()))
}

func (s *Server) group(w http.ResponseWriter, r *http.Request) (model.FieldGroup, bool) {
	id, ok := s.parseID(w, r, "groupID")
	if !ok {
		return model.FieldGroup{}, false
	}
	group, ok := s.store.Group(id)
	if !ok {
		s.notFound(w, r, fmt.Sprintf("group %d not found", id))
		return model.FieldGroup{}, false
	}
	return group, true
}

func (s *Server) invalidGroup(w http.ResponseWriter, r *http.Request, result validation.SchemaValidationResult) {
	s.writeProblem(w, r, http.StatusUnprocessableEntity, "validation_error", result.Error(), map[string]any{
		"issues": result.Issues,
	})
}

func (s *Server) observe(elements ...model.FieldDefinition) {
	for _, element := range elements {
		s.ids.Observe(element.ID)
	}
}
