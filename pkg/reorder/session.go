package reorder

import "sync"

// DragSession holds the transient "currently dragged" element id that drives
// a drag gesture inside one group. It is the only state the protocol keeps.
type DragSession struct {
	mu      sync.Mutex
	store   GroupUpdater
	groupID int64
	dragged *int64
	over    *int64
}

// NewDragSession binds a session to a group.
func NewDragSession(store GroupUpdater, groupID int64) *DragSession {
	return &DragSession{store: store, groupID: groupID}
}

// Start records the element being dragged.
func (d *DragSession) Start(elementID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := elementID
	d.dragged = &id
	d.over = nil
}

// Enter records the element currently hovered.
func (d *DragSession) Enter(elementID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dragged == nil {
		return
	}
	id := elementID
	d.over = &id
}

// Over reports whether a drop on elementID would move anything.
func (d *DragSession) Over(elementID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dragged != nil && *d.dragged != elementID
}

// Hovered returns the element last entered during the current drag.
func (d *DragSession) Hovered() (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.over == nil {
		return 0, false
	}
	return *d.over, true
}

// Dragging returns the dragged id, if a drag is in progress.
func (d *DragSession) Dragging() (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dragged == nil {
		return 0, false
	}
	return *d.dragged, true
}

// Drop finishes the gesture on targetID and writes the new order through the
// store. A zero targetID drops on the hovered element. Dropping without a
// drag in progress, without a target or onto the dragged element itself is a
// no-op. The session is reset either way.
func (d *DragSession) Drop(targetID int64) bool {
	d.mu.Lock()
	dragged := d.dragged
	if targetID == 0 && d.over != nil {
		targetID = *d.over
	}
	d.dragged = nil
	d.over = nil
	d.mu.Unlock()

	if dragged == nil || targetID == 0 || *dragged == targetID {
		return false
	}
	return Move(d.store, d.groupID, *dragged, targetID)
}

// Cancel abandons the gesture.
func (d *DragSession) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dragged = nil
	d.over = nil
}
