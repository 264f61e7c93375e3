// Package policy centralises every role and ownership decision as pure
// functions over already-fetched ownership fields. It has no storage
// dependency: callers pass the ResourceRef projection, never full resources.
//
// Role gating (auth.Guard) and ownership gating (this package) are independent
// layers: admin passes every role gate, and the rules below spell out where
// admin also wins on ownership.
package policy

import "github.com/taskflow/taskflow/internal/auth"

// TaskRef is the ownership projection of a task. A zero AssignedTo means the
// task is unassigned.
type TaskRef struct {
	ID         int64
	AssignedTo int64
	CreatedBy  int64
}

// AttachmentRef is the ownership projection of an attachment.
type AttachmentRef struct {
	ID         int64
	TaskID     int64
	UploadedBy int64
}

// CanReadTask: admin always; otherwise assignee or creator.
func CanReadTask(p auth.Principal, t TaskRef) bool {
	if p.IsAdmin() {
		return true
	}
	return t.AssignedTo == p.ID || t.CreatedBy == p.ID
}

// CanCreateTask: any authenticated principal.
func CanCreateTask(p auth.Principal) bool {
	return p.ID != 0
}

// ResolveAssignee decides the effective assignee for a create or reassign.
// Admin may target any user; everyone else is forced to themselves no matter
// what they asked for.
func ResolveAssignee(p auth.Principal, requested int64) int64 {
	if p.IsAdmin() && requested != 0 {
		return requested
	}
	if p.IsAdmin() {
		return 0
	}
	return p.ID
}

// CanUpdateTask covers both full and status-only updates: admin always;
// otherwise only the assignee. Creators may read but not update.
func CanUpdateTask(p auth.Principal, t TaskRef) bool {
	if p.IsAdmin() {
		return true
	}
	return t.AssignedTo == p.ID
}

// CanReassignTask: only admin may change a task's assignee. A non-admin
// submitting a new assignee on update is ignored, not rejected.
func CanReassignTask(p auth.Principal) bool {
	return p.IsAdmin()
}

// CanDeleteTask: admin only.
func CanDeleteTask(p auth.Principal) bool {
	return p.IsAdmin()
}

// CanAccessAttachments gates reading and uploading attachments by read access
// to the parent task.
func CanAccessAttachments(p auth.Principal, parent TaskRef) bool {
	return CanReadTask(p, parent)
}

// CanDeleteAttachment: admin, the uploader, or a stakeholder of the parent
// task (assignee or creator).
func CanDeleteAttachment(p auth.Principal, a AttachmentRef, parent TaskRef) bool {
	if p.IsAdmin() {
		return true
	}
	return a.UploadedBy == p.ID || parent.AssignedTo == p.ID || parent.CreatedBy == p.ID
}

// CanManageProjects: any authenticated principal. Projects are a shared
// taxonomy, not owned objects.
func CanManageProjects(p auth.Principal) bool {
	return p.ID != 0
}

// CanManageUsers: admin only.
func CanManageUsers(p auth.Principal) bool {
	return p.IsAdmin()
}
