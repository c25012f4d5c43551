// Package workflow drives the inventory request workflow: viewing a request,
// approving, rejecting, fulfilling or deleting it, and submitting new ones.
package workflow

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// RequestsPath is the collection endpoint; single requests live below it.
const RequestsPath = "/inventory/api/requests/"

// RequestsPagePath is the server-rendered request list.
const RequestsPagePath = "/inventory/requests/"

// Request statuses as reported by the backend.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusFulfilled = "fulfilled"
)

// Action is a workflow transition a user can apply to a request.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionFulfill Action = "fulfill"
	ActionDelete  Action = "delete"
)

// ParseAction validates s as an Action.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionApprove, ActionReject, ActionFulfill, ActionDelete:
		return a, nil
	default:
		return "", fmt.Errorf("unknown action %q (want approve, reject, fulfill or delete)", s)
	}
}

// Method is the HTTP method used to apply the action.
func (a Action) Method() string {
	if a == ActionDelete {
		return http.MethodDelete
	}
	return http.MethodPatch
}

// RequiresComment reports whether the user is asked for a comment before
// the action is sent. The comment itself may still be empty.
func (a Action) RequiresComment() bool {
	return a == ActionReject
}

// Confirmation is the question shown before the action is sent.
func (a Action) Confirmation() string {
	switch a {
	case ActionApprove:
		return "Are you sure you want to approve this request?"
	case ActionReject:
		return "Are you sure you want to reject this request?"
	case ActionFulfill:
		return "Are you sure you want to mark this request as fulfilled?"
	case ActionDelete:
		return "Are you sure you want to delete this request? This action cannot be undone."
	default:
		return "Are you sure?"
	}
}

// Label is the button text for the action.
func (a Action) Label() string {
	switch a {
	case ActionApprove:
		return "Approve"
	case ActionReject:
		return "Reject"
	case ActionFulfill:
		return "Mark Fulfilled"
	case ActionDelete:
		return "Delete"
	default:
		return string(a)
	}
}

// HistoryEntry is one step in a request's timeline.
type HistoryEntry struct {
	Action    string `json:"action" yaml:"action"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	User      string `json:"user" yaml:"user"`
	Comment   string `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// Request is an inventory request as returned by the details endpoint.
type Request struct {
	ID            int            `json:"id" yaml:"id"`
	RequesterName string         `json:"requester_name" yaml:"requester_name"`
	Department    string         `json:"department" yaml:"department"`
	ItemName      string         `json:"item_name" yaml:"item_name"`
	Quantity      int            `json:"quantity" yaml:"quantity"`
	Unit          string         `json:"unit" yaml:"unit"`
	CreatedAt     string         `json:"created_at" yaml:"created_at"`
	Status        string         `json:"status" yaml:"status"`
	Priority      string         `json:"priority" yaml:"priority"`
	Reason        string         `json:"reason" yaml:"reason"`
	History       []HistoryEntry `json:"history" yaml:"history"`
	CanApprove    bool           `json:"can_approve" yaml:"can_approve"`
	CanFulfill    bool           `json:"can_fulfill" yaml:"can_fulfill"`
	CanDelete     bool           `json:"can_delete" yaml:"can_delete"`
}

// DepartmentLabel returns the department or "N/A".
func (r Request) DepartmentLabel() string {
	if r.Department == "" {
		return "N/A"
	}
	return r.Department
}

// ReasonLabel returns the reason or a placeholder.
func (r Request) ReasonLabel() string {
	if r.Reason == "" {
		return "No reason provided"
	}
	return r.Reason
}

// QuantityLabel renders quantity with its unit.
func (r Request) QuantityLabel() string {
	return strings.TrimSpace(fmt.Sprintf("%d %s", r.Quantity, r.Unit))
}

// AvailableActions lists the actions the current user may apply to r, in
// display order.
func AvailableActions(r Request) []Action {
	var actions []Action
	status := strings.ToLower(r.Status)
	if status == StatusPending && r.CanApprove {
		actions = append(actions, ActionApprove, ActionReject)
	}
	if status == StatusApproved && r.CanFulfill {
		actions = append(actions, ActionFulfill)
	}
	if r.CanDelete {
		actions = append(actions, ActionDelete)
	}
	return actions
}

// Allows reports whether a is among the available actions for r.
func Allows(r Request, a Action) bool {
	for _, candidate := range AvailableActions(r) {
		if candidate == a {
			return true
		}
	}
	return false
}

// NewRequest is the form submitted to create a request.
type NewRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// Validate returns the message shown to the user when n cannot be submitted.
func (n NewRequest) Validate() error {
	if strings.TrimSpace(n.ItemID) == "" {
		return &ValidationError{Message: "Please select an item"}
	}
	if n.Quantity <= 0 {
		return &ValidationError{Message: "Please enter a valid quantity"}
	}
	return nil
}

// ValidationError is a form error detected before any request is sent.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ListQuery filters the request list page.
type ListQuery struct {
	Status    string
	DateRange string
	Search    string
}

// Values encodes the non-empty filters.
func (q ListQuery) Values() url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.DateRange != "" {
		v.Set("date_range", q.DateRange)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return v
}

// URL returns the filtered request list page under baseURL.
func (q ListQuery) URL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/") + RequestsPagePath
	if enc := q.Values().Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

// SearchReady reports whether a typed search is worth applying: cleared
// entirely or at least two characters long.
func SearchReady(search string) bool {
	n := len([]rune(search))
	return n == 0 || n >= 2
}

func requestPath(id int) string {
	return fmt.Sprintf("%s%d/", RequestsPath, id)
}
