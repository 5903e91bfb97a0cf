package udiscoverypb

import (
	"fmt"

	"google.golang.org/grpc/codes"
)

// Status is carried in every response. Code uses the gRPC numbering.
type Status struct {
	Code    codes.Code `json:"code"`
	Message string     `json:"message,omitempty"`
}

func (s *Status) GetCode() codes.Code {
	if s == nil {
		return codes.OK
	}
	return s.Code
}

func (s *Status) IsOK() bool { return s.GetCode() == codes.OK }

// Err returns nil for an OK status and a *StatusError otherwise.
func (s *Status) Err() error {
	if s.IsOK() {
		return nil
	}
	return &StatusError{Code: s.Code, Message: s.Message}
}

func (s *Status) String() string {
	if s == nil {
		return codes.OK.String()
	}
	if s.Message == "" {
		return s.Code.String()
	}
	return fmt.Sprintf("%s: %s", s.Code, s.Message)
}

// StatusError is a non-OK Status seen as an error.
type StatusError struct {
	Code    codes.Code
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("udiscovery: %s: %s", e.Code, e.Message)
}

type LookupUriRequest struct {
	Uri string `json:"uri"`
}

type LookupUriResponse struct {
	Uris   []string `json:"uris,omitempty"`
	Status *Status  `json:"status"`
}

type FindNodesRequest struct {
	Uri string `json:"uri"`
	// Depth limits how many levels of descendants are returned. Absent or
	// negative means unbounded; zero returns the node alone.
	Depth *int32 `json:"depth,omitempty"`
}

type FindNodesResponse struct {
	Nodes  []*Node `json:"nodes,omitempty"`
	Status *Status `json:"status"`
}

type FindNodePropertiesRequest struct {
	Uri        string   `json:"uri"`
	Properties []string `json:"properties,omitempty"`
}

type FindNodePropertiesResponse struct {
	Properties map[string]PropertyValue `json:"properties,omitempty"`
	Status     *Status                  `json:"status"`
}

type UpdateNodeRequest struct {
	Node *Node `json:"node"`
	// Ttl in milliseconds. Absent or negative clears any expiry.
	Ttl *int32 `json:"ttl,omitempty"`
}

type UpdatePropertyRequest struct {
	Uri      string         `json:"uri"`
	Property string         `json:"property"`
	Value    *PropertyValue `json:"value"`
}

type AddNodesRequest struct {
	ParentUri string  `json:"parentUri"`
	Nodes     []*Node `json:"nodes"`
}

type DeleteNodesRequest struct {
	Uris []string `json:"uris"`
}

type ObserverInfo struct {
	Uri string `json:"uri"`
}

type NotificationsRequest struct {
	Observer *ObserverInfo `json:"observer"`
	Uris     []string      `json:"uris"`
}

func (r *NotificationsRequest) ObserverUri() string {
	if r == nil || r.Observer == nil {
		return ""
	}
	return r.Observer.Uri
}

type WatchNotificationsRequest struct {
	Observer *ObserverInfo `json:"observer"`
}

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionExpire = "expire"
)

// Notification tells an observer that a node at or below a subject it
// registered for has changed.
type Notification struct {
	Id       string    `json:"id"`
	Observer string    `json:"observer"`
	Uri      string    `json:"uri"`
	Parent   string    `json:"parentUri"`
	Action   string    `json:"action"`
	Time     Timestamp `json:"time"`
}
