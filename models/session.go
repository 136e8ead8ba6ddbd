package models

// User types carried in the bearer token.
const (
	UserTypeParent = "parent"
	UserTypeChild  = "child"
)

// Session identifies the caller of an operation. It is built from the bearer
// token by the auth middleware and passed explicitly to every service call.
type Session struct {
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
	// ParentID is the caller's own id for parents and the linked parent for
	// children.
	ParentID string `json:"parentId"`
	// Token is the bearer token the API client sends. The backend leaves it empty.
	Token string `json:"-"`
}

func (s Session) IsParent() bool { return s.UserType == UserTypeParent }

func (s Session) IsChild() bool { return s.UserType == UserTypeChild }
