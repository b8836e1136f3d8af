package middleware

import "github.com/gin-gonic/gin"

// Access is the caller's relation to a resource.
type Access int

const (
	Anonymous Access = iota
	NonOwner
	Owner
)

func (a Access) String() string {
	switch a {
	case Owner:
		return "owner"
	case NonOwner:
		return "non-owner"
	default:
		return "anonymous"
	}
}

// CanWrite reports whether the caller may create content at all.
func (a Access) CanWrite() bool {
	return a != Anonymous
}

// CanModify reports whether the caller may edit or delete the resource.
func (a Access) CanModify() bool {
	return a == Owner
}

// AccessFor classifies the caller against the resource owner.
func AccessFor(ctx *gin.Context, ownerID uint) Access {
	uid, ok := CurrentUserID(ctx)
	if !ok {
		return Anonymous
	}
	if uid == ownerID {
		return Owner
	}
	return NonOwner
}
