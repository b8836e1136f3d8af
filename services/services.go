package services

import (
	"gorm.io/gorm"

	"github.com/freemirror/yatube/storage"
)

// Services bundles every service over one database and file store.
type Services struct {
	Listing *Listing
	Posts   *PostService
	Follows *FollowService
	Groups  *GroupService
	Users   *UserService
	Deleter *Deleter
}

// New wires the services. files may be nil when uploads are disabled.
func New(db *gorm.DB, files storage.Storage) *Services {
	listing := NewListing(db)
	deleter := NewDeleter(db, files)
	return &Services{
		Listing: listing,
		Posts:   NewPostService(db, files, deleter),
		Follows: NewFollowService(db, listing),
		Groups:  NewGroupService(db, deleter),
		Users:   NewUserService(db, deleter),
		Deleter: deleter,
	}
}
