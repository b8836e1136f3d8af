package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/freemirror/yatube/models"
	"github.com/freemirror/yatube/storage"
	"github.com/freemirror/yatube/utils"
)

// OnDelete is what happens to child rows when their parent is deleted.
type OnDelete int

const (
	Cascade OnDelete = iota
	SetNull
)

func (o OnDelete) String() string {
	if o == SetNull {
		return "SET NULL"
	}
	return "CASCADE"
}

// Edge is a parent/child relation: Child.Column references Parent.id.
type Edge struct {
	Parent string
	Child  string
	Column string
	Rule   OnDelete
}

// Ownership is every reference between tables. Deleter follows it instead of database constraints.
var Ownership = []Edge{
	{Parent: "users", Child: "posts", Column: "author_id", Rule: Cascade},
	{Parent: "users", Child: "comments", Column: "author_id", Rule: Cascade},
	{Parent: "users", Child: "follows", Column: "user_id", Rule: Cascade},
	{Parent: "users", Child: "follows", Column: "author_id", Rule: Cascade},
	{Parent: "posts", Child: "comments", Column: "post_id", Rule: Cascade},
	{Parent: "groups", Child: "posts", Column: "group_id", Rule: SetNull},
}

var tableModels = map[string]func() interface{}{
	"users":    func() interface{} { return &models.User{} },
	"groups":   func() interface{} { return &models.Group{} },
	"posts":    func() interface{} { return &models.Post{} },
	"comments": func() interface{} { return &models.Comment{} },
	"follows":  func() interface{} { return &models.Follow{} },
}

// Deleter removes rows together with everything Ownership says depends on them.
type Deleter struct {
	db    *gorm.DB
	files storage.Storage
	edges []Edge
}

// NewDeleter uses Ownership. files may be nil when no images need removing.
func NewDeleter(db *gorm.DB, files storage.Storage) *Deleter {
	return &Deleter{db: db, files: files, edges: Ownership}
}

// Delete removes rows of table with the given ids and applies every edge in one transaction.
// Images of deleted posts are removed from storage after commit.
func (d *Deleter) Delete(ctx context.Context, table string, ids ...uint) error {
	if _, ok := tableModels[table]; !ok {
		return fmt.Errorf("delete from unknown table %q", table)
	}
	if len(ids) == 0 {
		return nil
	}

	var images []string
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return d.deleteRows(tx, table, ids, &images)
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}

	if d.files != nil {
		for _, name := range utils.Unique(images) {
			if err := d.files.Delete(ctx, name); err != nil {
				utils.Sugar.Warnf("failed to remove image %s: %v", name, err)
			}
		}
	}
	return nil
}

func (d *Deleter) deleteRows(tx *gorm.DB, table string, ids []uint, images *[]string) error {
	if len(ids) == 0 {
		return nil
	}

	for _, e := range d.edges {
		if e.Parent != table {
			continue
		}
		child := tableModels[e.Child]
		switch e.Rule {
		case Cascade:
			var childIDs []uint
			if err := tx.Model(child()).Where(e.Column+" IN ?", ids).Pluck("id", &childIDs).Error; err != nil {
				return fmt.Errorf("collect %s.%s: %w", e.Child, e.Column, err)
			}
			if err := d.deleteRows(tx, e.Child, childIDs, images); err != nil {
				return err
			}
		case SetNull:
			if err := tx.Model(child()).Where(e.Column+" IN ?", ids).Update(e.Column, nil).Error; err != nil {
				return fmt.Errorf("clear %s.%s: %w", e.Child, e.Column, err)
			}
		}
	}

	if table == "posts" {
		var names []string
		if err := tx.Model(&models.Post{}).Where("id IN ? AND image <> ''", ids).Pluck("image", &names).Error; err != nil {
			return fmt.Errorf("collect images: %w", err)
		}
		*images = append(*images, names...)
	}

	if err := tx.Where("id IN ?", ids).Delete(tableModels[table]()).Error; err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}
