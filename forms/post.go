package forms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/freemirror/yatube/models"
	"github.com/freemirror/yatube/storage"
)

const (
	MsgPostTextRequired = "the post text field must be filled in"
	MsgInvalidGroup     = "select a valid group"
	MsgInvalidImage     = "upload a valid image"
	MsgImageTooLarge    = "the image is too large"
)

// Upload is a validated image ready to be stored.
type Upload struct {
	Name        string
	Data        []byte
	ContentType string
}

// PostForm is the create/edit post field set. Group and Image are optional.
type PostForm struct {
	Text  string                `form:"text" json:"text"`
	Group FlexID                `form:"group" json:"group"`
	Image *multipart.FileHeader `form:"image" json:"-"`

	groupID *uint
	upload  *Upload
}

// NewPostFormFrom prefills a form with an existing post, as shown on the edit page.
func NewPostFormFrom(p models.Post) PostForm {
	f := PostForm{Text: p.Text}
	if p.GroupID != nil {
		f.Group = FlexID(strconv.FormatUint(uint64(*p.GroupID), 10))
	}
	return f
}

// Validate cleans the submitted fields. It returns *ValidationError for bad input and
// a plain error only when the group lookup itself fails.
func (f *PostForm) Validate(ctx context.Context, db *gorm.DB, maxImageBytes int64) error {
	verr := &ValidationError{}

	f.Text = strings.TrimSpace(f.Text)
	if f.Text == "" {
		verr.Add("text", MsgPostTextRequired)
	}

	f.groupID = nil
	if raw := strings.TrimSpace(string(f.Group)); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			verr.Add("group", MsgInvalidGroup)
		} else {
			var count int64
			if err := db.WithContext(ctx).Model(&models.Group{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return fmt.Errorf("look up group: %w", err)
			}
			if count == 0 {
				verr.Add("group", MsgInvalidGroup)
			} else {
				gid := uint(id)
				f.groupID = &gid
			}
		}
	}

	f.upload = nil
	if f.Image != nil {
		up, msg, err := readImage(f.Image, maxImageBytes)
		if err != nil {
			return err
		}
		if msg != "" {
			verr.Add("image", msg)
		} else {
			f.upload = up
		}
	}

	return verr.OrNil()
}

// GroupID is the selected group after Validate, or nil.
func (f *PostForm) GroupID() *uint {
	return f.groupID
}

// Upload is the validated image after Validate, or nil when none was sent.
func (f *PostForm) Upload() *Upload {
	return f.upload
}

func readImage(fh *multipart.FileHeader, maxBytes int64) (*Upload, string, error) {
	if maxBytes > 0 && fh.Size > maxBytes {
		return nil, MsgImageTooLarge, nil
	}
	file, err := fh.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	var r io.Reader = file
	if maxBytes > 0 {
		r = io.LimitReader(file, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, MsgImageTooLarge, nil
	}
	contentType, err := storage.DetectImage(data)
	if errors.Is(err, storage.ErrNotImage) {
		return nil, MsgInvalidImage, nil
	}

	name := path.Base(strings.ReplaceAll(fh.Filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "image"
	}
	return &Upload{
		Name:        models.ImagePrefix + name,
		Data:        data,
		ContentType: contentType,
	}, "", nil
}
