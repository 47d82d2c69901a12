package media

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/davidmz/freefeed-server-1/internal/common"
	"github.com/davidmz/freefeed-server-1/internal/content"
	"github.com/davidmz/freefeed-server-1/internal/dbmongo"
	"github.com/davidmz/freefeed-server-1/internal/dbmysql"
)

// Service handles attachment blobs. Metadata rows live in MySQL; the
// bytes go to GridFS. Files are uploaded unattached and linked to a
// post when the post is created.
type Service struct {
	storage *dbmongo.AttachmentStorage
	content content.Repository
}

func NewService(mongoClient *dbmongo.MongoClient, contentRepo content.Repository) *Service {
	return &Service{
		storage: dbmongo.NewAttachmentStorage(mongoClient),
		content: contentRepo,
	}
}

// Upload stores the blob and records the metadata row.
func (s *Service) Upload(ctx context.Context, userID int64, filename, mediaType string, r io.Reader) (*dbmysql.Attachment, error) {
	if filename == "" {
		return nil, common.NewValidationError("file name must be specified")
	}
	if mediaType == "" {
		mediaType = contentTypeFor(filename)
	}

	stored, err := s.storage.UploadFile(ctx, filename, mediaType, userID, r)
	if err != nil {
		return nil, common.NewTransientStoreError("upload attachment", err)
	}

	att := &dbmysql.Attachment{
		UserID:    userID,
		FileName:  stored.Filename,
		FileSize:  stored.Size,
		MediaType: stored.MediaType,
		FilePath:  stored.ID,
	}
	if err := s.content.CreateAttachment(ctx, att); err != nil {
		if delErr := s.storage.DeleteFile(ctx, stored.ID); delErr != nil {
			log.Printf("orphaned attachment blob %s: %v", stored.ID, delErr)
		}
		return nil, err
	}
	return att, nil
}

// Open returns the metadata row and a reader over the blob.
func (s *Service) Open(ctx context.Context, attachmentID int64) (*dbmysql.Attachment, io.Reader, error) {
	att, err := s.content.GetAttachmentByID(ctx, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	reader, _, err := s.storage.DownloadFile(ctx, att.FilePath)
	if err != nil {
		return nil, nil, common.NewNotFoundError("attachment file not found")
	}
	return att, reader, nil
}

// DeleteBlobs removes the stored bytes for detached attachments.
// Best effort: the metadata rows are already gone, a leaked blob only
// costs storage.
func (s *Service) DeleteBlobs(ctx context.Context, attachments []dbmysql.Attachment) {
	for _, att := range attachments {
		if err := s.storage.DeleteFile(ctx, att.FilePath); err != nil {
			log.Printf("delete attachment blob %s: %v", att.FilePath, err)
		}
	}
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}
