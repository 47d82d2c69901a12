package dbmongo

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AttachmentStorage stores attachment blobs in GridFS. The relational
// attachments table keeps the metadata and the object id hex.
type AttachmentStorage struct {
	gridFS *gridfs.Bucket
}

func NewAttachmentStorage(mongoClient *MongoClient) *AttachmentStorage {
	return &AttachmentStorage{
		gridFS: mongoClient.GridFS,
	}
}

type StoredFile struct {
	ID         string    `json:"id"`          // GridFS ObjectID hex
	Filename   string    `json:"filename"`    // Original filename
	Size       int64     `json:"size"`        // File size in bytes
	MediaType  string    `json:"media_type"`  // MIME type
	UploadedBy int64     `json:"uploaded_by"` // User ID who uploaded
	UploadedAt time.Time `json:"uploaded_at"` // Upload timestamp
}

func (s *AttachmentStorage) UploadFile(ctx context.Context, filename, mediaType string, uploaderID int64, content io.Reader) (*StoredFile, error) {
	metadata := bson.M{
		"media_type":  mediaType,
		"uploaded_by": uploaderID,
		"uploaded_at": time.Now(),
	}

	opts := options.GridFSUpload().SetMetadata(metadata)
	stream, err := s.gridFS.OpenUploadStream(filename, opts)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	defer stream.Close()

	size, err := io.Copy(stream, content)
	if err != nil {
		return nil, fmt.Errorf("file copy failed: %w", err)
	}

	return &StoredFile{
		ID:         stream.FileID.(primitive.ObjectID).Hex(),
		Filename:   filename,
		Size:       size,
		MediaType:  mediaType,
		UploadedBy: uploaderID,
		UploadedAt: time.Now(),
	}, nil
}

func (s *AttachmentStorage) DownloadFile(ctx context.Context, fileID string) (io.Reader, *StoredFile, error) {
	objectID, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid file ID: %w", err)
	}

	stream, err := s.gridFS.OpenDownloadStream(objectID)
	if err != nil {
		return nil, nil, fmt.Errorf("download failed: %w", err)
	}

	fileInfo := stream.GetFile()
	var metadata bson.M
	if fileInfo.Metadata != nil {
		bson.Unmarshal(fileInfo.Metadata, &metadata)
	}

	stored := &StoredFile{
		ID:        fileID,
		Filename:  fileInfo.Name,
		Size:      fileInfo.Length,
		MediaType: getStringFromMap(metadata, "media_type"),
	}

	return stream, stored, nil
}

func (s *AttachmentStorage) DeleteFile(ctx context.Context, fileID string) error {
	objectID, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return fmt.Errorf("invalid file ID: %w", err)
	}
	return s.gridFS.Delete(objectID)
}

func getStringFromMap(m bson.M, key string) string {
	if m == nil {
		return ""
	}
	if val, ok := m[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
