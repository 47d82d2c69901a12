package content

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/davidmz/freefeed-server-1/internal/common"
	"github.com/davidmz/freefeed-server-1/internal/dbmysql"
)

// Repository bundles the post, comment, like and attachment stores.
// The fan-out writer and feed reader consume it as a whole.
type Repository interface {
	Posts
	Comments
	Likes
	Attachments

	DeleteCommentsForPost(ctx context.Context, postID int64) error
	DeleteLikesForPost(ctx context.Context, postID int64) error

	WithTx(tx *gorm.DB) Repository
}

type ContentRepository struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) Repository {
	return &ContentRepository{db: db}
}

func (r *ContentRepository) WithTx(tx *gorm.DB) Repository {
	return &ContentRepository{db: tx}
}

// --------- POSTS ---------

type Posts interface {
	CreatePost(ctx context.Context, post *dbmysql.Post) error
	GetPostByID(ctx context.Context, id int64) (*dbmysql.Post, error)
	GetPostForUpdate(ctx context.Context, id int64) (*dbmysql.Post, error)
	GetPostsByIDs(ctx context.Context, ids []int64) ([]dbmysql.Post, error)
	SavePost(ctx context.Context, post *dbmysql.Post) error
	DeletePost(ctx context.Context, id int64) error
}

func (r *ContentRepository) CreatePost(ctx context.Context, post *dbmysql.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return common.NewTransientStoreError("create post", err)
	}
	return nil
}

func (r *ContentRepository) GetPostByID(ctx context.Context, id int64) (*dbmysql.Post, error) {
	var post dbmysql.Post
	err := r.db.WithContext(ctx).First(&post, "post_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NewNotFoundError("post not found")
	}
	if err != nil {
		return nil, common.NewTransientStoreError("get post", err)
	}
	return &post, nil
}

// GetPostForUpdate takes a row lock on the post so that fan-out
// operations on the same post serialize. Fan-outs on different posts
// proceed concurrently.
func (r *ContentRepository) GetPostForUpdate(ctx context.Context, id int64) (*dbmysql.Post, error) {
	var post dbmysql.Post
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&post, "post_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NewNotFoundError("post not found")
	}
	if err != nil {
		return nil, common.NewTransientStoreError("lock post", err)
	}
	return &post, nil
}

func (r *ContentRepository) GetPostsByIDs(ctx context.Context, ids []int64) ([]dbmysql.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var posts []dbmysql.Post
	err := r.db.WithContext(ctx).Where("post_id IN ?", ids).Find(&posts).Error
	if err != nil {
		return nil, common.NewTransientStoreError("batch post lookup", err)
	}
	return posts, nil
}

func (r *ContentRepository) SavePost(ctx context.Context, post *dbmysql.Post) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return common.NewTransientStoreError("save post", err)
	}
	return nil
}

func (r *ContentRepository) DeletePost(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Delete(&dbmysql.Post{}, "post_id = ?", id).Error; err != nil {
		return common.NewTransientStoreError("delete post", err)
	}
	return nil
}

// --------- COMMENTS ---------

type Comments interface {
	CreateComment(ctx context.Context, comment *dbmysql.Comment) error
	GetCommentByID(ctx context.Context, id int64) (*dbmysql.Comment, error)
	SaveComment(ctx context.Context, comment *dbmysql.Comment) error
	DeleteComment(ctx context.Context, id int64) error
	ListCommentsForPosts(ctx context.Context, postIDs []int64) ([]dbmysql.Comment, error)
	CountUserComments(ctx context.Context, postID, userID int64) (int64, error)
}

func (r *ContentRepository) CreateComment(ctx context.Context, comment *dbmysql.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return common.NewTransientStoreError("create comment", err)
	}
	return nil
}

func (r *ContentRepository) GetCommentByID(ctx context.Context, id int64) (*dbmysql.Comment, error) {
	var comment dbmysql.Comment
	err := r.db.WithContext(ctx).First(&comment, "comment_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NewNotFoundError("comment not found")
	}
	if err != nil {
		return nil, common.NewTransientStoreError("get comment", err)
	}
	return &comment, nil
}

func (r *ContentRepository) SaveComment(ctx context.Context, comment *dbmysql.Comment) error {
	if err := r.db.WithContext(ctx).Save(comment).Error; err != nil {
		return common.NewTransientStoreError("save comment", err)
	}
	return nil
}

func (r *ContentRepository) DeleteComment(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Delete(&dbmysql.Comment{}, "comment_id = ?", id).Error; err != nil {
		return common.NewTransientStoreError("delete comment", err)
	}
	return nil
}

// ListCommentsForPosts returns comments for a page of posts, ordered
// the way they appear under each post.
func (r *ContentRepository) ListCommentsForPosts(ctx context.Context, postIDs []int64) ([]dbmysql.Comment, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var comments []dbmysql.Comment
	err := r.db.WithContext(ctx).
		Where("post_id IN ?", postIDs).
		Order("created_at ASC, comment_id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, common.NewTransientStoreError("list comments", err)
	}
	return comments, nil
}

// CountUserComments counts the user's visible comments on a post.
// Used to decide whether deleting one orphans the activity bumps it
// caused.
func (r *ContentRepository) CountUserComments(ctx context.Context, postID, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&dbmysql.Comment{}).
		Where("post_id = ? AND author_id = ? AND hide_type = ?", postID, userID, common.CommentVisible).
		Count(&count).Error
	if err != nil {
		return 0, common.NewTransientStoreError("count comments", err)
	}
	return count, nil
}

// --------- LIKES ---------

type Likes interface {
	CreateLike(ctx context.Context, like *dbmysql.Like) error
	HasLike(ctx context.Context, userID, postID int64) (bool, error)
	DeleteLike(ctx context.Context, userID, postID int64) (bool, error)
	ListLikesForPosts(ctx context.Context, postIDs []int64) ([]dbmysql.Like, error)
}

// CreateLike rejects a duplicate like outright: silently ignoring it
// would double-count stats.
func (r *ContentRepository) CreateLike(ctx context.Context, like *dbmysql.Like) error {
	if err := r.db.WithContext(ctx).Create(like).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return common.NewConflictError("post is already liked")
		}
		return common.NewTransientStoreError("create like", err)
	}
	return nil
}

func (r *ContentRepository) HasLike(ctx context.Context, userID, postID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&dbmysql.Like{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error
	if err != nil {
		return false, common.NewTransientStoreError("like check", err)
	}
	return count > 0, nil
}

func (r *ContentRepository) DeleteLike(ctx context.Context, userID, postID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&dbmysql.Like{})
	if res.Error != nil {
		return false, common.NewTransientStoreError("delete like", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *ContentRepository) ListLikesForPosts(ctx context.Context, postIDs []int64) ([]dbmysql.Like, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var likes []dbmysql.Like
	err := r.db.WithContext(ctx).
		Where("post_id IN ?", postIDs).
		Order("created_at DESC").
		Find(&likes).Error
	if err != nil {
		return nil, common.NewTransientStoreError("list likes", err)
	}
	return likes, nil
}

// --------- ATTACHMENTS ---------

type Attachments interface {
	CreateAttachment(ctx context.Context, att *dbmysql.Attachment) error
	GetAttachmentByID(ctx context.Context, id int64) (*dbmysql.Attachment, error)
	AttachToPost(ctx context.Context, attachmentIDs []int64, userID, postID int64) error
	ListAttachmentsForPosts(ctx context.Context, postIDs []int64) ([]dbmysql.Attachment, error)
	DeleteAttachmentsForPost(ctx context.Context, postID int64) ([]dbmysql.Attachment, error)
}

func (r *ContentRepository) CreateAttachment(ctx context.Context, att *dbmysql.Attachment) error {
	if err := r.db.WithContext(ctx).Create(att).Error; err != nil {
		return common.NewTransientStoreError("create attachment", err)
	}
	return nil
}

func (r *ContentRepository) GetAttachmentByID(ctx context.Context, id int64) (*dbmysql.Attachment, error) {
	var att dbmysql.Attachment
	err := r.db.WithContext(ctx).First(&att, "attachment_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NewNotFoundError("attachment not found")
	}
	if err != nil {
		return nil, common.NewTransientStoreError("get attachment", err)
	}
	return &att, nil
}

// AttachToPost links pre-uploaded attachments to a post. Only the
// uploader's own unattached files are linked; anything else in the id
// list is ignored.
func (r *ContentRepository) AttachToPost(ctx context.Context, attachmentIDs []int64, userID, postID int64) error {
	if len(attachmentIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Model(&dbmysql.Attachment{}).
		Where("attachment_id IN ? AND user_id = ? AND post_id IS NULL", attachmentIDs, userID).
		Update("post_id", postID).Error
	if err != nil {
		return common.NewTransientStoreError("attach to post", err)
	}
	return nil
}

func (r *ContentRepository) ListAttachmentsForPosts(ctx context.Context, postIDs []int64) ([]dbmysql.Attachment, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var atts []dbmysql.Attachment
	err := r.db.WithContext(ctx).Where("post_id IN ?", postIDs).Find(&atts).Error
	if err != nil {
		return nil, common.NewTransientStoreError("list attachments", err)
	}
	return atts, nil
}

func (r *ContentRepository) DeleteAttachmentsForPost(ctx context.Context, postID int64) ([]dbmysql.Attachment, error) {
	var atts []dbmysql.Attachment
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).Find(&atts).Error; err != nil {
		return nil, common.NewTransientStoreError("list attachments", err)
	}
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&dbmysql.Attachment{}).Error; err != nil {
		return nil, common.NewTransientStoreError("delete attachments", err)
	}
	return atts, nil
}

// --------- BULK DELETES (post teardown) ---------

func (r *ContentRepository) DeleteCommentsForPost(ctx context.Context, postID int64) error {
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&dbmysql.Comment{}).Error; err != nil {
		return common.NewTransientStoreError("delete post comments", err)
	}
	return nil
}

func (r *ContentRepository) DeleteLikesForPost(ctx context.Context, postID int64) error {
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&dbmysql.Like{}).Error; err != nil {
		return common.NewTransientStoreError("delete post likes", err)
	}
	return nil
}
