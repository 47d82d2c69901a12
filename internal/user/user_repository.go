package user

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/davidmz/freefeed-server-1/internal/common"
	"github.com/davidmz/freefeed-server-1/internal/dbmysql"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *dbmysql.User) error
	GetUserByID(ctx context.Context, userID int64) (*dbmysql.User, error)
	GetUserByUsername(ctx context.Context, username string) (*dbmysql.User, error)
	GetUsersByIDs(ctx context.Context, userIDs []int64) ([]dbmysql.User, error)
	UpdateUser(ctx context.Context, user *dbmysql.User) error
	CheckUserExists(ctx context.Context, username string) (bool, error)

	AddGroupAdmin(ctx context.Context, admin *dbmysql.GroupAdmin) error
	ListGroupAdmins(ctx context.Context, groupIDs []int64) ([]dbmysql.GroupAdmin, error)

	WithTx(tx *gorm.DB) UserRepository
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userRepository{db: tx}
}

func (r *userRepository) CreateUser(ctx context.Context, user *dbmysql.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return common.NewConflictError("username is already taken")
		}
		return common.NewTransientStoreError("create user", err)
	}
	return nil
}

func (r *userRepository) GetUserByID(ctx context.Context, userID int64) (*dbmysql.User, error) {
	var user dbmysql.User
	err := r.db.WithContext(ctx).Where("user_id = ? AND active = ?", userID, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NewNotFoundError("user not found")
	}
	if err != nil {
		return nil, common.NewTransientStoreError("get user", err)
	}

	return &user, nil
}

func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*dbmysql.User, error) {
	var user dbmysql.User
	err := r.db.WithContext(ctx).Where("username = ? AND active = ?", username, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NewNotFoundError("user not found")
	}
	if err != nil {
		return nil, common.NewTransientStoreError("get user", err)
	}

	return &user, nil
}

// GetUsersByIDs resolves the whole referenced-user set of a feed page
// in one query.
func (r *userRepository) GetUsersByIDs(ctx context.Context, userIDs []int64) ([]dbmysql.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var users []dbmysql.User
	err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&users).Error
	if err != nil {
		return nil, common.NewTransientStoreError("batch user lookup", err)
	}
	return users, nil
}

func (r *userRepository) UpdateUser(ctx context.Context, user *dbmysql.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return common.NewTransientStoreError("update user", err)
	}
	return nil
}

func (r *userRepository) CheckUserExists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&dbmysql.User{}).Where("username = ?", username).Count(&count).Error
	if err != nil {
		return false, common.NewTransientStoreError("user exists check", err)
	}
	return count > 0, nil
}

func (r *userRepository) AddGroupAdmin(ctx context.Context, admin *dbmysql.GroupAdmin) error {
	if err := r.db.WithContext(ctx).Create(admin).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return common.NewConflictError("user already administers this group")
		}
		return common.NewTransientStoreError("add group admin", err)
	}
	return nil
}

func (r *userRepository) ListGroupAdmins(ctx context.Context, groupIDs []int64) ([]dbmysql.GroupAdmin, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	var admins []dbmysql.GroupAdmin
	err := r.db.WithContext(ctx).Where("group_id IN ?", groupIDs).Find(&admins).Error
	if err != nil {
		return nil, common.NewTransientStoreError("list group admins", err)
	}
	return admins, nil
}
