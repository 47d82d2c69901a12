package user

import (
	"context"

	"gorm.io/gorm"

	"github.com/davidmz/freefeed-server-1/internal/common"
	"github.com/davidmz/freefeed-server-1/internal/dbmysql"
	"github.com/davidmz/freefeed-server-1/internal/timeline"
)

// UserService provisions accounts and their named feeds. Feed
// provisioning happens here, at signup, never lazily on first access.
type UserService struct {
	db        *gorm.DB
	users     UserRepository
	timelines timeline.Repository
}

func NewUserService(db *gorm.DB, users UserRepository, timelines timeline.Repository) *UserService {
	return &UserService{db: db, users: users, timelines: timelines}
}

func (s *UserService) inTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.db == nil {
		return fn(nil)
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// Register creates a user together with its seven named feeds and its
// stats row, atomically.
func (s *UserService) Register(ctx context.Context, username, screenName, privacy string) (*dbmysql.User, error) {
	if err := common.ValidateUsername(username); err != nil {
		return nil, err
	}
	switch privacy {
	case "", "public":
		privacy = "public"
	case "protected", "private":
	default:
		return nil, common.NewValidationError("unknown privacy setting")
	}

	u := &dbmysql.User{
		Username:   username,
		ScreenName: screenName,
		Type:       "user",
		Privacy:    privacy,
		Active:     true,
	}
	err := s.inTransaction(ctx, func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		timelines := s.timelines.WithTx(tx)

		if err := users.CreateUser(ctx, u); err != nil {
			return err
		}
		if _, err := timelines.ProvisionFeeds(ctx, u.UserID); err != nil {
			return err
		}
		if tx != nil {
			if err := tx.WithContext(ctx).Create(&dbmysql.UserStat{UserID: u.UserID}).Error; err != nil {
				return common.NewTransientStoreError("create stats row", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateGroup registers a group account administered by creatorID.
func (s *UserService) CreateGroup(ctx context.Context, creatorID int64, username, screenName, privacy string) (*dbmysql.User, error) {
	if err := common.ValidateUsername(username); err != nil {
		return nil, err
	}
	if privacy == "" {
		privacy = "public"
	}

	g := &dbmysql.User{
		Username:   username,
		ScreenName: screenName,
		Type:       "group",
		Privacy:    privacy,
		Active:     true,
	}
	err := s.inTransaction(ctx, func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		timelines := s.timelines.WithTx(tx)

		if err := users.CreateUser(ctx, g); err != nil {
			return err
		}
		if _, err := timelines.ProvisionFeeds(ctx, g.UserID); err != nil {
			return err
		}
		return users.AddGroupAdmin(ctx, &dbmysql.GroupAdmin{GroupID: g.UserID, UserID: creatorID})
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// UpdatePreferences changes the privacy flag and the hidden-comment
// type list a user carries into every feed read.
func (s *UserService) UpdatePreferences(ctx context.Context, userID int64, privacy string, hiddenCommentTypes []int16) (*dbmysql.User, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	switch privacy {
	case "":
	case "public", "protected", "private":
		u.Privacy = privacy
	default:
		return nil, common.NewValidationError("unknown privacy setting")
	}
	if hiddenCommentTypes != nil {
		u.HiddenCommentTypes = hiddenCommentTypes
	}
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
