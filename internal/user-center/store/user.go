package store

import (
	"context"

	"github.com/kart-io/sentinel-iam/internal/model"
	"github.com/kart-io/sentinel-iam/pkg/errors"
	"github.com/kart-io/sentinel-iam/pkg/store"
)

// UserStore defines the user storage interface.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uint64) error
	Get(ctx context.Context, id uint64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, whr *store.Options) (int64, []*model.User, error)
}

type users struct {
	ds *datastore
}

func newUsers(ds *datastore) *users {
	return &users{ds}
}

// Create creates a new user.
func (u *users) Create(ctx context.Context, user *model.User) error {
	err := u.ds.DB(ctx).Create(user).Error
	return translate(err, nil, errors.ErrUserAlreadyExists)
}

// Update saves every column of user.
func (u *users) Update(ctx context.Context, user *model.User) error {
	result := u.ds.DB(ctx).Save(user)
	if result.Error != nil {
		return translate(result.Error, nil, errors.ErrUserAlreadyExists)
	}
	return nil
}

// Delete soft-deletes a user.
func (u *users) Delete(ctx context.Context, id uint64) error {
	result := u.ds.DB(ctx).Delete(&model.User{}, id)
	if result.Error != nil {
		return errors.ErrDatabase.WithCause(result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}

// Get retrieves a user by id.
func (u *users) Get(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	if err := u.ds.DB(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err, errors.ErrUserNotFound, nil)
	}
	return &user, nil
}

// GetByEmail retrieves a user by email.
func (u *users) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := u.ds.DB(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err, errors.ErrUserNotFound, nil)
	}
	return &user, nil
}

// List lists users ordered by id.
func (u *users) List(ctx context.Context, whr *store.Options) (int64, []*model.User, error) {
	var count int64
	if err := whr.Count(u.ds.DB(ctx).Model(&model.User{})).Count(&count).Error; err != nil {
		return 0, nil, errors.ErrDatabase.WithCause(err)
	}

	var list []*model.User
	if err := whr.Where(u.ds.DB(ctx).Order("id")).Find(&list).Error; err != nil {
		return 0, nil, errors.ErrDatabase.WithCause(err)
	}
	return count, list, nil
}
