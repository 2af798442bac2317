package deletion

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/store_ratings/internal/logging"
	"github.com/Skotchmaster/store_ratings/internal/models"
)

// Coordinator deletes a user or a store together with every row that would
// otherwise dangle, as one all-or-nothing transaction, and reports exact
// counts of what was removed at each step. The counts are the reason the
// cascade lives here instead of in ON DELETE CASCADE rules.
type Coordinator struct {
	DB *gorm.DB
}

type DeletedUser struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type UserSummary struct {
	RatingsAuthoredDeleted      int64 `json:"ratingsAuthoredDeleted"`
	StoresDeleted               int64 `json:"storesDeleted"`
	RatingsOnOwnedStoresDeleted int64 `json:"ratingsOnOwnedStoresDeleted"`
}

type DeletedStore struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type StoreSummary struct {
	RatingsDeleted int64 `json:"ratingsDeleted"`
}

// DeleteUser removes the target user, every rating the target authored and,
// for store owners, every owned store with its ratings. actorID is the
// already-authorized admin performing the call; the only check repeated here
// is the self-deletion guard.
//
// Ratings go first so the parent rows can be deleted without tripping
// foreign keys, and so the counts are taken before the parents vanish.
func (co *Coordinator) DeleteUser(ctx context.Context, actorID, targetID uint) (*DeletedUser, *UserSummary, error) {
	if targetID == 0 {
		return nil, nil, ErrInvalidArgument
	}

	l := logging.FromContext(ctx).With("svc", "deletion.delete_user", "target_id", targetID)

	var deleted DeletedUser
	var summary UserSummary

	err := co.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if user.ID == actorID {
			return ErrSelfDeletion
		}

		res := tx.Where("user_id = ?", targetID).Delete(&models.Rating{})
		if res.Error != nil {
			return res.Error
		}
		summary.RatingsAuthoredDeleted = res.RowsAffected

		if user.Role == models.RoleStoreOwner {
			var storeIDs []uint
			if err := tx.Model(&models.Store{}).Where("owner_id = ?", targetID).Pluck("id", &storeIDs).Error; err != nil {
				return err
			}

			if len(storeIDs) > 0 {
				res = tx.Where("store_id IN ?", storeIDs).Delete(&models.Rating{})
				if res.Error != nil {
					return res.Error
				}
				summary.RatingsOnOwnedStoresDeleted = res.RowsAffected

				res = tx.Where("owner_id = ?", targetID).Delete(&models.Store{})
				if res.Error != nil {
					return res.Error
				}
				summary.StoresDeleted = res.RowsAffected
			}
		}

		res = tx.Delete(&models.User{}, targetID)
		if res.Error != nil {
			return res.Error
		}
		// A concurrent delete can win between the read above and here.
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		deleted = DeletedUser{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role}
		return nil
	})
	if err != nil {
		return nil, nil, classify(err)
	}

	l.Info("user deleted",
		"ratings_authored_deleted", summary.RatingsAuthoredDeleted,
		"stores_deleted", summary.StoresDeleted,
		"ratings_on_owned_stores_deleted", summary.RatingsOnOwnedStoresDeleted,
	)
	return &deleted, &summary, nil
}

// DeleteStore removes the target store and every rating referencing it.
func (co *Coordinator) DeleteStore(ctx context.Context, actorID, targetID uint) (*DeletedStore, *StoreSummary, error) {
	if targetID == 0 {
		return nil, nil, ErrInvalidArgument
	}

	l := logging.FromContext(ctx).With("svc", "deletion.delete_store", "target_id", targetID)

	var deleted DeletedStore
	var summary StoreSummary

	err := co.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var store models.Store
		if err := tx.First(&store, targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		res := tx.Where("store_id = ?", targetID).Delete(&models.Rating{})
		if res.Error != nil {
			return res.Error
		}
		summary.RatingsDeleted = res.RowsAffected

		res = tx.Delete(&models.Store{}, targetID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		deleted = DeletedStore{ID: store.ID, Name: store.Name, Email: store.Email}
		return nil
	})
	if err != nil {
		return nil, nil, classify(err)
	}

	l.Info("store deleted", "ratings_deleted", summary.RatingsDeleted)
	return &deleted, &summary, nil
}
