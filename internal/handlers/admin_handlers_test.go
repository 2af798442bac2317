package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/store_ratings/internal/models"
)

func TestAdminDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("Administrator Account Holder", "admin@example.com", models.RoleAdmin)
	owner := env.createUser("Store Owner Account Holder", "owner@example.com", models.RoleStoreOwner)
	rater := env.createUser("Regular Rater Account Holder", "rater@example.com", models.RoleUser)

	s1 := env.createStore("s1", "s1@example.com", &owner.ID)
	env.createStore("s2", "s2@example.com", &owner.ID)
	s3 := env.createStore("s3", "s3@example.com", nil)

	env.createRating(rater.ID, s1.ID, 5)
	env.createRating(admin.ID, s1.ID, 3)
	env.createRating(owner.ID, s3.ID, 4)

	rec, c := env.doJSONRequest(http.MethodDelete, "/api/v1/admin/users/2", nil)
	c.SetParamNames("id")
	c.SetParamValues("2")
	env.as(c, admin)

	require.NoError(t, env.Admin.DeleteUser(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Message     string `json:"message"`
		DeletedUser struct {
			ID    uint   `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"deletedUser"`
		Summary struct {
			RatingsAuthoredDeleted      int64 `json:"ratingsAuthoredDeleted"`
			StoresDeleted               int64 `json:"storesDeleted"`
			RatingsOnOwnedStoresDeleted int64 `json:"ratingsOnOwnedStoresDeleted"`
		} `json:"summary"`
	}
	decodeBody(t, rec, &resp)

	require.Equal(t, "user deleted successfully", resp.Message)
	require.Equal(t, owner.ID, resp.DeletedUser.ID)
	require.Equal(t, models.RoleStoreOwner, resp.DeletedUser.Role)
	require.Equal(t, int64(1), resp.Summary.RatingsAuthoredDeleted)
	require.Equal(t, int64(2), resp.Summary.StoresDeleted)
	require.Equal(t, int64(2), resp.Summary.RatingsOnOwnedStoresDeleted)

	require.Equal(t, int64(2), env.count(&models.User{}))
	require.Equal(t, int64(1), env.count(&models.Store{}))
	require.Equal(t, int64(0), env.count(&models.Rating{}))
}

func TestAdminDeleteUserInvalidID(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("Administrator Account Holder", "admin@example.com", models.RoleAdmin)

	for _, raw := range []string{"abc", "-1", "0"} {
		_, c := env.doJSONRequest(http.MethodDelete, "/api/v1/admin/users/"+raw, nil)
		c.SetParamNames("id")
		c.SetParamValues(raw)
		env.as(c, admin)

		he := httpError(t, env.Admin.DeleteUser(c))
		require.Equal(t, http.StatusBadRequest, he.Code)
	}
}

func TestAdminDeleteUserSelf(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("Administrator Account Holder", "admin@example.com", models.RoleAdmin)

	_, c := env.doJSONRequest(http.MethodDelete, "/api/v1/admin/users/1", nil)
	c.SetParamNames("id")
	c.SetParamValues("1")
	env.as(c, admin)

	he := httpError(t, env.Admin.DeleteUser(c))
	require.Equal(t, http.StatusBadRequest, he.Code)
	require.Equal(t, int64(1), env.count(&models.User{}))
}

func TestAdminDeleteUserNotFound(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("Administrator Account Holder", "admin@example.com", models.RoleAdmin)

	_, c := env.doJSONRequest(http.MethodDelete, "/api/v1/admin/users/999", nil)
	c.SetParamNames("id")
	c.SetParamValues("999")
	env.as(c, admin)

	he := httpError(t, env.Admin.DeleteUser(c))
	require.Equal(t, http.StatusNotFound, he.Code)
}

func TestAdminDeleteStore(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("Administrator Account Holder", "admin@example.com", models.RoleAdmin)
	rater := env.createUser("Regular Rater Account Holder", "rater@example.com", models.RoleUser)

	store := env.createStore("store", "store@example.com", nil)
	env.createRating(rater.ID, store.ID, 5)
	env.createRating(admin.ID, store.ID, 1)

	rec, c := env.doJSONRequest(http.MethodDelete, "/api/v1/admin/stores/1", nil)
	c.SetParamNames("id")
	c.SetParamValues("1")
	env.as(c, admin)

	require.NoError(t, env.Admin.DeleteStore(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Message      string `json:"message"`
		DeletedStore struct {
			ID    uint   `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"deletedStore"`
		Summary struct {
			RatingsDeleted int64 `json:"ratingsDeleted"`
		} `json:"summary"`
	}
	decodeBody(t, rec, &resp)

	require.Equal(t, "store deleted successfully", resp.Message)
	require.Equal(t, store.ID, resp.DeletedStore.ID)
	require.Equal(t, int64(2), resp.Summary.RatingsDeleted)

	require.Equal(t, int64(0), env.count(&models.Store{}))
	require.Equal(t, int64(0), env.count(&models.Rating{}))
}

func TestAdminDeleteStoreWithoutRatings(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("Administrator Account Holder", "admin@example.com", models.RoleAdmin)
	store := env.createStore("store", "store@example.com", nil)

	rec, c := env.doJSONRequest(http.MethodDelete, "/api/v1/admin/stores/1", nil)
	c.SetParamNames("id")
	c.SetParamValues("1")
	env.as(c, admin)

	require.NoError(t, env.Admin.DeleteStore(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Summary struct {
			RatingsDeleted int64 `json:"ratingsDeleted"`
		} `json:"summary"`
	}
	decodeBody(t, rec, &resp)
	require.Equal(t, int64(0), resp.Summary.RatingsDeleted)

	var gone models.Store
	require.Error(t, env.DB.First(&gone, store.ID).Error)
}

func TestAdminDeleteStoreTwice(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("Administrator Account Holder", "admin@example.com", models.RoleAdmin)
	env.createStore("store", "store@example.com", nil)

	_, c := env.doJSONRequest(http.MethodDelete, "/api/v1/admin/stores/1", nil)
	c.SetParamNames("id")
	c.SetParamValues("1")
	env.as(c, admin)
	require.NoError(t, env.Admin.DeleteStore(c))

	_, c2 := env.doJSONRequest(http.MethodDelete, "/api/v1/admin/stores/1", nil)
	c2.SetParamNames("id")
	c2.SetParamValues("1")
	env.as(c2, admin)

	he := httpError(t, env.Admin.DeleteStore(c2))
	require.Equal(t, http.StatusNotFound, he.Code)
}

func TestAdminUpdateUser(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("Administrator Account Holder", "admin@example.com", models.RoleAdmin)
	target := env.createUser("Regular Target Account Holder", "target@example.com", models.RoleUser)

	body := map[string]any{
		"name": "Renamed Target Account Holder",
		"role": models.RoleStoreOwner,
	}
	rec, c := env.doJSONRequest(http.MethodPatch, "/api/v1/admin/users/2", body)
	c.SetParamNames("id")
	c.SetParamValues("2")
	env.as(c, admin)

	require.NoError(t, env.Admin.UpdateUser(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.User
	require.NoError(t, env.DB.First(&updated, target.ID).Error)
	require.Equal(t, "Renamed Target Account Holder", updated.Name)
	require.Equal(t, models.RoleStoreOwner, updated.Role)
}

func TestAdminUpdateUserNoFields(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("Administrator Account Holder", "admin@example.com", models.RoleAdmin)
	env.createUser("Regular Target Account Holder", "target@example.com", models.RoleUser)

	_, c := env.doJSONRequest(http.MethodPatch, "/api/v1/admin/users/2", map[string]any{})
	c.SetParamNames("id")
	c.SetParamValues("2")
	env.as(c, admin)

	he := httpError(t, env.Admin.UpdateUser(c))
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestAdminUpdateUserInvalidRole(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("Administrator Account Holder", "admin@example.com", models.RoleAdmin)
	env.createUser("Regular Target Account Holder", "target@example.com", models.RoleUser)

	_, c := env.doJSONRequest(http.MethodPatch, "/api/v1/admin/users/2", map[string]any{"role": "superadmin"})
	c.SetParamNames("id")
	c.SetParamValues("2")
	env.as(c, admin)

	he := httpError(t, env.Admin.UpdateUser(c))
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestAdminUpdateStore(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("Administrator Account Holder", "admin@example.com", models.RoleAdmin)
	owner := env.createUser("Store Owner Account Holder", "owner@example.com", models.RoleStoreOwner)
	store := env.createStore("store", "store@example.com", nil)

	body := map[string]any{
		"name":     "renamed store",
		"owner_id": owner.ID,
	}
	rec, c := env.doJSONRequest(http.MethodPatch, "/api/v1/admin/stores/1", body)
	c.SetParamNames("id")
	c.SetParamValues("1")
	env.as(c, admin)

	require.NoError(t, env.Admin.UpdateStore(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.Store
	require.NoError(t, env.DB.First(&updated, store.ID).Error)
	require.Equal(t, "renamed store", updated.Name)
	require.NotNil(t, updated.OwnerID)
	require.Equal(t, owner.ID, *updated.OwnerID)
}

func TestAdminUpdateStoreNotFound(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("Administrator Account Holder", "admin@example.com", models.RoleAdmin)

	_, c := env.doJSONRequest(http.MethodPatch, "/api/v1/admin/stores/77", map[string]any{"name": "x"})
	c.SetParamNames("id")
	c.SetParamValues("77")
	env.as(c, admin)

	he := httpError(t, env.Admin.UpdateStore(c))
	require.Equal(t, http.StatusNotFound, he.Code)
}
