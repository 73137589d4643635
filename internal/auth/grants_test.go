package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powerx.io/internal/locations"
)

func TestOrganizationReadGrantCoversEveryLocation(t *testing.T) {
	store := newMemStore()
	store.orgGrants = []UserOrganizationAccessGrant{{UserID: "u", OrganizationID: "org-1", Level: GrantRead}}
	helper, err := NewUserAccessGrantsHelper(store)
	require.NoError(t, err)

	for _, id := range []string{"loc-a", "loc-b", "loc-c"} {
		ok, err := helper.IsUserAuthorizedForLocationRead(context.Background(), "u", locations.Location{ID: id, OrganizationID: "org-1"})
		require.NoError(t, err)
		assert.True(t, ok, id)
	}

	ok, err := helper.IsUserAuthorizedForLocationRead(context.Background(), "u", locations.Location{ID: "loc-x", OrganizationID: "org-2"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocationGrantAppliesToSingleLocation(t *testing.T) {
	store := newMemStore()
	store.locGrants = []UserLocationAccessGrant{{UserID: "u", LocationID: "loc-a", Level: GrantUpdate}}
	helper, err := NewUserAccessGrantsHelper(store)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := helper.IsUserAuthorizedForLocationUpdate(ctx, "u", locations.Location{ID: "loc-a", OrganizationID: "org-1"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = helper.IsUserAuthorizedForLocationUpdate(ctx, "u", locations.Location{ID: "loc-b", OrganizationID: "org-1"})
	require.NoError(t, err)
	assert.False(t, ok)

	// update does not imply read
	ok, err = helper.IsUserAuthorizedForLocationRead(ctx, "u", locations.Location{ID: "loc-a", OrganizationID: "org-1"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocationWriteRequiresOrganizationGrant(t *testing.T) {
	store := newMemStore()
	store.orgGrants = []UserOrganizationAccessGrant{{UserID: "u", OrganizationID: "org-1", Level: GrantWrite}}
	store.locGrants = []UserLocationAccessGrant{{UserID: "v", LocationID: "loc-a", Level: GrantWrite}}
	helper, err := NewUserAccessGrantsHelper(store)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := helper.IsUserAuthorizedForLocationWrite(ctx, "u", "org-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = helper.IsUserAuthorizedForLocationWrite(ctx, "v", "org-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
