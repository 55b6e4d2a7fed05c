package comments

import (
	"context"
	"fmt"
	"testing"

	"github.com/anoixa/photogram/database"
	"github.com/anoixa/photogram/database/dbtest"
	"github.com/anoixa/photogram/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, provider database.Provider) (*models.User, *models.User, *models.Picture) {
	t.Helper()
	alice := &models.User{FullName: "alice", Email: "alice@example.com", Password: "h", Role: models.RoleAdmin}
	bob := &models.User{FullName: "bob", Email: "bob@example.com", Password: "h", Role: models.RoleUser}
	require.NoError(t, provider.DB().Create(alice).Error)
	require.NoError(t, provider.DB().Create(bob).Error)
	picture := &models.Picture{URL: "u", PublicID: "p", UserID: alice.ID}
	require.NoError(t, provider.DB().Create(picture).Error)
	return alice, bob, picture
}

func TestCreateAndList(t *testing.T) {
	provider := dbtest.NewProvider(t)
	repo := NewRepository(provider)
	ctx := context.Background()
	alice, _, picture := seed(t, provider)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, &models.Comment{Text: fmt.Sprintf("c%d", i), UserID: alice.ID, PictureID: picture.ID}))
	}

	page, err := repo.ListByPicture(ctx, picture.ID, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c1", page[0].Text)
	assert.Equal(t, "c2", page[1].Text)

	empty, err := repo.ListByPicture(ctx, picture.ID+100, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUpdateText_OnlyAuthor(t *testing.T) {
	provider := dbtest.NewProvider(t)
	repo := NewRepository(provider)
	ctx := context.Background()
	alice, bob, picture := seed(t, provider)

	c := &models.Comment{Text: "hello", UserID: alice.ID, PictureID: picture.ID}
	require.NoError(t, repo.Create(ctx, c))

	updated, err := repo.UpdateText(ctx, c.ID, bob.ID, "hijack")
	require.NoError(t, err)
	assert.Nil(t, updated)

	updated, err = repo.UpdateText(ctx, c.ID, alice.ID, "edited")
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "edited", updated.Text)

	loaded, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", loaded.Text)
}

func TestDeleteComment(t *testing.T) {
	provider := dbtest.NewProvider(t)
	repo := NewRepository(provider)
	ctx := context.Background()
	alice, _, picture := seed(t, provider)

	c := &models.Comment{Text: "bye", UserID: alice.ID, PictureID: picture.ID}
	require.NoError(t, repo.Create(ctx, c))

	deleted, err := repo.DeleteComment(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, deleted)
	assert.Equal(t, "bye", deleted.Text)

	again, err := repo.DeleteComment(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, again)
}
