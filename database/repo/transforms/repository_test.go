package transforms

import (
	"context"
	"testing"

	"github.com/anoixa/photogram/database/dbtest"
	"github.com/anoixa/photogram/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func strPtr(s string) *string { return &s }

func TestTransformedPicture_Lifecycle(t *testing.T) {
	provider := dbtest.NewProvider(t)
	repo := NewRepository(provider)
	ctx := context.Background()

	user := &models.User{FullName: "alice", Email: "alice@example.com", Password: "h", Role: models.RoleAdmin}
	require.NoError(t, provider.DB().Create(user).Error)
	picture := &models.Picture{URL: "https://cdn/orig.jpg", PublicID: "orig", UserID: user.ID}
	require.NoError(t, provider.DB().Create(picture).Error)

	tp := &models.TransformedPicture{
		OriginalPictureID: picture.ID,
		URL:               "https://cdn/t1.jpg",
		PublicID:          "t1",
		QRURL:             strPtr("https://cdn/qr1.png"),
		QRPublicID:        strPtr("qr1"),
		Params:            datatypes.JSONMap{"width": float64(300)},
		UserID:            user.ID,
	}
	require.NoError(t, repo.Create(ctx, tp))

	loaded, err := repo.GetByID(ctx, tp.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, float64(300), loaded.Params["width"])

	updated, err := repo.ReplaceAssets(ctx, tp.ID, Assets{
		URL:        "https://cdn/t1.jpg?v=2",
		QRURL:      "https://cdn/qr2.png",
		QRPublicID: "qr2",
		Params:     datatypes.JSONMap{"effect": "sepia"},
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "https://cdn/t1.jpg?v=2", updated.URL)
	assert.Equal(t, "qr2", *updated.QRPublicID)
	assert.Equal(t, "t1", updated.PublicID)

	missing, err := repo.ReplaceAssets(ctx, 999, Assets{})
	assert.NoError(t, err)
	assert.Nil(t, missing)

	byUser, err := repo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, byUser, 1)

	byPicture, err := repo.ListByPicture(ctx, picture.ID)
	require.NoError(t, err)
	assert.Len(t, byPicture, 1)

	deleted, err := repo.Delete(ctx, tp.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	gone, err := repo.GetByID(ctx, tp.ID)
	assert.NoError(t, err)
	assert.Nil(t, gone)
}
