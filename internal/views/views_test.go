package views

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metadesk-backend/internal/metadata"
)

func setupRedis(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, ttl), mr
}

func override(props ...string) metadata.ViewOverride {
	return metadata.ViewOverride{
		Properties: props,
		UI:         &metadata.OverrideUI{Pinned: &metadata.PinnedOverride{Left: []string{"name"}}},
	}
}

func TestStores(t *testing.T) {
	redisStore, _ := setupRedis(t, 0)
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  redisStore,
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			empty, err := s.Load(ctx, "org1", "businessUnit")
			require.NoError(t, err)
			assert.Empty(t, empty)

			require.NoError(t, s.Save(ctx, "org1", "businessUnit", "default", override("name", "isActive")))
			require.NoError(t, s.Save(ctx, "org1", "businessUnit", "compact", override("name")))
			require.NoError(t, s.Save(ctx, "org1", "businessUnit", "default", override("name", "revenue")))

			got, err := s.Load(ctx, "org1", "businessUnit")
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, []string{"name", "revenue"}, got["default"].Properties)
			assert.Equal(t, []string{"name"}, got["compact"].Properties)
			assert.Equal(t, []string{"name"}, got["default"].UI.Pinned.Left)

			other, err := s.Load(ctx, "org2", "businessUnit")
			require.NoError(t, err)
			assert.Empty(t, other, "overrides are scoped per organization")
		})

		t.Run(name+" cleared lists", func(t *testing.T) {
			ctx := context.Background()
			cleared := metadata.ViewOverride{
				Properties: []string{},
				UI:         &metadata.OverrideUI{Pinned: &metadata.PinnedOverride{Left: []string{}}},
			}
			require.NoError(t, s.Save(ctx, "org3", "businessUnit", "default", cleared))

			got, err := s.Load(ctx, "org3", "businessUnit")
			require.NoError(t, err)
			base := metadata.View{
				Type:       "table",
				Properties: []string{"name", "isActive"},
				UI:         metadata.ViewUI{Pinned: metadata.Pinned{Left: []string{"name"}, Right: []string{"isActive"}}},
			}
			merged := metadata.MergeView(base, got["default"])
			assert.NotNil(t, merged.Properties)
			assert.Empty(t, merged.Properties)
			assert.NotNil(t, merged.UI.Pinned.Left)
			assert.Empty(t, merged.UI.Pinned.Left)
			assert.Equal(t, []string{"isActive"}, merged.UI.Pinned.Right, "unset side keeps the base")
		})
	}
}

func TestRedisStoreLayout(t *testing.T) {
	s, mr := setupRedis(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "org1", "location", "default", metadata.ViewOverride{Type: "cards"}))

	assert.True(t, mr.Exists("entity-list:org1:location"))
	assert.JSONEq(t, `{"type":"cards","properties":null}`, mr.HGet("entity-list:org1:location", "default"))
	assert.Equal(t, time.Hour, mr.TTL("entity-list:org1:location"))

	mr.FastForward(2 * time.Hour)
	got, err := s.Load(ctx, "org1", "location")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisStoreCorruptEntry(t *testing.T) {
	s, mr := setupRedis(t, 0)
	mr.HSet("entity-list:org1:location", "default", "{not json")

	_, err := s.Load(context.Background(), "org1", "location")
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	e := &metadata.ResolvedEntity{Views: map[string]metadata.View{
		"default": {Type: "table", Properties: []string{"name", "isActive", "revenue"}},
		"compact": {Type: "table", Properties: []string{"name"}},
	}}

	got := Apply(e, Overrides{
		"default": {Type: "cards", Properties: []string{"name"}},
		"missing": {Type: "cards"},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "cards", got["default"].Type)
	assert.Equal(t, []string{"name"}, got["default"].Properties)
	assert.Equal(t, e.Views["compact"], got["compact"])
	assert.Equal(t, []string{"name", "isActive", "revenue"}, e.Views["default"].Properties, "base views are not modified")
}
