package main

import (
	"context"
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/matchpulse/internal/domain/embedding"
	"github.com/okian/matchpulse/pkg/logger"
)

func init() {
	_ = logger.Init()
}

type fakeStore struct {
	existing   int64
	migrateErr error
	inserted   []embedding.Doc
}

func (f *fakeStore) Migrate(context.Context) error { return f.migrateErr }

func (f *fakeStore) CountDocs(context.Context) (int64, error) { return f.existing, nil }

func (f *fakeStore) InsertDocs(_ context.Context, docs []embedding.Doc) error {
	f.inserted = append(f.inserted, docs...)
	return nil
}

func TestBuild(t *testing.T) {
	convey.Convey("Given an embedder", t, func() {
		ctx := context.Background()
		emb := embedding.NewHashingEmbedder(32)

		convey.Convey("An empty store receives embedded documents", func() {
			store := &fakeStore{}
			n, err := build(ctx, store, emb, 10, 3)
			convey.So(err, convey.ShouldBeNil)
			convey.So(n, convey.ShouldEqual, 10)
			convey.So(store.inserted, convey.ShouldHaveLength, 10)
			for _, d := range store.inserted {
				convey.So(d.Vector, convey.ShouldHaveLength, 32)
			}
		})

		convey.Convey("A populated store is left untouched", func() {
			store := &fakeStore{existing: 200}
			n, err := build(ctx, store, emb, 10, 3)
			convey.So(err, convey.ShouldBeNil)
			convey.So(n, convey.ShouldEqual, 0)
			convey.So(store.inserted, convey.ShouldBeEmpty)
		})

		convey.Convey("Migration failures stop the build", func() {
			store := &fakeStore{migrateErr: errors.New("no database")}
			_, err := build(ctx, store, emb, 10, 3)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(store.inserted, convey.ShouldBeEmpty)
		})
	})
}
