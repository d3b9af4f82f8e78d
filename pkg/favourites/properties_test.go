package favourites_test

import (
	"context"
	"errors"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/redhat-data-and-ai/favourites/pkg/cache/inmemory"
	"github.com/redhat-data-and-ai/favourites/pkg/favourites"
	"github.com/redhat-data-and-ai/favourites/pkg/persistence/badgerstore"
	"github.com/redhat-data-and-ai/favourites/pkg/sharedentity"
	"github.com/redhat-data-and-ai/favourites/pkg/store"
)

// flakyBackend applies removals and then reports a failure, like a write
// that reached the database but lost its acknowledgement
type flakyBackend struct {
	*badgerstore.Store
	failRemove bool
}

func (f *flakyBackend) RemoveFavourite(ctx context.Context, userKey string, entity favourites.Identifier) (bool, error) {
	removed, err := f.Store.RemoveFavourite(ctx, userKey, entity)
	if err == nil && f.failRemove {
		return removed, errors.New("connection lost after commit")
	}
	return removed, err
}

var _ = Describe("Favourites manager over the caching store", func() {
	var (
		ctx      context.Context
		backend  *flakyBackend
		accessor *sharedentity.MemoryAccessor
		manager  *favourites.DefaultManager

		user          *favourites.User
		a, b, c, d, e *favourites.SharedEntity
	)

	ids := func(u *favourites.User) []int64 {
		got, err := manager.GetFavouriteIDs(ctx, u, favourites.EntityTypeSearchRequest)
		Expect(err).NotTo(HaveOccurred())
		return got
	}

	persisted := func(u *favourites.User) []int64 {
		got, err := backend.GetFavouriteIDs(ctx, u.Key, favourites.EntityTypeSearchRequest)
		Expect(err).NotTo(HaveOccurred())
		if got == nil {
			return []int64{}
		}
		return got
	}

	expectDense := func(u *favourites.User) {
		rows, err := backend.Associations(ctx, u.Key, favourites.EntityTypeSearchRequest)
		Expect(err).NotTo(HaveOccurred())
		for i, row := range rows {
			Expect(row.Sequence).To(Equal(i))
		}
	}

	BeforeEach(func() {
		ctx = context.Background()

		db, err := badgerstore.Open(badgerstore.InMemoryConfig())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(db.Close)
		backend = &flakyBackend{Store: db}

		memCache, err := inmemory.NewCache(&inmemory.Config{DefaultExpiration: 300, CleanupInterval: 600})
		Expect(err).NotTo(HaveOccurred())

		accessor = sharedentity.NewMemoryAccessor(favourites.EntityTypeSearchRequest)
		registry := sharedentity.NewRegistry()
		registry.Register(favourites.EntityTypeSearchRequest, accessor)

		manager = favourites.NewDefaultManager(store.New(memCache, backend).Favourites, registry, registry)

		user = &favourites.User{Key: "ldap/alice"}
		entity := func(id int64) *favourites.SharedEntity {
			return accessor.Put(favourites.SharedEntity{Identifier: favourites.Identifier{ID: id, OwnerKey: "bob"}}, true)
		}
		a, b, c, d, e = entity(1), entity(2), entity(3), entity(4), entity(5)
	})

	Describe("adding", func() {
		It("is idempotent", func() {
			Expect(manager.AddFavourite(ctx, user, a)).To(Succeed())
			Expect(manager.AddFavourite(ctx, user, a)).To(Succeed())

			Expect(manager.IsFavourite(ctx, user, a)).To(BeTrue())
			Expect(accessor.FavouriteCount(a.ID)).To(Equal(int64(1)))
			Expect(ids(user)).To(Equal([]int64{1}))
		})

		It("is undone by a remove", func() {
			before := accessor.FavouriteCount(b.ID)
			Expect(manager.AddFavourite(ctx, user, b)).To(Succeed())
			Expect(manager.RemoveFavourite(ctx, user, b)).To(Succeed())

			Expect(manager.IsFavourite(ctx, user, b)).To(BeFalse())
			Expect(accessor.FavouriteCount(b.ID)).To(Equal(before))
		})
	})

	Describe("sequence contiguity", func() {
		It("holds after any mix of adds, removes and reorders", func() {
			all := []*favourites.SharedEntity{a, b, c, d, e}
			rng := rand.New(rand.NewSource(42))

			for range 200 {
				target := all[rng.Intn(len(all))]
				switch rng.Intn(7) {
				case 0, 1:
					Expect(manager.AddFavourite(ctx, user, target)).To(Succeed())
				case 2:
					Expect(manager.RemoveFavourite(ctx, user, target)).To(Succeed())
				case 3:
					Expect(manager.IncreaseFavouriteSequence(ctx, user, target)).To(Succeed())
				case 4:
					Expect(manager.DecreaseFavouriteSequence(ctx, user, target)).To(Succeed())
				case 5:
					Expect(manager.MoveToStartFavouriteSequence(ctx, user, target)).To(Succeed())
				case 6:
					Expect(manager.AddFavouriteInPosition(ctx, user, target, rng.Intn(6)-1)).To(Succeed())
				}
				expectDense(user)
				Expect(ids(user)).To(Equal(persisted(user)))
			}
		})
	})

	Describe("cache coherency", func() {
		BeforeEach(func() {
			for _, entity := range []*favourites.SharedEntity{a, b, c} {
				Expect(manager.AddFavourite(ctx, user, entity)).To(Succeed())
			}
			Expect(ids(user)).To(Equal([]int64{1, 2, 3}))
		})

		It("reflects every mutation on the next read", func() {
			Expect(manager.MoveToEndFavouriteSequence(ctx, user, a)).To(Succeed())
			Expect(ids(user)).To(Equal([]int64{2, 3, 1}))

			Expect(manager.RemoveFavourite(ctx, user, c)).To(Succeed())
			Expect(ids(user)).To(Equal([]int64{2, 1}))
		})

		It("reflects a write that failed after reaching the store", func() {
			backend.failRemove = true
			Expect(manager.RemoveFavourite(ctx, user, b)).To(MatchError(ContainSubstring("connection lost")))

			Expect(ids(user)).To(Equal([]int64{1, 3}))
		})
	})

	Describe("reordering", func() {
		BeforeEach(func() {
			for _, entity := range []*favourites.SharedEntity{a, b, c} {
				Expect(manager.AddFavourite(ctx, user, entity)).To(Succeed())
			}
		})

		It("deletes dead entries while moving the target", func() {
			accessor.Delete(b.ID)

			Expect(manager.IncreaseFavouriteSequence(ctx, user, a)).To(Succeed())

			Expect(persisted(user)).To(Equal([]int64{3, 1}))
			expectDense(user)
		})

		It("demotes entries the user can no longer use", func() {
			accessor.SetPublic(b.ID, false)

			Expect(manager.MoveToStartFavouriteSequence(ctx, user, c)).To(Succeed())

			Expect(persisted(user)).To(Equal([]int64{3, 1, 2}))
		})

		It("still cleans up when the target is not usable", func() {
			accessor.Delete(c.ID)
			accessor.SetPublic(a.ID, false)

			Expect(manager.MoveToStartFavouriteSequence(ctx, user, a)).To(Succeed())

			Expect(persisted(user)).To(Equal([]int64{2, 1}))
		})
	})

	Describe("deleting an entity", func() {
		It("flushes cached favourites of unrelated users", func() {
			bob := &favourites.User{Key: "bob"}
			Expect(manager.AddFavourite(ctx, bob, d)).To(Succeed())
			Expect(ids(bob)).To(Equal([]int64{4}))

			// written behind the cache, only a flush makes it visible
			_, err := backend.AddFavourite(ctx, bob.Key, e.Identifier)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(bob)).To(Equal([]int64{4}))

			Expect(manager.AddFavourite(ctx, user, a)).To(Succeed())
			Expect(manager.RemoveFavouritesForEntityDelete(ctx, a.Identifier)).To(Succeed())

			Expect(ids(bob)).To(Equal([]int64{4, 5}))
			Expect(ids(user)).To(BeEmpty())
		})
	})
})
