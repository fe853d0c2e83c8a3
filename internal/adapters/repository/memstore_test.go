package repository_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/okian/trapperkeeper/internal/adapters/repository"
	"github.com/okian/trapperkeeper/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
	"pgregory.net/rapid"
)

type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

func item(t fataler, noteID model.ID, name string) model.Item {
	t.Helper()
	it, err := model.NewItem(noteID, map[string]any{"name": name})
	if err != nil {
		t.Fatalf("new item: %v", err)
	}
	return it
}

func TestMemStoreCRUD(t *testing.T) {
	Convey("Given an empty MemStore", t, func() {
		ctx := context.Background()
		s := repository.NewMemStore()

		Convey("Then listing returns empty, non-nil collections", func() {
			notes, items, err := s.List(ctx)
			So(err, ShouldBeNil)
			So(notes, ShouldNotBeNil)
			So(items, ShouldNotBeNil)
			So(notes, ShouldBeEmpty)
			So(items, ShouldBeEmpty)
		})

		Convey("When the Groceries note is created", func() {
			groceries := model.Note{ID: model.NumberID(1), Title: "Groceries"}
			So(s.Create(ctx, groceries, []model.Item{
				item(t, model.NumberID(1), "milk"),
				item(t, model.NumberID(1), "eggs"),
			}), ShouldBeNil)

			Convey("Then get returns the note and its two items", func() {
				note, items, err := s.Get(ctx, "1")
				So(err, ShouldBeNil)
				So(note.Title, ShouldEqual, "Groceries")
				So(items, ShouldHaveLength, 2)
			})

			Convey("Then a numeric id is reachable through equivalent spellings", func() {
				_, _, err := s.Get(ctx, "1.0")
				So(err, ShouldBeNil)
			})

			Convey("And it is updated with a new title and one item", func() {
				err := s.Update(ctx, "1", "Weekend", []model.Item{item(t, model.NumberID(1), "bread")})
				So(err, ShouldBeNil)

				note, items, _ := s.Get(ctx, "1")
				So(note.Title, ShouldEqual, "Weekend")
				So(items, ShouldHaveLength, 1)
				raw, _ := items[0].Field("name")
				So(string(raw), ShouldEqual, `"bread"`)
				So(s.Count(ctx), ShouldResemble, repository.Counts{Notes: 1, Items: 1})
			})

			Convey("And it is deleted", func() {
				removed, err := s.Delete(ctx, "1")
				So(err, ShouldBeNil)
				So(removed, ShouldResemble, repository.Counts{Notes: 1, Items: 2})

				_, _, err = s.Get(ctx, "1")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				So(s.Count(ctx), ShouldResemble, repository.Counts{})
			})

			Convey("And a second note is created", func() {
				So(s.Create(ctx, model.Note{ID: model.StringID("abc"), Title: "Work"},
					[]model.Item{item(t, model.StringID("abc"), "report")}), ShouldBeNil)

				Convey("Then deleting one leaves the other intact", func() {
					_, err := s.Delete(ctx, "abc")
					So(err, ShouldBeNil)

					notes, items, _ := s.List(ctx)
					So(notes, ShouldHaveLength, 1)
					So(notes[0].Title, ShouldEqual, "Groceries")
					So(items, ShouldHaveLength, 2)
				})
			})
		})

		Convey("When missing ids are addressed", func() {
			So(s.Create(ctx, model.Note{ID: model.StringID("x"), Title: "X"}, nil), ShouldBeNil)

			_, _, getErr := s.Get(ctx, "nope")
			_, delErr := s.Delete(ctx, "nope")
			updErr := s.Update(ctx, "nope", "Y", nil)

			Convey("Then each reports ErrNotFound and nothing changes", func() {
				So(errors.Is(getErr, repository.ErrNotFound), ShouldBeTrue)
				So(errors.Is(delErr, repository.ErrNotFound), ShouldBeTrue)
				So(errors.Is(updErr, repository.ErrNotFound), ShouldBeTrue)

				notes, _, _ := s.List(ctx)
				So(notes, ShouldHaveLength, 1)
				So(notes[0].Title, ShouldEqual, "X")
			})
		})

		Convey("When a caller mutates a listed item", func() {
			So(s.Create(ctx, model.Note{ID: model.StringID("a"), Title: "A"},
				[]model.Item{item(t, model.StringID("a"), "one")}), ShouldBeNil)
			_, items, _ := s.List(ctx)
			items[0].Fields["name"] = []byte(`"changed"`)

			Convey("Then the stored item is untouched", func() {
				_, stored, _ := s.Get(ctx, "a")
				raw, _ := stored[0].Field("name")
				So(string(raw), ShouldEqual, `"one"`)
			})
		})
	})
}

func TestMemStoreConcurrentCreates(t *testing.T) {
	Convey("Given many concurrent creates", t, func() {
		ctx := context.Background()
		s := repository.NewMemStore(repository.WithCapacity(64))

		var wg sync.WaitGroup
		for i := 0; i < 64; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := model.NumberID(float64(i))
				_ = s.Create(ctx, model.Note{ID: id, Title: "n"}, []model.Item{item(t, id, "x")})
			}(i)
		}
		wg.Wait()

		Convey("Then none is lost", func() {
			So(s.Count(ctx), ShouldResemble, repository.Counts{Notes: 64, Items: 64})
		})
	})
}

// genID draws from a small pool so that collisions between operations are
// frequent.
func genID(t *rapid.T, label string) model.ID {
	n := rapid.IntRange(0, 4).Draw(t, label)
	if rapid.Bool().Draw(t, label+"-numeric") {
		return model.NumberID(float64(n))
	}
	return model.StringID("note-" + strconv.Itoa(n))
}

func TestMemStoreProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		s := repository.NewMemStore()

		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			id := genID(t, "id")
			param := id.String()

			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				n := rapid.IntRange(0, 3).Draw(t, "items")
				items := make([]model.Item, n)
				for j := range items {
					items[j] = item(t, id, "x")
				}
				before := s.Count(ctx)
				if err := s.Create(ctx, model.Note{ID: id, Title: "t"}, items); err != nil {
					t.Fatalf("create: %v", err)
				}
				after := s.Count(ctx)
				if after.Notes != before.Notes+1 || after.Items != before.Items+n {
					t.Fatalf("create grew %+v -> %+v, want +1 note +%d items", before, after, n)
				}

			case 1:
				before := s.Count(ctx)
				removed, err := s.Delete(ctx, param)
				if errors.Is(err, repository.ErrNotFound) {
					if s.Count(ctx) != before {
						t.Fatalf("failed delete changed counts")
					}
					continue
				}
				if _, _, err := s.Get(ctx, param); !errors.Is(err, repository.ErrNotFound) {
					t.Fatalf("note %s still present after delete", param)
				}
				_, items, _ := s.List(ctx)
				for _, it := range items {
					if it.NoteID.Matches(param) {
						t.Fatalf("item for %s survived delete", param)
					}
				}
				after := s.Count(ctx)
				if after.Notes != before.Notes-removed.Notes || after.Items != before.Items-removed.Items {
					t.Fatalf("delete reported %+v but counts went %+v -> %+v", removed, before, after)
				}

			case 2:
				n := rapid.IntRange(0, 3).Draw(t, "replacement")
				items := make([]model.Item, n)
				for j := range items {
					items[j] = item(t, id, "y")
				}
				err := s.Update(ctx, param, "updated", items)
				if errors.Is(err, repository.ErrNotFound) {
					continue
				}
				note, got, err := s.Get(ctx, param)
				if err != nil {
					t.Fatalf("get after update: %v", err)
				}
				if note.Title != "updated" {
					t.Fatalf("title = %q after update", note.Title)
				}
				if len(got) != n {
					t.Fatalf("got %d items after update, want %d", len(got), n)
				}
			}
		}
	})
}
