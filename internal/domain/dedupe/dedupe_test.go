package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	dedupe "github.com/okian/trapperkeeper/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper[string]()

		Convey("Then it should start empty", func() {
			So(d.Size(), ShouldEqual, 0)
			_, ok := d.Lookup(ctx, "key-1")
			So(ok, ShouldBeFalse)
		})

		Convey("When a key is recorded for the first time", func() {
			v, fresh := d.Record(ctx, "key-1", "first")

			Convey("Then it should be stored and returned", func() {
				So(fresh, ShouldBeTrue)
				So(v, ShouldEqual, "first")
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And a lookup should return the recorded value", func() {
				got, ok := d.Lookup(ctx, "key-1")
				So(ok, ShouldBeTrue)
				So(got, ShouldEqual, "first")
			})

			Convey("And a second record should keep the original value", func() {
				got, fresh := d.Record(ctx, "key-1", "second")
				So(fresh, ShouldBeFalse)
				So(got, ShouldEqual, "first")
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a recorded key is forgotten", func() {
			d.Record(ctx, "key-1", "first")
			d.Forget(ctx, "key-1")

			Convey("Then it can be recorded again with a new value", func() {
				So(d.Size(), ShouldEqual, 0)
				got, fresh := d.Record(ctx, "key-1", "again")
				So(fresh, ShouldBeTrue)
				So(got, ShouldEqual, "again")
			})
		})

		Convey("When an unknown key is forgotten", func() {
			d.Record(ctx, "key-1", "first")
			d.Forget(ctx, "missing")

			Convey("Then nothing should change", func() {
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})
}

func TestInMemoryDeduperEviction(t *testing.T) {
	Convey("Given a deduper bounded to three keys", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper[int](dedupe.WithMaxSize(3))

		for i := 1; i <= 4; i++ {
			d.Record(ctx, fmt.Sprintf("key-%d", i), i)
		}

		Convey("Then the size should stay at the bound", func() {
			So(d.Size(), ShouldEqual, 3)
		})

		Convey("And the oldest key should have been forgotten", func() {
			v, ok := d.Lookup(ctx, "key-4")
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 4)
			_, ok = d.Lookup(ctx, "key-1")
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper[int](dedupe.WithMaxSize(0))

		for i := 0; i < 20_000; i++ {
			d.Record(ctx, fmt.Sprintf("key-%d", i), i)
		}

		Convey("Then nothing should be evicted", func() {
			So(d.Size(), ShouldEqual, 20_000)
			_, ok := d.Lookup(ctx, "key-0")
			So(ok, ShouldBeTrue)
		})
	})
}

func TestInMemoryDeduperConcurrency(t *testing.T) {
	Convey("Given many goroutines racing to record the same key", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper[int]()

		var fresh atomic.Int64
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				if _, ok := d.Record(ctx, "shared", n); ok {
					fresh.Add(1)
				}
			}(i)
		}
		wg.Wait()

		Convey("Then exactly one should win", func() {
			So(fresh.Load(), ShouldEqual, 1)
			So(d.Size(), ShouldEqual, 1)
		})
	})
}
