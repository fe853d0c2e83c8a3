package notes

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/okian/trapperkeeper/internal/domain/model"
	"github.com/okian/trapperkeeper/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func item(noteID model.ID) model.Item {
	it, _ := model.NewItem(noteID, map[string]any{"name": "Milk"})
	return it
}

func TestValidateCreate(t *testing.T) {
	Convey("Given a strict validator", t, func() {
		v := NewValidator()
		So(v.StrictItems(), ShouldBeTrue)

		Convey("When the title is missing", func() {
			err := v.ValidateCreate(types.CreateNote{ID: model.NumberID(1)})

			Convey("Then it should fail with the no-title message", func() {
				So(errors.Is(err, ErrValidation), ShouldBeTrue)
				So(err.Error(), ShouldEqual, MsgNoTitle)
			})
		})

		Convey("When the title is missing but items are valid", func() {
			err := v.ValidateCreate(types.CreateNote{
				ID:    model.NumberID(1),
				Items: []model.Item{item(model.NumberID(1))},
			})

			Convey("Then the title check should still win", func() {
				So(err.Error(), ShouldEqual, MsgNoTitle)
			})
		})

		Convey("When items reference the note", func() {
			err := v.ValidateCreate(types.CreateNote{
				ID:    model.NumberID(1),
				Title: "Groceries",
				Items: []model.Item{item(model.StringID("1")), item(model.NumberID(1))},
			})

			Convey("Then it should pass", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When an item references another note", func() {
			err := v.ValidateCreate(types.CreateNote{
				ID:    model.NumberID(1),
				Title: "Groceries",
				Items: []model.Item{item(model.NumberID(1)), item(model.NumberID(2))},
			})

			Convey("Then it should name the offending item", func() {
				So(errors.Is(err, ErrValidation), ShouldBeTrue)
				So(err.Error(), ShouldEqual, "Item 1 belongs to note 2, not 1")
			})
		})

		Convey("When an item has no noteID", func() {
			err := v.ValidateCreate(types.CreateNote{
				ID:    model.NumberID(1),
				Title: "Groceries",
				Items: []model.Item{item(model.ID{})},
			})

			Convey("Then it should fail", func() {
				So(err.Error(), ShouldEqual, "Item 0 has no noteID")
			})
		})
	})

	Convey("Given a permissive validator", t, func() {
		v := NewValidator(WithStrictItems(false))

		Convey("When an item references another note", func() {
			err := v.ValidateCreate(types.CreateNote{
				ID:    model.NumberID(1),
				Title: "Groceries",
				Items: []model.Item{item(model.NumberID(2))},
			})

			Convey("Then it should pass", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When an item has no noteID", func() {
			err := v.ValidateCreate(types.CreateNote{
				Title: "Groceries",
				Items: []model.Item{item(model.ID{})},
			})

			Convey("Then it should still fail", func() {
				So(errors.Is(err, ErrValidation), ShouldBeTrue)
			})
		})
	})
}

func TestValidateUpdate(t *testing.T) {
	Convey("Given a strict validator", t, func() {
		v := NewValidator()

		Convey("When items reference the path id", func() {
			err := v.ValidateUpdate("1", types.UpdateNote{
				Title: "Shopping",
				Items: []model.Item{item(model.NumberID(1))},
			})

			Convey("Then it should pass", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When the title is empty", func() {
			err := v.ValidateUpdate("1", types.UpdateNote{})

			Convey("Then it should fail", func() {
				So(err.Error(), ShouldEqual, MsgNoTitle)
			})
		})

		Convey("When an item references another note", func() {
			err := v.ValidateUpdate("abc", types.UpdateNote{
				Title: "Shopping",
				Items: []model.Item{item(model.StringID("xyz"))},
			})

			Convey("Then it should fail", func() {
				So(err.Error(), ShouldEqual, "Item 0 belongs to note xyz, not abc")
			})
		})
	})
}

func TestTitleMissing(t *testing.T) {
	Convey("Given raw title values", t, func() {
		Convey("Then absent and falsy values count as missing", func() {
			for _, raw := range []string{"", "null", "false", `""`, "0", "-0", "0.0", " null "} {
				So(TitleMissing(json.RawMessage(raw)), ShouldBeTrue)
			}
		})

		Convey("Then any other value counts as present", func() {
			for _, raw := range []string{`"Groceries"`, `" "`, "true", "5", "-1.5", "[]", "{}"} {
				So(TitleMissing(json.RawMessage(raw)), ShouldBeFalse)
			}
		})

		Convey("Then the no-title error is a validation error", func() {
			err := NoTitleError()
			So(errors.Is(err, ErrValidation), ShouldBeTrue)
			So(err.Error(), ShouldEqual, MsgNoTitle)
		})
	})
}
