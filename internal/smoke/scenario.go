package smoke

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/okian/trapperkeeper/internal/client"
	"github.com/okian/trapperkeeper/internal/domain/model"
	"github.com/okian/trapperkeeper/internal/domain/types"
)

// checker counts checks for one scenario and stops at the first failure.
type checker struct {
	run  *runner
	name string
	err  error
}

// expect returns a func that takes a client call's results and yields the
// response only if it carries the wanted status.
func (c *checker) expect(want int, what string) func(*client.Response, error) *client.Response {
	return func(resp *client.Response, err error) *client.Response {
		if c.err != nil {
			return nil
		}
		c.run.requests.Add(1)
		if err == nil {
			err = resp.Expect(want)
		}
		if err != nil {
			c.fail("%s: %v", what, err)
			return nil
		}
		c.run.passed.Add(1)
		return resp
	}
}

func (c *checker) check(ok bool, format string, args ...any) {
	if c.err != nil {
		return
	}
	if !ok {
		c.fail(format, args...)
		return
	}
	c.run.passed.Add(1)
}

func (c *checker) fail(format string, args ...any) {
	c.err = fmt.Errorf("%s: %s", c.name, fmt.Sprintf(format, args...))
	c.run.failed.Add(1)
}

func items(noteID string, n int) []model.Item {
	out := make([]model.Item, 0, n)
	for i := range n {
		it, err := model.NewItem(model.StringID(noteID), map[string]any{"text": fmt.Sprintf("item-%d", i), "done": false})
		if err != nil {
			panic(err)
		}
		out = append(out, it)
	}
	return out
}

// preflight checks the answers that need no state of their own.
func (r *runner) preflight(ctx context.Context) error {
	c := &checker{run: r, name: "preflight"}

	c.expect(http.StatusOK, "health")(r.client.Health(ctx))
	if c.err != nil {
		return c.err
	}

	resp := c.expect(http.StatusUnprocessableEntity, "create without title")(r.client.Create(ctx, types.CreateNote{}, ""))
	if resp != nil {
		c.check(resp.Message() == "No note title provided", "untitled create message = %q", resp.Message())
	}

	missing := uuid.NewString()
	resp = c.expect(http.StatusNotFound, "get missing")(r.client.Get(ctx, missing))
	if resp != nil {
		c.check(resp.Message() == "That note does not exist!", "get miss message = %q", resp.Message())
	}
	resp = c.expect(http.StatusNotFound, "delete missing")(r.client.Delete(ctx, missing))
	if resp != nil {
		c.check(resp.Message() == "That note does not exist, nothing was deleted", "delete miss message = %q", resp.Message())
	}
	resp = c.expect(http.StatusNotFound, "update missing")(r.client.Update(ctx, missing, types.UpdateNote{Title: "x"}))
	if resp != nil {
		c.check(resp.Message() == "That note does not exist, nothing was edited", "update miss message = %q", resp.Message())
	}
	return c.err
}

// lifecycle creates, reads, replays, updates and deletes one note.
func (r *runner) lifecycle(ctx context.Context, n int) error {
	id := uuid.NewString()
	c := &checker{run: r, name: fmt.Sprintf("note %d (%s)", n, id)}
	title := fmt.Sprintf("smoke %d", n)
	key := "smoke-" + id

	create := types.CreateNote{ID: model.StringID(id), Title: title, Items: items(id, 2)}
	if resp := c.expect(http.StatusCreated, "create")(r.client.Create(ctx, create, key)); resp != nil {
		var echo types.CreateNote
		c.check(resp.Decode(&echo) == nil && echo.ID.String() == id && echo.Title == title && len(echo.Items) == 2,
			"create echo = %s", resp.Body)
	}

	if resp := c.expect(http.StatusOK, "idempotent replay")(r.client.Create(ctx, create, key)); resp != nil {
		var echo types.CreateNote
		c.check(resp.Decode(&echo) == nil && echo.ID.String() == id, "replay echo = %s", resp.Body)
	}

	if resp := c.expect(http.StatusOK, "get")(r.client.Get(ctx, id)); resp != nil {
		var got types.NoteWithItems
		c.check(resp.Decode(&got) == nil && got.Note.Title == title && len(got.Items) == 2,
			"get after create = %s", resp.Body)
	}

	update := types.UpdateNote{Title: title + " (edited)", Items: items(id, 1)}
	if resp := c.expect(http.StatusAccepted, "update")(r.client.Update(ctx, id, update)); resp != nil {
		want := fmt.Sprintf("Note %s has been updated", id)
		c.check(resp.Message() == want, "update message = %q", resp.Message())
	}

	if resp := c.expect(http.StatusOK, "get after update")(r.client.Get(ctx, id)); resp != nil {
		var got types.NoteWithItems
		c.check(resp.Decode(&got) == nil && got.Note.Title == update.Title && len(got.Items) == 1,
			"get after update = %s", resp.Body)
	}

	if resp := c.expect(http.StatusAccepted, "delete")(r.client.Delete(ctx, id)); resp != nil {
		want := fmt.Sprintf("Note %s has been deleted successfully", id)
		c.check(resp.Message() == want, "delete message = %q", resp.Message())
	}

	c.expect(http.StatusNotFound, "get after delete")(r.client.Get(ctx, id))
	c.expect(http.StatusNotFound, "second delete")(r.client.Delete(ctx, id))
	return c.err
}
