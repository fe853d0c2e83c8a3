package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/okian/trapperkeeper/internal/client"
	"github.com/okian/trapperkeeper/internal/domain/model"
	"github.com/okian/trapperkeeper/internal/domain/types"
)

// finish prints the response on success and turns any other status into
// an error carrying the server's message.
func finish(cmd *cobra.Command, g *globals, resp *client.Response, err error, want int) error {
	if err != nil {
		return err
	}
	if err := resp.Expect(want); err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), resp.Body, g.output, g.query)
}

func newListCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every note and item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := g.client().List(cmd.Context())
			return finish(cmd, g, resp, err, http.StatusOK)
		},
	}
}

func newGetCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a note and its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := g.client().Get(cmd.Context(), args[0])
			return finish(cmd, g, resp, err, http.StatusOK)
		},
	}
}

func newDeleteCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note and its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := g.client().Delete(cmd.Context(), args[0])
			return finish(cmd, g, resp, err, http.StatusAccepted)
		},
	}
}

func newCreateCmd(g *globals) *cobra.Command {
	var (
		id        string
		numericID bool
		title     string
		items     []string
		key       string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a note",
		Example: `  notesctl create --title Groceries --item text=milk --item text=eggs,qty=12
  notesctl create --id 7 --numeric-id --title Chores`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Items must name their note, so an id is needed up front.
			if id == "" && len(items) > 0 {
				id = uuid.NewString()
			}
			noteID, err := parseID(id, numericID)
			if err != nil {
				return err
			}
			parsed, err := parseItems(noteID, items)
			if err != nil {
				return err
			}

			req := types.CreateNote{ID: noteID, Title: title, Items: parsed}
			resp, err := g.client().Create(cmd.Context(), req, key)
			if err != nil {
				return err
			}
			return finish(cmd, g, resp, nil, successStatus(resp.Status, http.StatusCreated, http.StatusOK))
		},
	}

	f := cmd.Flags()
	f.StringVar(&id, "id", "", "Note id (generated when omitted)")
	f.BoolVar(&numericID, "numeric-id", false, "Send --id as a JSON number")
	f.StringVar(&title, "title", "", "Note title")
	f.StringArrayVar(&items, "item", nil, "Item fields as k=v[,k=v...]; repeat for more items")
	f.StringVar(&key, "idempotency-key", "", "Idempotency-Key header for safe retries")
	return cmd
}

func newUpdateCmd(g *globals) *cobra.Command {
	var (
		title string
		items []string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Retitle a note and replace its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseItems(pathID(args[0]), items)
			if err != nil {
				return err
			}
			req := types.UpdateNote{Title: title, Items: parsed}
			resp, err := g.client().Update(cmd.Context(), args[0], req)
			return finish(cmd, g, resp, err, http.StatusAccepted)
		},
	}

	f := cmd.Flags()
	f.StringVar(&title, "title", "", "New title")
	f.StringArrayVar(&items, "item", nil, "Item fields as k=v[,k=v...]; repeat for more items")
	return cmd
}

// successStatus returns got when it is one of ok, otherwise ok[0].
func successStatus(got int, ok ...int) int {
	for _, c := range ok {
		if got == c {
			return c
		}
	}
	return ok[0]
}

func parseID(raw string, numeric bool) (model.ID, error) {
	if raw == "" {
		return model.ID{}, nil
	}
	if !numeric {
		return model.StringID(raw), nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return model.ID{}, fmt.Errorf("--id %q is not a number", raw)
	}
	return model.NumberID(f), nil
}

// pathID types an update's item note ids like the path parameter: numeric
// when it parses as a number.
func pathID(raw string) model.ID {
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return model.NumberID(f)
	}
	return model.StringID(raw)
}

// parseItems turns "k=v,k=v" definitions into items linked to noteID. Values
// that are valid JSON (numbers, booleans, quoted strings) keep their type;
// anything else is sent as a string.
func parseItems(noteID model.ID, defs []string) ([]model.Item, error) {
	out := make([]model.Item, 0, len(defs))
	for _, def := range defs {
		fields := map[string]any{}
		for _, pair := range strings.Split(def, ",") {
			k, v, ok := strings.Cut(pair, "=")
			k = strings.TrimSpace(k)
			if !ok || k == "" {
				return nil, fmt.Errorf("item field %q is not k=v", pair)
			}
			var typed any
			if err := json.Unmarshal([]byte(v), &typed); err != nil {
				typed = v
			}
			fields[k] = typed
		}
		it, err := model.NewItem(noteID, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}
