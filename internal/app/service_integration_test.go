package service_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/okian/trapperkeeper/internal/adapters/http/feed"
	service "github.com/okian/trapperkeeper/internal/app"
	"github.com/okian/trapperkeeper/internal/domain/model"
	"github.com/okian/trapperkeeper/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceIntegration_Feed(t *testing.T) {
	Convey("Given a started service with a feed subscriber", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		svc := service.New(service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(feed.Handler(svc.Hub(), nil))
		defer srv.Close()

		conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
		So(err, ShouldBeNil)
		defer conn.CloseNow()

		deadline := time.Now().Add(time.Second)
		for svc.Hub().ClientCount() == 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		So(svc.Hub().ClientCount(), ShouldEqual, 1)

		Convey("When a note goes through create, update and delete", func() {
			_, err := svc.Create(ctx, types.CreateNote{ID: model.StringID("n1"), Title: "First"})
			So(err, ShouldBeNil)
			So(svc.Update(ctx, "n1", types.UpdateNote{Title: "Second"}), ShouldBeNil)
			So(svc.Delete(ctx, "n1"), ShouldBeNil)

			Convey("Then the subscriber sees one event per mutation", func() {
				kinds := map[string]bool{}
				for i := 0; i < 3; i++ {
					_, data, err := conn.Read(ctx)
					So(err, ShouldBeNil)

					var e struct {
						EventID string `json:"event_id"`
						Type    string `json:"type"`
						NoteID  string `json:"note_id"`
					}
					So(json.Unmarshal(data, &e), ShouldBeNil)
					So(e.EventID, ShouldNotBeEmpty)
					So(e.NoteID, ShouldEqual, "n1")
					kinds[e.Type] = true
				}
				So(kinds, ShouldResemble, map[string]bool{
					"note_created": true,
					"note_updated": true,
					"note_deleted": true,
				})
			})
		})
	})
}
