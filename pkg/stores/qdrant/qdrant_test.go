package qdrant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/ybryxcapital/agentcore/pkg/memory"
)

func TestClientStoreRecord(t *testing.T) {
	Convey("Given a qdrant client and a test server", t, func() {
		var captured map[string]any

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&captured)
			fmt.Fprint(w, `{"result":{"status":"acknowledged"},"status":"ok"}`)
		}))
		defer ts.Close()

		client := New(ts.URL, "agent_memory")

		Convey("When a record without an id is stored", func() {
			id, err := client.StoreRecord(context.Background(), memory.Record{
				Namespace: "ybryx:financing:user:u1",
				SessionID: "s1",
				Content:   "approved at score 82",
				Embedding: []float32{0.1, 0.2},
				Kind:      memory.KindEpisodic,
			})

			Convey("Then an id is generated and returned", func() {
				So(err, ShouldBeNil)
				So(id, ShouldNotBeEmpty)
			})

			Convey("Then the upsert payload carries the namespace", func() {
				points := captured["points"].([]any)
				So(points, ShouldHaveLength, 1)
				payload := points[0].(map[string]any)["payload"].(map[string]any)
				So(payload["namespace"], ShouldEqual, "ybryx:financing:user:u1")
				So(payload["session_id"], ShouldEqual, "s1")
				So(payload["kind"], ShouldEqual, "episodic")
			})
		})
	})
}

func TestClientSearchSimilar(t *testing.T) {
	Convey("Given a qdrant client and a test server for search", t, func() {
		var captured map[string]any

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&captured)
			fmt.Fprint(w, `{"result":[
				{"id":"1","score":0.8,"payload":{"namespace":"ybryx:financing:user:u1","content":"a","kind":"episodic","created_at":1735689600}},
				{"id":"2","score":0.4,"payload":{"namespace":"ybryx:financing:user:u1","content":"b","kind":"long_term","created_at":1735689600}}
			]}`)
		}))
		defer ts.Close()

		client := New(ts.URL, "agent_memory")

		Convey("When a namespaced search runs", func() {
			records, err := client.SearchSimilar(context.Background(), memory.VectorQuery{
				Namespace: "ybryx:financing:user:u1",
				Embedding: []float32{0.1, 0.2},
				Tags:      []string{"prequalification"},
				Limit:     6,
			})

			Convey("Then results are parsed with scores rescaled to [0,1]", func() {
				So(err, ShouldBeNil)
				So(records, ShouldHaveLength, 2)
				So(records[0].ID, ShouldEqual, "1")
				So(records[0].Content, ShouldEqual, "a")
				So(records[0].Similarity, ShouldAlmostEqual, 0.9)
				So(records[1].Similarity, ShouldAlmostEqual, 0.7)
				So(records[0].CreatedAt.IsZero(), ShouldBeFalse)
			})

			Convey("Then the request filter pins the namespace and tags", func() {
				filter := captured["filter"].(map[string]any)
				must := filter["must"].([]any)
				So(must, ShouldHaveLength, 2)
				first := must[0].(map[string]any)
				So(first["key"], ShouldEqual, "namespace")
			})
		})
	})

	Convey("Given a server returning an error status", t, func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "collection not found", http.StatusNotFound)
		}))
		defer ts.Close()

		client := New(ts.URL, "missing")

		Convey("Then search surfaces the failure", func() {
			_, err := client.SearchSimilar(context.Background(), memory.VectorQuery{Namespace: "n", Limit: 1})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestClientDeleteOlderThan(t *testing.T) {
	Convey("Given a qdrant client counting before deleting", t, func() {
		var paths []string

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.URL.Path)
			if r.URL.Path == "/collections/agent_memory/points/count" {
				fmt.Fprint(w, `{"result":{"count":3}}`)
				return
			}
			fmt.Fprint(w, `{"result":{"status":"acknowledged"}}`)
		}))
		defer ts.Close()

		client := New(ts.URL, "agent_memory")

		Convey("When records older than the cutoff are purged", func() {
			deleted, err := client.DeleteOlderThan(context.Background(), "ybryx:financing:user:u1", time.Now(), "")

			Convey("Then the reported count matches the pre-delete count", func() {
				So(err, ShouldBeNil)
				So(deleted, ShouldEqual, 3)
				So(paths, ShouldHaveLength, 2)
				So(paths[1], ShouldEqual, "/collections/agent_memory/points/delete")
			})
		})
	})

	Convey("Given a namespace with nothing old enough", t, func() {
		var deletes int

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/collections/agent_memory/points/delete" {
				deletes++
			}
			fmt.Fprint(w, `{"result":{"count":0}}`)
		}))
		defer ts.Close()

		client := New(ts.URL, "agent_memory")

		Convey("Then no delete request is issued at all", func() {
			deleted, err := client.DeleteOlderThan(context.Background(), "ybryx:financing:user:u1", time.Now(), memory.KindLongTerm)
			So(err, ShouldBeNil)
			So(deleted, ShouldEqual, 0)
			So(deletes, ShouldEqual, 0)
		})
	})
}
