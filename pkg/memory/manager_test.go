package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/ybryxcapital/agentcore/pkg/errors"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Retry = &errors.RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      4 * time.Millisecond,
		BackoffFactor: 2.0,
	}
	return cfg
}

func testManager(gateway Gateway, vector VectorStore) *Manager {
	ns := Namespace{Tenant: "ybryx", Agent: "financing"}
	manager, err := NewManager(ns, gateway, vector, NewMockEmbedder(), fastConfig())
	if err != nil {
		panic(err)
	}
	return manager
}

func validEnvelope(sessionID string) Envelope {
	return Envelope{
		Timestamp: "2025-01-01T00:00:00Z",
		Agent:     "financing",
		SessionID: sessionID,
		Type:      "analysis",
		Content:   map[string]any{"score": 75},
	}
}

func TestWriteMemoryDualWrite(t *testing.T) {
	Convey("Given a manager with both stores healthy", t, func() {
		gateway := NewMockGateway()
		vector := NewMockVectorStore()
		manager := testManager(gateway, vector)
		ctx := context.Background()

		Convey("When a valid envelope is written", func() {
			receipt, err := manager.WriteMemory(ctx, "u1", "s1", validEnvelope("s1"), KindEpisodic, []string{"prequalification"})

			Convey("Then both stores hold the record", func() {
				So(err, ShouldBeNil)
				So(receipt.Outcome, ShouldEqual, WriteFull)
				So(receipt.RelationalID, ShouldNotBeEmpty)
				So(receipt.VectorID, ShouldNotBeEmpty)
				So(gateway.MemoryLogCount(), ShouldEqual, 1)
				So(vector.Len(), ShouldEqual, 1)
			})

			Convey("Then the thread buffer recorded the turn", func() {
				So(manager.RecentThread("s1"), ShouldHaveLength, 1)
			})

			Convey("And a subsequent recall surfaces it in the top results", func() {
				recalled := manager.RecallMemory(ctx, "u1", "financing analysis", "s1", nil, 6)
				So(recalled, ShouldHaveLength, 1)
				So(recalled[0].ID, ShouldEqual, receipt.VectorID)
			})
		})

		Convey("When the payload envelope is malformed", func() {
			bad := validEnvelope("s1")
			bad.Timestamp = "not-a-timestamp"
			receipt, err := manager.WriteMemory(ctx, "u1", "s1", bad, KindLongTerm, nil)

			Convey("Then the write is rejected before any store is touched", func() {
				So(err, ShouldNotBeNil)
				So(errors.IsValidation(err), ShouldBeTrue)
				So(receipt.Outcome, ShouldEqual, WriteFailed)
				So(gateway.MemoryLogCount(), ShouldEqual, 0)
				So(vector.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestWriteMemoryDegradation(t *testing.T) {
	Convey("Given a manager whose vector store is down", t, func() {
		gateway := NewMockGateway()
		vector := NewMockVectorStore()
		vector.StoreErr = fmt.Errorf("connection refused")
		manager := testManager(gateway, vector)
		ctx := context.Background()

		Convey("When a valid envelope is written", func() {
			receipt, err := manager.WriteMemory(ctx, "u1", "s1", validEnvelope("s1"), KindLongTerm, nil)

			Convey("Then the relational write still succeeds", func() {
				So(err, ShouldBeNil)
				So(receipt.Outcome, ShouldEqual, WriteRelationalOnly)
				So(receipt.RelationalID, ShouldNotBeEmpty)
				So(receipt.VectorID, ShouldBeEmpty)
			})

			Convey("Then the degradation is audited, not silently dropped", func() {
				var degraded bool
				for _, event := range gateway.AuditTrail() {
					if event.Operation == "write_degraded" {
						degraded = true
					}
				}
				So(degraded, ShouldBeTrue)
			})
		})
	})

	Convey("Given a manager whose relational gateway is down", t, func() {
		gateway := NewMockGateway()
		gateway.InsertErr = fmt.Errorf("connection refused")
		manager := testManager(gateway, NewMockVectorStore())

		Convey("When a valid envelope is written", func() {
			receipt, err := manager.WriteMemory(context.Background(), "u1", "s1", validEnvelope("s1"), KindLongTerm, nil)

			Convey("Then the failure surfaces to the caller", func() {
				So(err, ShouldNotBeNil)
				So(receipt.Outcome, ShouldEqual, WriteFailed)
			})
		})
	})
}

func TestNamespaceIsolation(t *testing.T) {
	Convey("Given two managers over the same stores but different namespaces", t, func() {
		gateway := NewMockGateway()
		vector := NewMockVectorStore()
		embedder := NewMockEmbedder()

		managerA, err := NewManager(Namespace{Tenant: "ybryx", Agent: "financing"}, gateway, vector, embedder, fastConfig())
		So(err, ShouldBeNil)
		managerB, err := NewManager(Namespace{Tenant: "ybryx", Agent: "knowledge"}, gateway, vector, embedder, fastConfig())
		So(err, ShouldBeNil)

		ctx := context.Background()

		Convey("When namespace A writes a memory", func() {
			_, err := managerA.WriteMemory(ctx, "u1", "s1", validEnvelope("s1"), KindEpisodic, nil)
			So(err, ShouldBeNil)

			Convey("Then a recall scoped to namespace B never sees it", func() {
				So(managerB.RecallMemory(ctx, "u1", "financing analysis", "", nil, 6), ShouldBeEmpty)
			})

			Convey("Then a recall under a different user never sees it either", func() {
				So(managerA.RecallMemory(ctx, "u2", "financing analysis", "", nil, 6), ShouldBeEmpty)
			})

			Convey("Then the owning namespace still recalls it", func() {
				So(managerA.RecallMemory(ctx, "u1", "financing analysis", "", nil, 6), ShouldHaveLength, 1)
			})
		})
	})
}

func TestRecallDegradesToEmpty(t *testing.T) {
	Convey("Given a manager with no vector store configured", t, func() {
		manager, err := NewManager(Namespace{Tenant: "ybryx", Agent: "sales"}, NewMockGateway(), nil, nil, fastConfig())
		So(err, ShouldBeNil)

		Convey("Then recall returns an empty slice, not an error", func() {
			So(manager.RecallMemory(context.Background(), "u1", "anything", "", nil, 6), ShouldBeEmpty)
		})
	})

	Convey("Given a manager whose vector search fails", t, func() {
		gateway := NewMockGateway()
		vector := NewMockVectorStore()
		vector.SearchErr = fmt.Errorf("timeout")
		manager := testManager(gateway, vector)

		Convey("Then recall degrades to empty and audits the failure", func() {
			So(manager.RecallMemory(context.Background(), "u1", "anything", "", nil, 6), ShouldBeEmpty)

			var degraded bool
			for _, event := range gateway.AuditTrail() {
				if event.Operation == "degraded_read" {
					degraded = true
				}
			}
			So(degraded, ShouldBeTrue)
		})
	})
}

func TestLoadContextDegradation(t *testing.T) {
	Convey("Given a manager whose goal reads fail", t, func() {
		gateway := NewMockGateway()
		gateway.GoalsErr = fmt.Errorf("connection reset")
		manager := testManager(gateway, NewMockVectorStore())
		manager.AppendThread("s1", RoleUser, "how do I lease a picker robot")

		Convey("When context is loaded", func() {
			loaded := manager.LoadContext(context.Background(), "u1", "s1", LoadOptions{
				IncludeGoals:   true,
				IncludeBeliefs: true,
			})

			Convey("Then the call succeeds with empty goals", func() {
				So(loaded.Goals, ShouldBeEmpty)
				So(loaded.Beliefs, ShouldBeEmpty)
				So(loaded.RecentMessages, ShouldHaveLength, 1)
			})
		})
	})

	Convey("Given seeded goals and beliefs", t, func() {
		gateway := NewMockGateway()
		gateway.AddGoal(Goal{ID: "g1", UserID: "u1", SessionID: "s1", Description: "prequalify", Status: "active"})
		gateway.AddBelief(Belief{ID: "b1", UserID: "u1", SessionID: "s1", Statement: "runs a warehouse", Confidence: 0.8})
		manager := testManager(gateway, NewMockVectorStore())

		Convey("When context is loaded with goals and beliefs", func() {
			loaded := manager.LoadContext(context.Background(), "u1", "s1", LoadOptions{
				IncludeGoals:   true,
				IncludeBeliefs: true,
			})

			Convey("Then both are present in the aggregate", func() {
				So(loaded.Goals, ShouldHaveLength, 1)
				So(loaded.Beliefs, ShouldHaveLength, 1)
			})
		})
	})
}

func TestDecayIdempotence(t *testing.T) {
	Convey("Given a manager holding old and fresh records", t, func() {
		gateway := NewMockGateway()
		vector := NewMockVectorStore()
		manager := testManager(gateway, vector)
		ctx := context.Background()

		old := time.Now().UTC().AddDate(0, 0, -60)
		_, err := gateway.InsertMemoryLog(ctx, MemoryLog{ID: "old", UserID: "u1", SessionID: "s1", Kind: KindLongTerm, Content: "stale", CreatedAt: old})
		So(err, ShouldBeNil)
		_, err = vector.StoreRecord(ctx, Record{ID: "old-vec", Namespace: manager.Namespace().UserKey("u1"), Kind: KindLongTerm, Content: "stale", CreatedAt: old})
		So(err, ShouldBeNil)

		_, err = manager.WriteMemory(ctx, "u1", "s1", validEnvelope("s1"), KindLongTerm, nil)
		So(err, ShouldBeNil)

		Convey("When decay runs with a 30 day threshold", func() {
			first, err := manager.DecayMemory(ctx, "u1", 30, "")
			So(err, ShouldBeNil)

			Convey("Then only the old records are removed", func() {
				So(first.RelationalDeleted, ShouldEqual, 1)
				So(first.VectorDeleted, ShouldEqual, 1)
				So(gateway.MemoryLogCount(), ShouldEqual, 1)
			})

			Convey("And a second pass with no new writes deletes nothing", func() {
				second, err := manager.DecayMemory(ctx, "u1", 30, "")
				So(err, ShouldBeNil)
				So(second.RelationalDeleted, ShouldEqual, 0)
				So(second.VectorDeleted, ShouldEqual, 0)
			})
		})
	})
}

func TestReinforcementInfluencesRecall(t *testing.T) {
	Convey("Given two equally similar records", t, func() {
		gateway := NewMockGateway()
		vector := NewMockVectorStore()
		manager := testManager(gateway, vector)
		ctx := context.Background()

		now := time.Now().UTC()
		embedder := NewMockEmbedder()
		embedding, err := embedder.Embed(ctx, "warehouse automation")
		So(err, ShouldBeNil)

		ns := manager.Namespace().UserKey("u1")
		_, err = vector.StoreRecord(ctx, Record{ID: "plain", Namespace: ns, Content: "warehouse automation", Embedding: embedding, CreatedAt: now})
		So(err, ShouldBeNil)
		_, err = vector.StoreRecord(ctx, Record{ID: "boosted", Namespace: ns, Content: "warehouse automation", Embedding: embedding, CreatedAt: now})
		So(err, ShouldBeNil)

		Convey("When one record is reinforced", func() {
			So(manager.Reinforce(ctx, "boosted", 0.9), ShouldBeNil)

			Convey("Then the reinforced record ranks first at recall", func() {
				recalled := manager.RecallMemory(ctx, "u1", "warehouse automation", "", nil, 6)
				So(recalled, ShouldHaveLength, 2)
				So(recalled[0].ID, ShouldEqual, "boosted")
			})
		})

		Convey("When a delta beyond the clamp is applied", func() {
			So(manager.Reinforce(ctx, "boosted", 7.5), ShouldBeNil)

			Convey("Then the stored delta is clamped to +1", func() {
				sums, err := gateway.ReinforcementSums(ctx, []string{"boosted"})
				So(err, ShouldBeNil)
				So(sums["boosted"], ShouldEqual, 1.0)
			})
		})
	})
}

func TestSessionLifecycle(t *testing.T) {
	Convey("Given a manager", t, func() {
		gateway := NewMockGateway()
		manager := testManager(gateway, nil)
		ctx := context.Background()

		Convey("When a session is created and closed", func() {
			sessionID, err := manager.CreateSession(ctx, "u1", "financing")
			So(err, ShouldBeNil)
			So(sessionID, ShouldNotBeEmpty)

			manager.AppendThread(sessionID, RoleUser, "hello")

			So(manager.CloseSession(ctx, sessionID, SessionCompleted), ShouldBeNil)

			Convey("Then the session row is finalized", func() {
				session, err := gateway.GetSession(ctx, sessionID)
				So(err, ShouldBeNil)
				So(session.Status, ShouldEqual, SessionCompleted)
				So(session.EndedAt, ShouldNotBeNil)
			})

			Convey("Then the thread buffer for the session is dropped", func() {
				So(manager.RecentThread(sessionID), ShouldBeEmpty)
			})

			Convey("Then opening and closing audit events were stamped", func() {
				operations := make(map[string]bool)
				for _, event := range gateway.AuditTrail() {
					operations[event.Operation] = true
				}
				So(operations["session_started"], ShouldBeTrue)
				So(operations["session_closed"], ShouldBeTrue)
			})
		})
	})
}
