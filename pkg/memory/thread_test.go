package memory

import (
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestThreadBufferBound(t *testing.T) {
	Convey("Given a thread buffer with a window of 5", t, func() {
		buffer := NewThreadBuffer(5)

		Convey("When more entries than the window are appended", func() {
			for i := 0; i < 23; i++ {
				buffer.Append("s1", RoleUser, fmt.Sprintf("message %d", i))
			}

			Convey("Then the buffer never exceeds the window", func() {
				So(buffer.Len("s1"), ShouldEqual, 5)
			})

			Convey("Then the oldest entries are evicted first", func() {
				recent := buffer.Recent("s1")
				So(recent[0].Content, ShouldEqual, "message 18")
				So(recent[len(recent)-1].Content, ShouldEqual, "message 22")
			})
		})
	})
}

func TestThreadBufferSessionScoping(t *testing.T) {
	Convey("Given a buffer shared by two sessions", t, func() {
		buffer := NewThreadBuffer(10)
		buffer.Append("s1", RoleUser, "hello from s1")
		buffer.Append("s2", RoleUser, "hello from s2")

		Convey("Then each session only sees its own entries", func() {
			So(buffer.Len("s1"), ShouldEqual, 1)
			So(buffer.Recent("s1")[0].Content, ShouldEqual, "hello from s1")
			So(buffer.Recent("s2")[0].Content, ShouldEqual, "hello from s2")
		})

		Convey("When an unknown session is read", func() {
			Convey("Then it yields an empty history, not an error", func() {
				So(buffer.Recent("missing"), ShouldBeEmpty)
			})
		})

		Convey("When a session is dropped", func() {
			buffer.Drop("s1")

			Convey("Then only that session's history is gone", func() {
				So(buffer.Len("s1"), ShouldEqual, 0)
				So(buffer.Len("s2"), ShouldEqual, 1)
			})
		})
	})
}

func TestThreadBufferRecentIsACopy(t *testing.T) {
	Convey("Given a buffer with one entry", t, func() {
		buffer := NewThreadBuffer(10)
		buffer.Append("s1", RoleAssistant, "original")

		Convey("When the returned slice is mutated", func() {
			recent := buffer.Recent("s1")
			recent[0].Content = "tampered"

			Convey("Then the buffer's state is unchanged", func() {
				So(buffer.Recent("s1")[0].Content, ShouldEqual, "original")
			})
		})
	})
}
