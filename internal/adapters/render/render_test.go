package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/gisc/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func chart(name string) Chart {
	t0 := time.Date(2012, 3, 11, 0, 16, 40, 0, time.UTC)
	return Chart{
		Label: Label("Go", "alice", "o/r"),
		Name:  name,
		Curve: model.Curve{
			{At: t0, Count: 7},
			{At: t0.Add(5 * time.Second), Count: 8},
			{At: t0.Add(300 * time.Second), Count: 10},
		},
		Predicted: model.Curve{
			{At: t0, Count: 6.43},
			{At: t0.Add(5 * time.Second), Count: 6.46},
			{At: t0.Add(300 * time.Second), Count: 8.05},
		},
		Start: t0,
		End:   t0.Add(24 * time.Hour),
	}
}

func TestNaming(t *testing.T) {
	Convey("Given an actor and a repository", t, func() {
		Convey("Then labels carry the language only when filtering", func() {
			So(Label("", "alice", "o/r"), ShouldEqual, "alice --> https://github.com/o/r")
			So(Label("Go", "alice", "o/r"), ShouldEqual, "Go : alice --> https://github.com/o/r")
		})

		Convey("Then file names are sanitised", func() {
			So(FileName("", "alice", "o/r"), ShouldEqual, "alice_o-r")
			So(FileName("C++", "bob", "o/my repo"), ShouldEqual, "C++_bob_o-my-repo")
			So(FileName("Go", "a/b", "/x"), ShouldEqual, "Go_a-b_x")
		})

		Convey("Then repositories sharing a name keep their owners apart", func() {
			So(FileName("", "alice", "a/lib"), ShouldNotEqual, FileName("", "alice", "b/lib"))
		})
	})
}

func TestHTMLRenderer(t *testing.T) {
	Convey("Given an HTML renderer on a fresh directory", t, func() {
		dir := filepath.Join(t.TempDir(), "plots")
		r, err := NewHTMLRenderer(dir)
		So(err, ShouldBeNil)
		So(r.Dir(), ShouldEqual, dir)

		Convey("When a chart is rendered", func() {
			path, err := r.Render(context.Background(), chart("Go_alice_o-r"))
			So(err, ShouldBeNil)
			body, rerr := os.ReadFile(path)
			So(rerr, ShouldBeNil)

			Convey("Then the page holds every series", func() {
				So(path, ShouldEqual, filepath.Join(dir, "Go_alice_o-r.html"))
				for _, s := range []string{"Actual", "Predicted", "Impact Start", "Impact End", "alice"} {
					So(string(body), ShouldContainSubstring, s)
				}
			})

			Convey("Then Clean empties the directory", func() {
				So(Clean(dir), ShouldBeNil)
				entries, _ := os.ReadDir(dir)
				So(entries, ShouldBeEmpty)
			})
		})

		Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := r.Render(ctx, chart("x"))

			Convey("Then nothing is written", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})

	Convey("Given two same-named repositories watched by one actor", t, func() {
		dir := t.TempDir()
		r, err := NewHTMLRenderer(dir)
		So(err, ShouldBeNil)

		var paths []string
		for _, repo := range []string{"a/lib", "b/lib"} {
			c := chart(FileName("", "alice", repo))
			c.Label = Label("", "alice", repo)
			path, err := r.Render(context.Background(), c)
			So(err, ShouldBeNil)
			paths = append(paths, path)
		}

		Convey("Then each chart gets its own file", func() {
			So(paths[0], ShouldNotEqual, paths[1])
			entries, _ := os.ReadDir(dir)
			So(entries, ShouldHaveLength, 2)
		})
	})

	Convey("Given the htm format", t, func() {
		r, err := NewHTMLRenderer(t.TempDir(), WithFormat(".HTM"))
		So(err, ShouldBeNil)
		path, err := r.Render(context.Background(), chart("c"))

		Convey("Then the extension follows it", func() {
			So(err, ShouldBeNil)
			So(filepath.Ext(path), ShouldEqual, ".htm")
		})
	})

	Convey("Given an unsupported format", t, func() {
		_, err := NewHTMLRenderer(t.TempDir(), WithFormat("png"))

		Convey("Then the renderer is rejected", func() {
			So(errors.Is(err, ErrUnsupportedFormat), ShouldBeTrue)
		})
	})

	Convey("Given a path that cannot be a directory", t, func() {
		file := filepath.Join(t.TempDir(), "occupied")
		So(os.WriteFile(file, []byte("x"), 0o644), ShouldBeNil)
		r, _ := NewHTMLRenderer(file)
		_, err := r.Render(context.Background(), chart("c"))

		Convey("Then ErrRender is returned", func() {
			So(errors.Is(err, ErrRender), ShouldBeTrue)
		})
	})
}
