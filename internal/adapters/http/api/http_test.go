package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/gisc/internal/adapters/http/api"
	"github.com/okian/gisc/internal/adapters/repository"
	"github.com/okian/gisc/internal/app"
	"github.com/okian/gisc/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDeps struct {
	board  repository.Leaderboard
	report *app.Report
	topErr error
}

func (m *mockDeps) TopN(ctx context.Context, n int) ([]model.ActorRank, error) {
	if m.topErr != nil {
		return nil, m.topErr
	}
	return m.board.TopN(ctx, n)
}

func (m *mockDeps) Rank(ctx context.Context, actor string) (model.ActorRank, error) {
	return m.board.Rank(ctx, actor)
}

func (m *mockDeps) Report() (*app.Report, error) {
	if m.report == nil {
		return nil, app.ErrNoReport
	}
	return m.report, nil
}

func (m *mockDeps) Verdicts(eligibleOnly bool) ([]model.Verdict, error) {
	rep, err := m.Report()
	if err != nil {
		return nil, err
	}
	var out []model.Verdict
	for _, v := range rep.Verdicts {
		if !eligibleOnly || v.Eligible {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *mockDeps) Genuineness(actor string) (model.Genuineness, error) {
	rep, err := m.Report()
	if err != nil {
		return model.Genuineness{}, err
	}
	for _, g := range rep.Genuineness {
		if g.Actor == actor {
			return g, nil
		}
	}
	return model.Genuineness{}, fmt.Errorf("%w: %s", app.ErrActorNotAnalyzed, actor)
}

func newDeps() *mockDeps {
	board := repository.NewTreapStore()
	board.Replace(context.Background(), map[string]int{"alice": 3, "bob": 1})
	t0 := time.Date(2012, 3, 11, 0, 16, 40, 0, time.UTC)
	return &mockDeps{
		board: board,
		report: &app.Report{
			RunID: "run-1",
			Verdicts: []model.Verdict{
				{Actor: "alice", Repo: "o/r", Start: t0, End: t0.Add(24 * time.Hour), Eligible: true, Outcome: model.OutcomeRendered},
				{Actor: "bob", Repo: "x/new", Start: t0, End: t0.Add(24 * time.Hour), Outcome: model.OutcomeSkippedInsufficientHistory},
			},
			Genuineness: []model.Genuineness{{Actor: "alice", Strategy: "dispersion", Deltas: []float64{3}}},
			Outcomes:    map[model.Outcome]int{model.OutcomeRendered: 1, model.OutcomeSkippedInsufficientHistory: 1},
		},
	}
}

func serve(deps api.Dependencies, method, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	api.NewServer(deps, 10).Register(mux)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestServer(t *testing.T) {
	Convey("Given a server with a published report", t, func() {
		deps := newDeps()

		Convey("When checking health", func() {
			w := serve(deps, http.MethodGet, "/healthz")
			var body map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)

			Convey("Then it is ready with the run id", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(body["ready"], ShouldEqual, true)
				So(body["run_id"], ShouldEqual, "run-1")
			})
		})

		Convey("When scraping metrics", func() {
			serve(deps, http.MethodGet, "/healthz")
			w := serve(deps, http.MethodGet, "/metrics")

			Convey("Then the HTTP counters are exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "gisc_")
			})
		})

		Convey("When listing influencers", func() {
			w := serve(deps, http.MethodGet, "/influencers?limit=1")
			var got []model.ActorRank
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)

			Convey("Then the top entries are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(got, ShouldResemble, []model.ActorRank{{Rank: 1, Actor: "alice", Followers: 3}})
			})
		})

		Convey("When the limit is missing, invalid or too large", func() {
			So(serve(deps, http.MethodGet, "/influencers").Code, ShouldEqual, http.StatusOK)
			So(serve(deps, http.MethodGet, "/influencers?limit=zero").Code, ShouldEqual, http.StatusBadRequest)
			So(serve(deps, http.MethodGet, "/influencers?limit=0").Code, ShouldEqual, http.StatusBadRequest)
			w := serve(deps, http.MethodGet, "/influencers?limit=11")

			Convey("Then it is rejected with a code", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "limit_exceeded")
			})
		})

		Convey("When the leaderboard fails", func() {
			deps.topErr = errors.New("boom")
			w := serve(deps, http.MethodGet, "/influencers?limit=1")

			Convey("Then a server error is returned", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})

		Convey("When ranking actors", func() {
			ok := serve(deps, http.MethodGet, "/rank/bob")
			missing := serve(deps, http.MethodGet, "/rank/ghost")
			bad := serve(deps, http.MethodGet, "/rank/a/b")

			Convey("Then known actors resolve and unknown ones are 404", func() {
				So(ok.Code, ShouldEqual, http.StatusOK)
				So(ok.Body.String(), ShouldContainSubstring, `"rank":2`)
				So(missing.Code, ShouldEqual, http.StatusNotFound)
				So(bad.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When listing verdicts", func() {
			var all, eligible []model.Verdict
			So(json.Unmarshal(serve(deps, http.MethodGet, "/verdicts").Body.Bytes(), &all), ShouldBeNil)
			So(json.Unmarshal(serve(deps, http.MethodGet, "/verdicts?eligible=true").Body.Bytes(), &eligible), ShouldBeNil)

			Convey("Then the eligible filter applies", func() {
				So(all, ShouldHaveLength, 2)
				So(eligible, ShouldHaveLength, 1)
				So(eligible[0].Actor, ShouldEqual, "alice")
				So(serve(deps, http.MethodGet, "/verdicts?eligible=maybe").Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When asking for genuineness", func() {
			ok := serve(deps, http.MethodGet, "/genuineness/alice")
			missing := serve(deps, http.MethodGet, "/genuineness/bob")

			Convey("Then analysed actors resolve", func() {
				So(ok.Code, ShouldEqual, http.StatusOK)
				So(ok.Body.String(), ShouldContainSubstring, `"strategy":"dispersion"`)
				So(missing.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When reading the report summary", func() {
			w := serve(deps, http.MethodGet, "/report")

			Convey("Then outcomes are counted", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"windows":2`)
				So(w.Body.String(), ShouldContainSubstring, `"rendered":1`)
			})
		})

		Convey("When posting to a read-only route", func() {
			w := serve(deps, http.MethodPost, "/verdicts")

			Convey("Then the method is refused", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
				So(w.Header().Get("Allow"), ShouldEqual, "GET, HEAD")
			})
		})
	})

	Convey("Given a server before the first run", t, func() {
		deps := newDeps()
		deps.report = nil

		Convey("Then report routes are not ready but health is", func() {
			So(serve(deps, http.MethodGet, "/verdicts").Code, ShouldEqual, http.StatusServiceUnavailable)
			So(serve(deps, http.MethodGet, "/report").Code, ShouldEqual, http.StatusServiceUnavailable)
			w := serve(deps, http.MethodGet, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.Contains(w.Body.String(), `"ready":false`), ShouldBeTrue)
		})
	})
}
