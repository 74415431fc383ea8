package significance_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/gisc/internal/domain/model"
	"github.com/okian/gisc/internal/domain/significance"
	. "github.com/smartystreets/goconvey/convey"
)

func series(counts ...float64) model.Curve {
	c := make(model.Curve, len(counts))
	for i, v := range counts {
		c[i] = model.Sample{At: time.Unix(int64(1000+i), 0).UTC(), Count: v}
	}
	return c
}

func TestMaxAbs(t *testing.T) {
	Convey("Given an observed curve above its prediction", t, func() {
		observed := series(7, 8, 9, 10)
		predicted := series(7.18, 7.29, 7.40, 13.82)

		Convey("When the threshold is 1.5", func() {
			test, err := significance.New(significance.MaxAbs, 1.5)
			So(err, ShouldBeNil)
			res, err := test.Evaluate(observed, predicted, 7)

			Convey("Then the largest gap makes it eligible", func() {
				So(err, ShouldBeNil)
				So(res.MaxDeviation, ShouldAlmostEqual, 3.82, 1e-9)
				So(res.Eligible, ShouldBeTrue)
			})
		})

		Convey("When the threshold is 10", func() {
			test, _ := significance.New("", 10)
			res, _ := test.Evaluate(observed, predicted, 7)

			Convey("Then it is not eligible", func() {
				So(test.Name(), ShouldEqual, significance.MaxAbs)
				So(res.Eligible, ShouldBeFalse)
			})
		})

		Convey("When the deviation equals the threshold", func() {
			test, _ := significance.New(significance.MaxAbs, 2)
			res, _ := test.Evaluate(series(0, 2), series(0, 0), 0)

			Convey("Then the comparison is strict", func() {
				So(res.Eligible, ShouldBeFalse)
			})
		})
	})
}

func TestRelative(t *testing.T) {
	Convey("Given a gap of 30 watchers", t, func() {
		test, err := significance.New(significance.Relative, 0.5)
		So(err, ShouldBeNil)

		Convey("When the baseline is 100", func() {
			res, _ := test.Evaluate(series(100, 130), series(100, 100), 100)
			So(res.Score, ShouldAlmostEqual, 0.3, 1e-9)
			So(res.Eligible, ShouldBeFalse)
		})

		Convey("When the baseline is 0", func() {
			res, _ := test.Evaluate(series(0, 30), series(0, 0), 0)
			So(res.Score, ShouldEqual, 30)
			So(res.Eligible, ShouldBeTrue)
		})
	})
}

func TestNet(t *testing.T) {
	Convey("Given residuals that cancel out", t, func() {
		test, err := significance.New(significance.Net, 10)
		So(err, ShouldBeNil)
		res, err := test.Evaluate(series(0, 20, 0), series(10, 10, 10), 0)

		Convey("Then the net sum is small despite a large max gap", func() {
			So(err, ShouldBeNil)
			So(res.MaxDeviation, ShouldEqual, 10)
			So(res.Score, ShouldEqual, 10)
			So(res.Eligible, ShouldBeFalse)
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given malformed inputs", t, func() {
		_, err := significance.MaxDeviation(series(1, 2), series(1))
		So(errors.Is(err, significance.ErrLengthMismatch), ShouldBeTrue)

		_, err = significance.MaxDeviation(nil, nil)
		So(errors.Is(err, significance.ErrNoSamples), ShouldBeTrue)

		_, err = significance.New("pvalue", 1)
		So(errors.Is(err, significance.ErrUnknownStrategy), ShouldBeTrue)
	})
}
