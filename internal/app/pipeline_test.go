package app

import (
	"errors"
	"fmt"
	"testing"

	"github.com/okian/gisc/internal/domain/model"
	"github.com/okian/gisc/internal/domain/predict"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFitOutcome(t *testing.T) {
	Convey("Given fit failures", t, func() {
		Convey("When there is too little history", func() {
			o, err := fitOutcome(fmt.Errorf("%w: have 1 samples, need 3", predict.ErrInsufficientHistory))
			So(err, ShouldBeNil)
			So(o, ShouldEqual, model.OutcomeSkippedInsufficientHistory)
		})

		Convey("When the fit is ill-conditioned", func() {
			o, err := fitOutcome(fmt.Errorf("%w: singular", predict.ErrIllConditioned))
			So(err, ShouldBeNil)
			So(o, ShouldEqual, model.OutcomeSkippedNotEligible)
		})

		Convey("When the degree is invalid", func() {
			_, err := predict.Fit(nil, epoch, -1)
			_, ferr := fitOutcome(err)

			Convey("Then the run is aborted with the fit error", func() {
				So(errors.Is(ferr, predict.ErrInvalidDegree), ShouldBeTrue)
			})
		})
	})
}
