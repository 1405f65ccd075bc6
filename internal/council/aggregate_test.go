package council

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/alanyoungcy/oracles/internal/domain"
)

func sum(m map[string]float64) float64 {
	var s float64
	for _, v := range m {
		s += v
	}
	return s
}

func TestNormalize(t *testing.T) {
	convey.Convey("Given raw option weights", t, func() {
		convey.Convey("When they do not sum to one", func() {
			out := Normalize(map[string]float64{"a": 2, "b": 6})

			convey.Convey("Then they are scaled proportionally", func() {
				convey.So(out["a"], convey.ShouldAlmostEqual, 0.25, 1e-9)
				convey.So(out["b"], convey.ShouldAlmostEqual, 0.75, 1e-9)
				convey.So(sum(out), convey.ShouldAlmostEqual, 1.0, 1e-9)
			})
		})

		convey.Convey("When every weight is zero", func() {
			out := Normalize(map[string]float64{"a": 0, "b": 0, "c": 0, "d": 0})

			convey.Convey("Then the result is uniform", func() {
				for _, v := range out {
					convey.So(v, convey.ShouldAlmostEqual, 0.25, 1e-9)
				}
				convey.So(len(out), convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When the input is empty", func() {
			convey.So(Normalize(nil), convey.ShouldBeEmpty)
		})

		convey.Convey("When the weights already sum to one", func() {
			in := map[string]float64{"yes": 0.7, "no": 0.3}
			out := Normalize(in)

			convey.Convey("Then normalizing is idempotent", func() {
				convey.So(out["yes"], convey.ShouldAlmostEqual, 0.7, 1e-9)
				convey.So(Normalize(out)["no"], convey.ShouldAlmostEqual, 0.3, 1e-9)
			})
		})
	})
}

func TestAggregate(t *testing.T) {
	convey.Convey("Given agent forecasts", t, func() {
		convey.Convey("When every agent covers the same options", func() {
			out := Aggregate([]domain.AgentPrediction{
				{Predictions: map[string]float64{"yes": 0.8, "no": 0.2}},
				{Predictions: map[string]float64{"yes": 0.6, "no": 0.4}},
			})

			convey.Convey("Then each option is the arithmetic mean", func() {
				convey.So(out["yes"], convey.ShouldAlmostEqual, 0.7, 1e-9)
				convey.So(out["no"], convey.ShouldAlmostEqual, 0.3, 1e-9)
			})
		})

		convey.Convey("When agents cover different options", func() {
			out := Aggregate([]domain.AgentPrediction{
				{Predictions: map[string]float64{"a": 0.6, "b": 0.4}},
				{Predictions: map[string]float64{"a": 0.2, "c": 0.8}},
			})

			convey.Convey("Then options are averaged over the agents that mention them and renormalized", func() {
				convey.So(len(out), convey.ShouldEqual, 3)
				convey.So(out["a"], convey.ShouldAlmostEqual, 0.25, 1e-9)
				convey.So(out["b"], convey.ShouldAlmostEqual, 0.25, 1e-9)
				convey.So(out["c"], convey.ShouldAlmostEqual, 0.5, 1e-9)
				convey.So(sum(out), convey.ShouldAlmostEqual, 1.0, 1e-9)
			})
		})

		convey.Convey("When there is a single agent", func() {
			in := map[string]float64{"x": 0.1, "y": 0.9}
			out := Aggregate([]domain.AgentPrediction{{Predictions: in}})

			convey.Convey("Then its forecast passes through", func() {
				convey.So(out["x"], convey.ShouldAlmostEqual, 0.1, 1e-9)
				convey.So(out["y"], convey.ShouldAlmostEqual, 0.9, 1e-9)
			})
		})

		convey.Convey("When there are no agents", func() {
			convey.So(Aggregate(nil), convey.ShouldBeEmpty)
		})
	})
}
