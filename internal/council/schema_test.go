package council

import (
	"encoding/json"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestDecodePrediction(t *testing.T) {
	convey.Convey("Given model output for the prediction schema", t, func() {
		convey.Convey("A complete document decodes", func() {
			out, err := decodePrediction(json.RawMessage(`{"predictions":[{"optionId":"a","probability":0.4},{"optionId":"b","probability":0.6}],"reasoning":"r","sources":["https://x"],"confidence":0.8}`))
			convey.So(err, convey.ShouldBeNil)
			convey.So(out.Entries, convey.ShouldResemble, []optionEntry{{OptionID: "a", Probability: 0.4}, {OptionID: "b", Probability: 0.6}})
			convey.So(out.Sources, convey.ShouldResemble, []string{"https://x"})
			convey.So(out.Confidence, convey.ShouldEqual, 0.8)
		})

		rejected := []struct{ name, doc string }{
			{"missing sources", `{"predictions":[{"optionId":"a","probability":1}],"reasoning":"r","confidence":0.5}`},
			{"missing reasoning", `{"predictions":[{"optionId":"a","probability":1}],"sources":[],"confidence":0.5}`},
			{"extra top-level field", `{"predictions":[{"optionId":"a","probability":1}],"reasoning":"r","sources":[],"confidence":0.5,"bogus":1}`},
			{"extra entry field", `{"predictions":[{"optionId":"a","probability":1,"extra":true}],"reasoning":"r","sources":[],"confidence":0.5}`},
			{"entry without optionId", `{"predictions":[{"probability":1}],"reasoning":"r","sources":[],"confidence":0.5}`},
			{"confidence above one", `{"predictions":[{"optionId":"a","probability":1}],"reasoning":"r","sources":[],"confidence":1.5}`},
			{"negative confidence", `{"predictions":[{"optionId":"a","probability":1}],"reasoning":"r","sources":[],"confidence":-0.1}`},
			{"negative probability", `{"predictions":[{"optionId":"a","probability":-1}],"reasoning":"r","sources":[],"confidence":0.5}`},
			{"string probability", `{"predictions":[{"optionId":"a","probability":"high"}],"reasoning":"r","sources":[],"confidence":0.5}`},
		}
		for _, tc := range rejected {
			convey.Convey("A document with "+tc.name+" is rejected", func() {
				_, err := decodePrediction(json.RawMessage(tc.doc))
				convey.So(err, convey.ShouldNotBeNil)
			})
		}
	})
}
