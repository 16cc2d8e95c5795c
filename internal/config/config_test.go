package config

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func validRequest() *Request {
	return &Request{
		Border: BorderConfig{
			NumQueues:       2,
			NodesPerQueue:   []int{1, 1},
			ArrivalRate:     3,
			ServiceRates:    []float64{2, 2},
			QueueAssignment: "shortest",
			SafeDistance:    4,
			MaxQueueLength:  50,
		},
	}
}

func TestValidate(t *testing.T) {
	Convey("Given a well-formed request", t, func() {
		r := validRequest()

		Convey("it validates", func() {
			So(r.Validate(), ShouldBeNil)
		})

		Convey("mismatched nodes_per_queue length is rejected", func() {
			r.Border.NodesPerQueue = []int{1}
			So(r.Validate(), ShouldNotBeNil)
		})

		Convey("mismatched service_rates length is rejected", func() {
			r.Border.ServiceRates = []float64{2}
			So(r.Validate(), ShouldNotBeNil)
		})

		Convey("a non-positive service rate is rejected", func() {
			r.Border.ServiceRates = []float64{2, -1}
			So(r.Validate(), ShouldNotBeNil)
		})

		Convey("an unknown queue_assignment is rejected", func() {
			r.Border.QueueAssignment = "bogus"
			So(r.Validate(), ShouldNotBeNil)
		})

		Convey("a non-positive max_simulation_time is rejected", func() {
			r.Simulation = &SimulationConfig{MaxSimulationTime: -1, TimeFactor: 1}
			So(r.Validate(), ShouldNotBeNil)
		})

		Convey("an unknown device_orientation is rejected", func() {
			r.Phone = &PhoneConfig{SamplingRate: 1, DeviceOrientation: "upside-down"}
			So(r.Validate(), ShouldNotBeNil)
		})
	})
}

func TestFromYAML(t *testing.T) {
	Convey("Given a minimal YAML document", t, func() {
		doc := []byte(`
border_config:
  num_queues: 1
  nodes_per_queue: [1]
  arrival_rate: 2
  service_rates: [3]
  queue_assignment: random
  safe_distance: 4
  max_queue_length: 10
`)

		Convey("it decodes and validates", func() {
			req, err := FromYAML(doc)
			So(err, ShouldBeNil)
			So(req.Border.NumQueues, ShouldEqual, 1)
			So(req.Border.QueueAssignment, ShouldEqual, "random")
			So(req.Validate(), ShouldBeNil)
		})
	})
}
