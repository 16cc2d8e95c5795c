// Package config loads and validates the border/simulation/phone config
// structs of spec.md §6, following the teacher's reinforcement.FromYaml
// viper+yaml.v3 loading pattern but closing the config surface into
// enumerated variants per spec.md §9's "re-express as a closed struct"
// design note.
package config

import (
	"bytes"
	"fmt"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// BorderConfig mirrors spec.md §6's border_config.
type BorderConfig struct {
	NumQueues       int       `yaml:"num_queues" json:"num_queues"`
	NodesPerQueue   []int     `yaml:"nodes_per_queue" json:"nodes_per_queue"`
	ArrivalRate     float64   `yaml:"arrival_rate" json:"arrival_rate"`
	ServiceRates    []float64 `yaml:"service_rates" json:"service_rates"`
	QueueAssignment string    `yaml:"queue_assignment" json:"queue_assignment"`
	SafeDistance    float64   `yaml:"safe_distance" json:"safe_distance"`
	MaxQueueLength  int       `yaml:"max_queue_length" json:"max_queue_length"`
}

// SimulationConfig mirrors spec.md §6's simulation_config.
type SimulationConfig struct {
	MaxSimulationTime      float64 `yaml:"max_simulation_time" json:"max_simulation_time"`
	TimeFactor             float64 `yaml:"time_factor" json:"time_factor"`
	EnableTelemetry        bool    `yaml:"enable_telemetry" json:"enable_telemetry"`
	EnablePositionTracking bool    `yaml:"enable_position_tracking" json:"enable_position_tracking"`
}

// GPSNoise is the horizontal/vertical accuracy pair nested in phone_config.
type GPSNoise struct {
	HorizontalAccuracy float64 `yaml:"horizontal_accuracy" json:"horizontal_accuracy"`
	VerticalAccuracy   float64 `yaml:"vertical_accuracy" json:"vertical_accuracy"`
}

// PhoneConfig mirrors spec.md §6's phone_config.
type PhoneConfig struct {
	SamplingRate       float64  `yaml:"sampling_rate" json:"sampling_rate"`
	GPSNoise           GPSNoise `yaml:"gps_noise" json:"gps_noise"`
	AccelerometerNoise float64  `yaml:"accelerometer_noise" json:"accelerometer_noise"`
	GyroNoise          float64  `yaml:"gyro_noise" json:"gyro_noise"`
	DeviceOrientation  string   `yaml:"device_orientation" json:"device_orientation"`
}

// Request is the full decoded body of POST /simulate.
type Request struct {
	Border     BorderConfig      `yaml:"border_config" json:"border_config"`
	Simulation *SimulationConfig `yaml:"simulation_config,omitempty" json:"simulation_config,omitempty"`
	Phone      *PhoneConfig      `yaml:"phone_config,omitempty" json:"phone_config,omitempty"`
}

// DefaultSimulationConfig fills in simulation_config when the request
// omits it.
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		MaxSimulationTime:      3600,
		TimeFactor:             1.0,
		EnableTelemetry:        true,
		EnablePositionTracking: true,
	}
}

// DefaultPhoneConfig fills in phone_config when the request omits it.
func DefaultPhoneConfig() PhoneConfig {
	return PhoneConfig{
		SamplingRate:       1.0,
		GPSNoise:           GPSNoise{HorizontalAccuracy: 5.0, VerticalAccuracy: 8.0},
		AccelerometerNoise: 0.05,
		GyroNoise:          0.01,
		DeviceOrientation:  "portrait",
	}
}

// FromYAML decodes a YAML document the same way reinforcement.FromYaml did
// in the teacher repo: viper for the read/decode plumbing, yaml.v3 for the
// actual unmarshal, so strict-mode field errors surface.
func FromYAML(data []byte) (*Request, error) {
	vp := viper.New()
	vp.SetConfigType("yaml")
	if err := vp.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	// Re-marshal through yaml.v3 (rather than viper's own mapstructure
	// decode) to keep one strict unmarshal path shared with the JSON
	// request body case in internal/httpapi.
	raw, err := yaml.Marshal(vp.AllSettings())
	if err != nil {
		return nil, fmt.Errorf("config: remarshal: %w", err)
	}

	req := &Request{}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(req); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return req, nil
}

// Validate enforces spec.md §6's constraints and §7's "Validation" error
// kind, rejecting the request before any simulation is created.
func (r *Request) Validate() error {
	b := r.Border
	if b.NumQueues <= 0 {
		return fmt.Errorf("border_config: num_queues must be positive")
	}
	if len(b.NodesPerQueue) != b.NumQueues {
		return fmt.Errorf("border_config: len(nodes_per_queue)=%d must equal num_queues=%d", len(b.NodesPerQueue), b.NumQueues)
	}
	totalNodes := 0
	for _, n := range b.NodesPerQueue {
		if n <= 0 {
			return fmt.Errorf("border_config: nodes_per_queue entries must be positive")
		}
		totalNodes += n
	}
	if len(b.ServiceRates) != totalNodes {
		return fmt.Errorf("border_config: len(service_rates)=%d must equal sum(nodes_per_queue)=%d", len(b.ServiceRates), totalNodes)
	}
	for _, rate := range b.ServiceRates {
		if rate <= 0 {
			return fmt.Errorf("border_config: service_rates entries must be > 0")
		}
	}
	if b.ArrivalRate <= 0 {
		return fmt.Errorf("border_config: arrival_rate must be > 0")
	}
	if b.SafeDistance <= 0 {
		return fmt.Errorf("border_config: safe_distance must be > 0")
	}
	if b.MaxQueueLength <= 0 {
		return fmt.Errorf("border_config: max_queue_length must be > 0")
	}
	switch b.QueueAssignment {
	case "random", "shortest", "round_robin":
	default:
		return fmt.Errorf("border_config: unknown queue_assignment %q", b.QueueAssignment)
	}

	if r.Simulation != nil {
		if r.Simulation.MaxSimulationTime <= 0 {
			return fmt.Errorf("simulation_config: max_simulation_time must be > 0")
		}
		if r.Simulation.TimeFactor <= 0 {
			return fmt.Errorf("simulation_config: time_factor must be > 0")
		}
	}

	if r.Phone != nil {
		if r.Phone.SamplingRate <= 0 {
			return fmt.Errorf("phone_config: sampling_rate must be > 0")
		}
		switch r.Phone.DeviceOrientation {
		case "", "portrait", "landscape":
		default:
			return fmt.Errorf("phone_config: unknown device_orientation %q", r.Phone.DeviceOrientation)
		}
	}
	return nil
}
