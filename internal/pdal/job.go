package pdal

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/mohammed-shakir/nz-lidar-aoi/internal/core/model"
)

type JobAOI struct {
	MinLon float64 `yaml:"minlon"`
	MinLat float64 `yaml:"minlat"`
	MaxLon float64 `yaml:"maxlon"`
	MaxLat float64 `yaml:"maxlat"`
}

func (a JobAOI) Model() model.AOI {
	return model.AOI{MinLon: a.MinLon, MinLat: a.MinLat, MaxLon: a.MaxLon, MaxLat: a.MaxLat, SRID: model.SRIDGeographic}
}

// Job is one crop/merge/DTM run.
type Job struct {
	AOI        JobAOI   `yaml:"aoi"`
	URLs       []string `yaml:"urls"`
	COPC       string   `yaml:"copc"`
	DTM        string   `yaml:"dtm"`
	Resolution float64  `yaml:"resolution"`
	MeanK      int      `yaml:"mean_k"`
	Multiplier float64  `yaml:"multiplier"`
}

func (j Job) DTMOptions() DTMOptions {
	return DTMOptions{MeanK: j.MeanK, Multiplier: j.Multiplier, Resolution: j.Resolution}.withDefaults()
}

func (j Job) Validate() error {
	if err := j.AOI.Model().Validate(); err != nil {
		return err
	}
	if j.COPC == "" || j.DTM == "" {
		return errors.New("job: copc and dtm outputs are required")
	}
	return nil
}

// NewJob fills the AOI from a model AOI.
func NewJob(a model.AOI, urls []string, copc, dtm string, opts DTMOptions) Job {
	return Job{
		AOI:        JobAOI{MinLon: a.MinLon, MinLat: a.MinLat, MaxLon: a.MaxLon, MaxLat: a.MaxLat},
		URLs:       urls,
		COPC:       copc,
		DTM:        dtm,
		Resolution: opts.Resolution,
		MeanK:      opts.MeanK,
		Multiplier: opts.Multiplier,
	}
}

func WriteJob(path string, job Job) error {
	b, err := yaml.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write job: %w", err)
	}
	return nil
}

// LoadJob reads a YAML job file. Fields left out keep the values in base.
func LoadJob(path string, base Job) (Job, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Job{}, fmt.Errorf("read job: %w", err)
	}
	job := base
	if err := yaml.Unmarshal(b, &job); err != nil {
		return Job{}, fmt.Errorf("parse job %s: %w", path, err)
	}
	if err := job.Validate(); err != nil {
		return Job{}, fmt.Errorf("job %s: %w", path, err)
	}
	return job, nil
}
