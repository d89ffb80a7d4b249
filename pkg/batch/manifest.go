package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// manifestFileName is written into the output directory after every run.
const manifestFileName = "run_manifest.yaml"

// Manifest is the machine-readable record of one run, written next to the
// outputs so later runs and operators can see what produced them.
type Manifest struct {
	Tool       string    `yaml:"tool"`
	Version    string    `yaml:"version"`
	Operation  string    `yaml:"operation"`
	ConfigPath string    `yaml:"config_path,omitempty"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`

	Compute *ComputeRecord `yaml:"compute,omitempty"`
	Plot    *PlotRecord    `yaml:"plot,omitempty"`
}

// ComputeRecord summarizes the compute stage inside a manifest.
type ComputeRecord struct {
	InputFiles   int      `yaml:"input_files"`
	Successful   int      `yaml:"successful_units"`
	Failed       int      `yaml:"failed_units"`
	Windows      int      `yaml:"processed_windows"`
	BytesWritten int64    `yaml:"bytes_written"`
	Artifacts    []string `yaml:"artifacts,omitempty"`
}

// PlotRecord summarizes the plot stage inside a manifest.
type PlotRecord struct {
	Artifacts  int      `yaml:"artifacts"`
	Groups     int      `yaml:"groups"`
	Successful int      `yaml:"successful_groups"`
	Failed     int      `yaml:"failed_groups"`
	Images     []string `yaml:"images,omitempty"`
}

// NewManifest starts a manifest for one run.
func NewManifest(version, operation, configPath string) *Manifest {
	return &Manifest{
		Tool:       "cp-ppsd",
		Version:    version,
		Operation:  operation,
		ConfigPath: configPath,
		StartedAt:  time.Now().UTC(),
	}
}

// AttachCompute records the compute stage outcome.
func (m *Manifest) AttachCompute(result *ComputeResult) {
	m.Compute = &ComputeRecord{
		InputFiles:   result.Files,
		Successful:   result.Successful,
		Failed:       result.Failed,
		Windows:      result.Windows,
		BytesWritten: result.BytesWritten,
		Artifacts:    result.Artifacts,
	}
}

// AttachPlot records the plot stage outcome.
func (m *Manifest) AttachPlot(result *PlotResult) {
	m.Plot = &PlotRecord{
		Artifacts:  result.Artifacts,
		Groups:     result.Groups,
		Successful: result.Successful,
		Failed:     result.Failed,
		Images:     result.Images,
	}
}

// Write stamps the finish time and persists the manifest into dir.
func (m *Manifest) Write(dir string) (string, error) {
	m.FinishedAt = time.Now().UTC()

	raw, err := yaml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}

	mkdirErr := os.MkdirAll(dir, 0o755)
	if mkdirErr != nil {
		return "", fmt.Errorf("create manifest dir: %w", mkdirErr)
	}

	path := filepath.Join(dir, manifestFileName)

	err = os.WriteFile(path, raw, 0o644)
	if err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}

	return path, nil
}
