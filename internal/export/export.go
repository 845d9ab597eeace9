package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"seismos/internal/disagg"
	"seismos/internal/model"
)

// WriteOutput dumps one stored disaggregation output under dir: the full
// record as output.json plus one CSV per PMF with bin-edge labels. Returns
// the directory created for the output.
func WriteOutput(dir string, out model.DisaggOutput) (string, error) {
	if out.IMT == "" {
		return "", fmt.Errorf("output has no imt")
	}
	outDir := filepath.Join(dir, path.Base(out.Path()))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(outDir, "output.json"), out); err != nil {
		return "", err
	}
	for _, p := range out.PMFs {
		if err := writePMFCSV(filepath.Join(outDir, p.Kind+".csv"), out, p); err != nil {
			return "", err
		}
	}
	return outDir, nil
}

// WriteBinEdges dumps the run's bin axes to bins.json under dir.
func WriteBinEdges(dir string, rec model.BinEdgesRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	target := filepath.Join(dir, "bins.json")
	if err := writeJSON(target, rec); err != nil {
		return "", err
	}
	return target, nil
}

// axis describes one dimension of a PMF in CSV form: numeric axes carry bin
// edges, the tectonic axis carries labels.
type axis struct {
	name   string
	edges  []float64
	labels []string
}

func axesFor(out model.DisaggOutput, kind string) ([]axis, error) {
	mag := axis{name: "mag", edges: out.MagEdges}
	dist := axis{name: "dist", edges: out.DistEdges}
	lon := axis{name: "lon", edges: out.LonEdges}
	lat := axis{name: "lat", edges: out.LatEdges}
	eps := axis{name: "eps", edges: out.EpsEdges}
	trt := axis{name: "trt", labels: out.TRTs}

	switch disagg.Kind(kind) {
	case disagg.KindMag:
		return []axis{mag}, nil
	case disagg.KindDist:
		return []axis{dist}, nil
	case disagg.KindTRT:
		return []axis{trt}, nil
	case disagg.KindMagDist:
		return []axis{mag, dist}, nil
	case disagg.KindMagDistEps:
		return []axis{mag, dist, eps}, nil
	case disagg.KindLonLat:
		return []axis{lon, lat}, nil
	case disagg.KindMagLonLat:
		return []axis{mag, lon, lat}, nil
	case disagg.KindLonLatTRT:
		return []axis{lon, lat, trt}, nil
	}
	return nil, fmt.Errorf("unknown pmf kind %q", kind)
}

func writePMFCSV(csvPath string, out model.DisaggOutput, p model.PMF) error {
	axes, err := axesFor(out, p.Kind)
	if err != nil {
		return err
	}
	if len(axes) != len(p.Shape) {
		return fmt.Errorf("pmf %s has %d axes, shape %v", p.Kind, len(axes), p.Shape)
	}

	file, err := os.Create(csvPath)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := make([]string, 0, 2*len(axes)+1)
	for _, ax := range axes {
		if ax.labels != nil {
			header = append(header, ax.name)
			continue
		}
		header = append(header, ax.name+"_lo", ax.name+"_hi")
	}
	header = append(header, "poe")
	if err := writer.Write(header); err != nil {
		return err
	}

	idx := make([]int, len(p.Shape))
	for flat, v := range p.Values {
		rem := flat
		for d := len(p.Shape) - 1; d >= 0; d-- {
			idx[d] = rem % p.Shape[d]
			rem /= p.Shape[d]
		}
		row := make([]string, 0, len(header))
		for d, ax := range axes {
			if ax.labels != nil {
				row = append(row, ax.labels[idx[d]])
				continue
			}
			row = append(row,
				strconv.FormatFloat(ax.edges[idx[d]], 'f', -1, 64),
				strconv.FormatFloat(ax.edges[idx[d]+1], 'f', -1, 64))
		}
		row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
