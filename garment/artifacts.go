package garment

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	pc "go.viam.com/textiles/pointcloud"
	"go.viam.com/textiles/rimage"
	"go.viam.com/textiles/spatialmath"
	"go.viam.com/textiles/utils"
	"go.viam.com/textiles/vision/features"
)

const transformHeader = "# Transformation Matrix:"

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeRow(w *bufio.Writer, values []float64) error {
	for i, v := range values {
		if i > 0 {
			if err := w.WriteByte(' '); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(formatFloat(v)); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

// WriteTransform writes t as a header line followed by the 4 rows of its homogeneous matrix.
func WriteTransform(w io.Writer, t *spatialmath.Transform) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, transformHeader); err != nil {
		return err
	}
	m := t.Matrix()
	for r := 0; r < 4; r++ {
		if err := writeRow(bw, m[4*r:4*r+4]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadTransform parses the output of WriteTransform. Lines starting with # and blank lines
// are ignored. The matrix must describe a rigid transform.
func ReadTransform(r io.Reader) (*spatialmath.Transform, error) {
	var m [16]float64
	row := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if row == 4 {
			return nil, errors.New("transform has more than 4 rows")
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, errors.Errorf("transform row %d has %d values, expected 4", row, len(fields))
		}
		for c, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "transform row %d", row)
			}
			m[4*row+c] = v
		}
		row++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if row != 4 {
		return nil, errors.Errorf("transform has %d rows, expected 4", row)
	}
	return spatialmath.NewTransformFromMatrix(m)
}

// WriteDescriptors writes one "x y z r_min r_max" row per point of cloud.
func WriteDescriptors(w io.Writer, cloud pc.PointCloud, descriptors []features.RadiiDescriptor) error {
	if cloud.Size() != len(descriptors) {
		return errors.Errorf("cloud has %d points but there are %d descriptors", cloud.Size(), len(descriptors))
	}
	bw := bufio.NewWriter(w)
	var err error
	cloud.Iterate(0, 0, func(i int, p r3.Vector, _ pc.Data) bool {
		d := descriptors[i]
		err = writeRow(bw, []float64{p.X, p.Y, p.Z, d.RMin, d.RMax})
		return err == nil
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}

// WriteDepthImage writes the depth image as rows of space separated values, row 0 first.
func WriteDepthImage(w io.Writer, img *rimage.DepthImage) error {
	bw := bufio.NewWriter(w)
	for _, row := range img.Rows() {
		if err := writeRow(bw, row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ArtifactPaths returns the files WriteArtifacts writes for name inside dir.
func ArtifactPaths(dir, name string) (transform, descriptors, histogram, preview string) {
	return filepath.Join(dir, name+"-transform.txt"),
		filepath.Join(dir, name+"-rsd.m"),
		filepath.Join(dir, name+"-histogram.m"),
		filepath.Join(dir, name+"-histogram.ppm")
}

// WriteArtifacts writes the transform, descriptors and depth image of the result into dir,
// plus a greyscale preview of the depth image when withPreview is set. Every artifact is
// attempted and the failures are combined.
func (res *Result) WriteArtifacts(dir, name string, withPreview bool) error {
	transformPath, descriptorPath, histogramPath, previewPath := ArtifactPaths(dir, name)
	err := multierr.Combine(
		writeFile(transformPath, func(w io.Writer) error { return WriteTransform(w, res.Transform) }),
		writeFile(descriptorPath, func(w io.Writer) error { return WriteDescriptors(w, res.Normalized, res.Descriptors) }),
		writeFile(histogramPath, func(w io.Writer) error { return WriteDepthImage(w, res.Depth) }),
	)
	if withPreview {
		err = multierr.Combine(err,
			writeFile(previewPath, func(w io.Writer) error { return rimage.WritePPM(w, res.Depth.ToGray16()) }))
	}
	return err
}

// writeFile creates path and fills it with write. A file that could not be completely
// written is removed.
func writeFile(path string, write func(w io.Writer) error) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return utils.NewIOError(path, err)
	}
	defer func() {
		err = multierr.Combine(err, utils.NewIOError(path, f.Close()))
		if err != nil {
			goutils.UncheckedErrorFunc(func() error { return os.Remove(path) })
		}
	}()
	return utils.NewIOError(path, write(f))
}
