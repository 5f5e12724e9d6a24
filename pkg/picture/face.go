package picture

import (
	"errors"
	"fmt"
	"image"

	pigo "github.com/esimov/pigo/core"
)

// Face is a detected face. Row and Col are the center; Size is the box side in pixels.
type Face struct {
	Row   int
	Col   int
	Size  int
	Score float32
}

// FaceDetector finds faces in an image.
type FaceDetector interface {
	Detect(img image.Image) ([]Face, error)
}

// PigoDetector detects frontal faces with a pigo cascade classifier.
type PigoDetector struct {
	classifier *pigo.Pigo
	minScore   float32
}

// NewPigoDetector unpacks a pigo "facefinder" cascade.
func NewPigoDetector(cascade []byte) (*PigoDetector, error) {
	if len(cascade) == 0 {
		return nil, errors.New("empty face cascade")
	}
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("unpack face cascade: %w", err)
	}
	return &PigoDetector{classifier: classifier, minScore: 5.0}, nil
}

// Detect runs the cascade over a grayscale copy of img and clusters overlapping hits.
func (d *PigoDetector) Detect(img image.Image) ([]Face, error) {
	b := img.Bounds()
	cols, rows := b.Dx(), b.Dy()
	if cols < 20 || rows < 20 {
		return nil, fmt.Errorf("image too small for face detection: %dx%d", cols, rows)
	}

	params := pigo.CascadeParams{
		MinSize:     max(20, min(cols, rows)/10),
		MaxSize:     min(cols, rows),
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		ImageParams: pigo.ImageParams{
			Pixels: grayscale(img),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, 0.2)

	var faces []Face
	for _, det := range dets {
		if det.Q < d.minScore {
			continue
		}
		faces = append(faces, Face{Row: det.Row, Col: det.Col, Size: det.Scale, Score: det.Q})
	}
	return faces, nil
}

// grayscale flattens img into row-major luma bytes.
func grayscale(img image.Image) []uint8 {
	b := img.Bounds()
	cols, rows := b.Dx(), b.Dy()
	px := make([]uint8, cols*rows)
	for y := range rows {
		for x := range cols {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			// ITU-R 601 luma on 16-bit channels.
			px[y*cols+x] = uint8((299*r + 587*g + 114*bl) / 1000 >> 8)
		}
	}
	return px
}
