package diagnostics

import (
	"image"
	"image/color"
	"math"

	"github.com/local/hybridocr/internal/result"
)

// ImageQualityEstimator computes gated image-quality metrics (contrast,
// blur, skew) from a rendered page image. Grounded on the grayscale
// conversion used for graphics detection: the same toGrayscale step feeds a
// contrast (pixel standard deviation) and a blur (variance of a Laplacian
// approximation) estimate instead of connected-component analysis.
type ImageQualityEstimator struct{}

func NewImageQualityEstimator() *ImageQualityEstimator { return &ImageQualityEstimator{} }

// Estimate computes {dpi, contrast, blur_score, skew_angle} for one rendered
// page image.
func (e *ImageQualityEstimator) Estimate(img image.Image, dpi int) result.ImageQuality {
	gray := toGrayscale(img)
	return result.ImageQuality{
		DPI:       dpi,
		Contrast:  contrastOf(gray),
		BlurScore: blurScoreOf(gray),
		SkewAngle: skewAngleOf(gray),
	}
}

func toGrayscale(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// contrastOf returns the normalized (0..1) standard deviation of pixel
// intensity, a standard proxy for scan contrast.
func contrastOf(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	n := bounds.Dx() * bounds.Dy()
	if n == 0 {
		return 0
	}
	var sum float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			sum += float64(gray.GrayAt(x, y).Y)
		}
	}
	mean := sum / float64(n)

	var variance float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			d := float64(gray.GrayAt(x, y).Y) - mean
			variance += d * d
		}
	}
	variance /= float64(n)
	return math.Sqrt(variance) / 255.0
}

// blurScoreOf approximates the variance-of-Laplacian sharpness metric: a
// simple discrete 4-neighbor Laplacian convolved over the image, variance of
// the response. Higher = sharper.
func blurScoreOf(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	var responses []float64
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			center := float64(gray.GrayAt(x, y).Y)
			up := float64(gray.GrayAt(x, y-1).Y)
			down := float64(gray.GrayAt(x, y+1).Y)
			left := float64(gray.GrayAt(x-1, y).Y)
			right := float64(gray.GrayAt(x+1, y).Y)
			lap := up + down + left + right - 4*center
			responses = append(responses, lap)
		}
	}
	if len(responses) == 0 {
		return 0
	}

	var sum float64
	for _, r := range responses {
		sum += r
	}
	mean := sum / float64(len(responses))

	var variance float64
	for _, r := range responses {
		d := r - mean
		variance += d * d
	}
	return variance / float64(len(responses))
}

// skewAngleOf is a coarse skew estimate: finds the row offset that maximizes
// the variance of the horizontal projection profile across a small angle
// sweep, a lightweight stand-in for a full Hough-transform skew detector.
func skewAngleOf(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return 0
	}

	bestAngle := 0.0
	bestScore := -1.0
	for angleDeg := -5.0; angleDeg <= 5.0; angleDeg += 1.0 {
		score := projectionVariance(gray, bounds, angleDeg)
		if score > bestScore {
			bestScore = score
			bestAngle = angleDeg
		}
	}
	return bestAngle
}

func projectionVariance(gray *image.Gray, bounds image.Rectangle, angleDeg float64) float64 {
	theta := angleDeg * math.Pi / 180
	sin, cos := math.Sin(theta), math.Cos(theta)

	h := bounds.Dy()
	rowSums := make([]float64, h)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			shiftedY := int(float64(y)*cos - float64(x)*sin)
			if shiftedY < bounds.Min.Y || shiftedY >= bounds.Max.Y {
				continue
			}
			if gray.GrayAt(x, y).Y < 200 {
				rowSums[shiftedY-bounds.Min.Y]++
			}
		}
	}

	var mean float64
	for _, s := range rowSums {
		mean += s
	}
	mean /= float64(h)

	var variance float64
	for _, s := range rowSums {
		d := s - mean
		variance += d * d
	}
	return variance / float64(h)
}
