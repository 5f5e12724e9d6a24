// Package picture estimates how likely a profile picture is fake, generated, or stock.
package picture

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"log/slog"
	"math"

	"github.com/codeGROOVE-dev/credcheck/pkg/avatar"
	"github.com/codeGROOVE-dev/credcheck/pkg/httpcache"
	"github.com/codeGROOVE-dev/credcheck/pkg/profile"
)

// Risk weights and the cap on the composite score.
const (
	noFaceRisk  = 4
	aiRisk      = 3
	stockRisk   = 2
	maxRisk     = 10
	flagAbove   = 5 // red flags are only reported above this risk
	defaultRisk = 4
)

// Red flag texts.
const (
	FlagNoFace  = "no human face detected"
	FlagAI      = "AI-generated features"
	FlagStock   = "stock photo characteristics"
	FlagDefault = "default avatar"
)

// Window describes where a generated portrait places the face, as fractions of the image.
type Window struct {
	CenterX   float64 `yaml:"center_x"`
	CenterY   float64 `yaml:"center_y"`
	Tolerance float64 `yaml:"tolerance"` // max offset of the face center from (CenterX, CenterY)
	MinSize   float64 `yaml:"min_size"`  // face box side / image side
	MaxSize   float64 `yaml:"max_size"`
}

// DefaultWindow matches the fixed eye alignment of common face-generation datasets.
func DefaultWindow() Window {
	return Window{CenterX: 0.5, CenterY: 0.5, Tolerance: 0.05, MinSize: 0.4, MaxSize: 0.7}
}

// contains reports whether a face sits inside the window of a square image.
func (w Window) contains(f Face, b image.Rectangle) bool {
	wd, ht := float64(b.Dx()), float64(b.Dy())
	if wd == 0 || ht == 0 || math.Abs(wd-ht)/wd > 0.02 {
		return false
	}
	cx := float64(f.Col) / wd
	cy := float64(f.Row) / ht
	size := float64(f.Size) / wd
	return math.Abs(cx-w.CenterX) <= w.Tolerance &&
		math.Abs(cy-w.CenterY) <= w.Tolerance &&
		size >= w.MinSize && size <= w.MaxSize
}

// Analyzer runs face, generated-image, and stock checks on profile pictures.
// It holds no per-call state and is safe for concurrent use.
type Analyzer struct {
	client   *httpcache.Client
	faces    FaceDetector
	stock    *StockChecker
	logger   *slog.Logger
	aiHashes []uint64
	window   Window
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithFaceDetector sets the face detector. Without one, face checks are unavailable.
func WithFaceDetector(d FaceDetector) Option {
	return func(a *Analyzer) { a.faces = d }
}

// WithStockChecker sets the reverse image lookup. Without one, stock checks are unavailable.
func WithStockChecker(s *StockChecker) Option {
	return func(a *Analyzer) { a.stock = s }
}

// WithKnownAIHashes sets perceptual hashes of known generated portraits.
func WithKnownAIHashes(hashes []uint64) Option {
	return func(a *Analyzer) { a.aiHashes = hashes }
}

// WithWindow overrides the generated-portrait alignment window.
func WithWindow(w Window) Option {
	return func(a *Analyzer) { a.window = w }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = logger }
}

// New creates an Analyzer that downloads pictures through client.
func New(client *httpcache.Client, opts ...Option) *Analyzer {
	a := &Analyzer{client: client, logger: slog.Default(), window: DefaultWindow()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var errUnavailable = errors.New("picture analysis unavailable")

// Analyze inspects the picture at imageURL. It never fails: problems produce an
// analysis whose Status is unavailable. Usable results are memoized in the cache.
func (a *Analyzer) Analyze(ctx context.Context, imageURL string) *profile.PictureAnalysis {
	var res *profile.PictureAnalysis
	data, err := httpcache.Memo(ctx, a.client.Cache(), "picture:"+httpcache.URLToKey(imageURL), func(ctx context.Context) ([]byte, error) {
		res = a.analyze(ctx, imageURL)
		if !res.Analyzed() {
			return nil, errUnavailable
		}
		return json.Marshal(res)
	})
	if res != nil {
		return res
	}
	if err == nil {
		var cached profile.PictureAnalysis
		if jerr := json.Unmarshal(data, &cached); jerr == nil {
			a.logger.DebugContext(ctx, "picture analysis cache hit", "url", imageURL)
			return &cached
		}
	}
	// Cache failure without computing; analyze directly.
	return a.analyze(ctx, imageURL)
}

func (a *Analyzer) analyze(ctx context.Context, imageURL string) *profile.PictureAnalysis {
	res := &profile.PictureAnalysis{URL: imageURL}

	if imageURL == "" {
		res.Error = "no picture URL"
		return res
	}

	if avatar.IsDefault(imageURL) {
		res.Status = profile.VerdictPositive
		res.Face = profile.FaceResult{Verdict: profile.VerdictNegative}
		res.CredibilityRisk = defaultRisk
		res.RedFlags = []string{FlagDefault}
		return res
	}

	img, err := avatar.Download(ctx, a.client, imageURL)
	if err != nil {
		a.logger.InfoContext(ctx, "picture download failed", "url", imageURL, "error", err)
		res.Error = err.Error()
		return res
	}
	res.Hash = avatar.Hash(img)

	var faces []Face
	res.Face, faces = a.detectFaces(img)
	res.AI = a.checkAI(res.Hash, res.Face, faces, img.Bounds())
	if a.stock != nil {
		res.Stock = a.stock.Check(ctx, imageURL)
	}

	if !res.Face.Verdict.Available() && !res.AI.Verdict.Available() && !res.Stock.Verdict.Available() {
		res.Error = "no picture checks could run"
		return res
	}

	res.CredibilityRisk, res.RedFlags = Risk(res.Face, res.AI, res.Stock)
	res.Status = profile.VerdictNegative
	if res.CredibilityRisk > 0 {
		res.Status = profile.VerdictPositive
	}

	a.logger.DebugContext(ctx, "picture analyzed",
		"url", imageURL,
		"face", res.Face.Verdict, "ai", res.AI.Verdict, "stock", res.Stock.Verdict,
		"risk", res.CredibilityRisk)
	return res
}

func (a *Analyzer) detectFaces(img image.Image) (profile.FaceResult, []Face) {
	if a.faces == nil {
		return profile.FaceResult{}, nil
	}
	faces, err := a.faces.Detect(img)
	if err != nil {
		a.logger.Debug("face detection failed", "error", err)
		return profile.FaceResult{}, nil
	}
	r := profile.FaceResult{Verdict: profile.VerdictNegative, Count: len(faces), LikelyPhoto: len(faces) == 1}
	if len(faces) > 0 {
		r.Verdict = profile.VerdictPositive
	}
	return r, faces
}

func (a *Analyzer) checkAI(hash uint64, face profile.FaceResult, faces []Face, bounds image.Rectangle) profile.AIResult {
	if len(a.aiHashes) > 0 && hash != 0 {
		if avatar.MatchAny(hash, a.aiHashes) >= 0 {
			return profile.AIResult{Verdict: profile.VerdictPositive, Reason: "matches a known generated portrait"}
		}
	}
	if face.Verdict.Available() {
		if len(faces) == 1 && a.window.contains(faces[0], bounds) {
			return profile.AIResult{Verdict: profile.VerdictPositive, Reason: "face aligned like a generated portrait"}
		}
		return profile.AIResult{Verdict: profile.VerdictNegative}
	}
	if len(a.aiHashes) > 0 && hash != 0 {
		return profile.AIResult{Verdict: profile.VerdictNegative}
	}
	return profile.AIResult{}
}

// Risk combines the individual checks into a 0-10 risk and the red flags behind it.
// Unavailable checks add nothing.
func Risk(face profile.FaceResult, ai profile.AIResult, stock profile.StockResult) (int, []string) {
	var risk int
	var flags []string
	if face.Verdict == profile.VerdictNegative {
		risk += noFaceRisk
		flags = append(flags, FlagNoFace)
	}
	if ai.Verdict == profile.VerdictPositive {
		risk += aiRisk
		flags = append(flags, FlagAI)
	}
	if stock.Verdict == profile.VerdictPositive {
		risk += stockRisk
		flags = append(flags, FlagStock)
	}
	risk = min(maxRisk, risk)
	if risk <= flagAbove {
		flags = nil
	}
	return risk, flags
}
