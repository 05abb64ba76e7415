// Package pipeline runs one customer segmentation pass end to end: load,
// derive features, encode categoricals, impute and scale, cluster with
// K-Means, classify segments with a Random Forest, then report.
//
// Stages run sequentially. Each one is logged with its duration and any
// failure is returned as an *errors.PipelineError naming the stage.
package pipeline

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"github.com/paveg/segmentation/internal/cluster"
	"github.com/paveg/segmentation/internal/config"
	"github.com/paveg/segmentation/internal/dataframe"
	"github.com/paveg/segmentation/internal/errors"
	"github.com/paveg/segmentation/internal/features"
	"github.com/paveg/segmentation/internal/forest"
	segio "github.com/paveg/segmentation/internal/io"
	"github.com/paveg/segmentation/internal/metrics"
	"github.com/paveg/segmentation/internal/monitoring"
	"github.com/paveg/segmentation/internal/preprocess"
	"github.com/paveg/segmentation/internal/report"
	"github.com/paveg/segmentation/internal/series"
	"github.com/paveg/segmentation/internal/split"
	"github.com/paveg/segmentation/internal/validation"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/vg"
)

// Dataset columns the run depends on.
const (
	TargetColumn  = "Customer_Segment"
	ClusterColumn = "Cluster"
	AgeColumn     = "Age"
	RatingsColumn = "Ratings"
	PaymentColumn = "Payment_Method"
)

// CategoricalColumns are label-encoded into <col>_enc.
var CategoricalColumns = []string{"Gender", "Payment_Method", "Product_Category", "Country", "Income"}

// FeatureColumns is the column order of the clustering and classification matrix.
var FeatureColumns = []string{
	AgeColumn, features.TotalPurchases, features.TotalAmount, RatingsColumn,
	"Gender_enc", "Payment_Method_enc", "Product_Category_enc", "Country_enc", "Income_enc",
}

// RequiredColumns must be present in the input dataset.
var RequiredColumns = []string{
	AgeColumn, features.TotalPurchases, features.TotalAmount, RatingsColumn,
	"Gender", "Payment_Method", "Product_Category", "Country", "Income", TargetColumn,
}

// Console section headers.
const (
	reportHeader = "\nRandom Forest Classification Report:"
	countsHeader = "\nCustomer Segments (K-Means):"
)

var skyblue = color.RGBA{R: 135, G: 206, B: 235, A: 0xff}

// Result is everything a run produced.
type Result struct {
	RunID       string
	Fingerprint uint64 // xxhash64 of the input file
	Rows        int

	Clusters      []int
	ClusterCounts []report.ClusterCount
	Inertia       float64

	// Classes are the Customer_Segment values; codes index into it.
	Classes            []string
	TestIndices        []int
	YTrue              []int
	YPred              []int
	Report             *metrics.ClassificationReport
	FeatureImportances []float64

	PaymentCounts   []dataframe.ValueCount
	ClusterPlotPath string
	PaymentPlotPath string

	// Stages holds the timing of each completed stage in run order.
	Stages   []monitoring.StageMetrics
	Duration time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default is the zerolog global logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithOutput sets where the report and cluster counts are printed.
func WithOutput(w io.Writer) Option {
	return func(p *Pipeline) { p.out = w }
}

// WithAllocator sets the Arrow allocator used for the dataset.
func WithAllocator(mem memory.Allocator) Option {
	return func(p *Pipeline) { p.mem = mem }
}

// Pipeline executes a segmentation run for one Config.
type Pipeline struct {
	cfg    config.Config
	logger zerolog.Logger
	out    io.Writer
	mem    memory.Allocator
}

// New returns a Pipeline for cfg.
func New(cfg config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		logger: log.Logger,
		out:    os.Stdout,
		mem:    memory.NewGoAllocator(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run carries intermediate state between stages.
type run struct {
	logger   zerolog.Logger
	df       *dataframe.DataFrame
	features *mat.Dense
	target   []int
	result   *Result
}

// Run executes every stage in order and returns the first failure.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	if err := p.cfg.Validate(); err != nil {
		return nil, errors.Wrap(errors.StageLoad, fmt.Errorf("invalid configuration: %w", err))
	}

	runID := uuid.NewString()
	logger := p.logger.With().Str("run_id", runID).Logger()
	logger.Info().Str("input", p.cfg.InputPath).Msg("Segmentation run started")

	r := &run{logger: logger, result: &Result{RunID: runID}}
	defer func() {
		if r.df != nil {
			r.df.Release()
		}
	}()

	stages := []struct {
		name string
		fn   func(context.Context, *run) error
	}{
		{errors.StageLoad, p.load},
		{errors.StageFeatures, p.derive},
		{errors.StageEncode, p.encode},
		{errors.StagePrepare, p.prepare},
		{errors.StageCluster, p.cluster},
		{errors.StageClassify, p.classify},
		{errors.StageReport, p.report},
	}

	collector := monitoring.NewMetricsCollector(true)
	rows := func() int { return r.result.Rows }
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(stage.name, err)
		}
		err := collector.RecordStage(stage.name, rows, func() error { return stage.fn(ctx, r) })
		if err != nil {
			logger.Error().Err(err).Str("stage", stage.name).Msg("Stage failed")
			return nil, errors.Wrap(stage.name, err)
		}
		if r.features != nil {
			n, _ := r.features.Dims()
			if err := validation.ValidateLength(r.result.Rows, n, stage.name, "feature matrix rows"); err != nil {
				return nil, errors.Wrap(stage.name, err)
			}
		}
		done := collector.GetMetrics()
		logger.Debug().
			Str("stage", stage.name).
			Int("rows", r.result.Rows).
			Dur("duration", done[len(done)-1].Duration).
			Msg("Stage completed")
	}

	r.result.Stages = collector.GetMetrics()
	summary := collector.GetSummary()
	r.result.Duration = time.Since(start)
	logger.Info().
		Float64("inertia", r.result.Inertia).
		Float64("accuracy", r.result.Report.Accuracy).
		Str("slowest_stage", summary.SlowestStage).
		Dur("duration", r.result.Duration).
		Msg("Segmentation run finished")
	return r.result, nil
}

func (p *Pipeline) load(_ context.Context, r *run) error {
	df, fingerprint, err := segio.ReadFileWithFingerprint(p.cfg.InputPath, p.mem)
	if err != nil {
		return err
	}
	r.df = df
	checks := validation.NewCompoundValidator(
		validation.NewColumnValidator(df, "load", RequiredColumns...),
		validation.NewEmptyDataFrameValidator(df, "load"),
	)
	if err := checks.Validate(); err != nil {
		return err
	}

	r.result.Fingerprint = fingerprint
	r.result.Rows = df.Len()
	r.logger.Debug().
		Str("fingerprint", strconv.FormatUint(fingerprint, 16)).
		Int("columns", df.Width()).
		Msg("Dataset loaded")
	return nil
}

func (p *Pipeline) derive(_ context.Context, r *run) error {
	if err := features.AddDerived(r.df, p.mem); err != nil {
		return err
	}
	return validation.ValidateLength(r.result.Rows, r.df.Len(), "features", "dataset rows")
}

func (p *Pipeline) encode(_ context.Context, r *run) error {
	if _, err := preprocess.EncodeColumns(r.df, p.mem, CategoricalColumns...); err != nil {
		return err
	}
	return validation.ValidateLength(r.result.Rows, r.df.Len(), "encode", "dataset rows")
}

func (p *Pipeline) prepare(_ context.Context, r *run) error {
	X, err := preprocess.FeatureMatrix(r.df, FeatureColumns...)
	if err != nil {
		return err
	}
	if n := preprocess.ReplaceInf(X); n > 0 {
		r.logger.Debug().Int("cells", n).Msg("Replaced infinite values with missing")
	}

	imputer := &preprocess.MedianImputer{Names: FeatureColumns}
	imputed, err := imputer.FitTransform(X)
	if err != nil {
		return err
	}
	scaled, err := preprocess.NewStandardScaler().FitTransform(imputed)
	if err != nil {
		return err
	}
	if !preprocess.IsFinite(scaled) {
		return errors.NewValidationError("prepare", "", "scaled feature matrix contains non-finite values")
	}
	r.features = scaled
	return nil
}

func (p *Pipeline) cluster(ctx context.Context, r *run) error {
	km := cluster.NewKMeans(p.cfg.Clusters)
	km.NInit = p.cfg.NInit
	km.MaxIter = p.cfg.MaxIter
	km.Tol = p.cfg.Tol
	km.Seed = p.cfg.Seed
	km.Workers = p.cfg.Workers

	labels, err := km.FitPredict(ctx, r.features)
	if err != nil {
		return err
	}
	if err := validation.ValidateLabels(labels, p.cfg.Clusters, "cluster"); err != nil {
		return err
	}

	ids := make([]int64, len(labels))
	for i, l := range labels {
		ids[i] = int64(l)
	}
	if err := r.df.SetColumn(series.New(ClusterColumn, ids, p.mem)); err != nil {
		return err
	}

	r.result.Clusters = labels
	r.result.ClusterCounts = report.ClusterCounts(labels)
	r.result.Inertia = km.Inertia()
	r.logger.Debug().
		Float64("inertia", km.Inertia()).
		Int("iterations", km.Iterations()).
		Msg("K-Means converged")
	return nil
}

func (p *Pipeline) classify(ctx context.Context, r *run) error {
	segments, err := r.df.StringColumn(TargetColumn)
	if err != nil {
		return err
	}
	enc := preprocess.NewLabelEncoder()
	r.target = enc.FitTransform(segments)
	r.result.Classes = enc.Classes()

	trainIdx, testIdx, err := split.StratifiedTrainTest(r.target, p.cfg.TestSize, p.cfg.Seed)
	if err != nil {
		return err
	}

	rf := forest.NewRandomForest(
		forest.WithNEstimators(p.cfg.Trees),
		forest.WithMaxDepth(p.cfg.MaxDepth),
		forest.WithSeed(p.cfg.Seed),
		forest.WithWorkers(p.cfg.Workers),
	)
	if err := rf.Fit(ctx, subset(r.features, trainIdx), pick(r.target, trainIdx)); err != nil {
		return err
	}
	pred, err := rf.Predict(subset(r.features, testIdx))
	if err != nil {
		return err
	}

	yTrue := pick(r.target, testIdx)
	names := make([]string, len(r.result.Classes))
	for i := range names {
		names[i] = strconv.Itoa(i)
	}
	rep, err := metrics.NewClassificationReport(yTrue, pred, names)
	if err != nil {
		return err
	}

	r.result.TestIndices = testIdx
	r.result.YTrue = yTrue
	r.result.YPred = pred
	r.result.Report = rep
	r.result.FeatureImportances = rf.FeatureImportances()
	r.logger.Debug().
		Int("train", len(trainIdx)).
		Int("test", len(testIdx)).
		Float64("accuracy", rep.Accuracy).
		Msg("Random Forest evaluated")
	return nil
}

func (p *Pipeline) report(_ context.Context, r *run) error {
	if _, err := fmt.Fprintln(p.out, reportHeader); err != nil {
		return err
	}
	if _, err := fmt.Fprint(p.out, r.result.Report.String()); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(p.out, countsHeader); err != nil {
		return err
	}
	if err := report.WriteClusterCounts(p.out, r.result.ClusterCounts); err != nil {
		return err
	}

	if err := p.plotClusters(r); err != nil {
		return err
	}
	return p.plotPayments(r)
}

func (p *Pipeline) plotClusters(r *run) error {
	ages, err := r.df.Float64Column(AgeColumn)
	if err != nil {
		return err
	}
	amounts, err := r.df.Float64Column(features.TotalAmount)
	if err != nil {
		return err
	}

	// rows with a missing coordinate are left off the chart
	var x, y []float64
	var c []int
	for i := range ages {
		if math.IsNaN(ages[i]) || math.IsNaN(amounts[i]) {
			continue
		}
		x = append(x, ages[i])
		y = append(y, amounts[i])
		c = append(c, r.result.Clusters[i])
	}

	path := p.cfg.ClusterPlotPath()
	err = report.ScatterClusters(path, x, y, c, report.ChartOptions{
		Title:  "Customer Clusters: Age vs Total Amount",
		XLabel: "Age",
		YLabel: "Total Amount",
		Width:  10 * vg.Inch,
		Height: 5 * vg.Inch,
	})
	if err != nil {
		return err
	}
	r.result.ClusterPlotPath = path
	return nil
}

func (p *Pipeline) plotPayments(r *run) error {
	counts, err := r.df.ValueCounts(PaymentColumn)
	if err != nil {
		return err
	}
	labels := make([]string, len(counts))
	values := make([]int, len(counts))
	for i, vc := range counts {
		labels[i] = vc.Value
		values[i] = vc.Count
	}

	path := p.cfg.PaymentPlotPath()
	err = report.BarCounts(path, labels, values, report.ChartOptions{
		Title:  "Payment Method Distribution",
		YLabel: "Number of Customers",
		Width:  8 * vg.Inch,
		Height: 5 * vg.Inch,
		Fill:   skyblue,
	})
	if err != nil {
		return err
	}
	r.result.PaymentCounts = counts
	r.result.PaymentPlotPath = path
	return nil
}

// subset copies the rows of X listed in idx.
func subset(X *mat.Dense, idx []int) *mat.Dense {
	_, c := X.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for i, row := range idx {
		out.SetRow(i, X.RawRowView(row))
	}
	return out
}

func pick(values, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}
