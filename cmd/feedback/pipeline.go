package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deepak-highbeam/complaint-classifier/internal/evaluate"
	"github.com/deepak-highbeam/complaint-classifier/internal/ingest"
	"github.com/deepak-highbeam/complaint-classifier/internal/labeler"
	"github.com/deepak-highbeam/complaint-classifier/internal/naivebayes"
	"github.com/deepak-highbeam/complaint-classifier/internal/preprocess"
	"github.com/deepak-highbeam/complaint-classifier/internal/report"
	"github.com/deepak-highbeam/complaint-classifier/internal/sample"
	"github.com/deepak-highbeam/complaint-classifier/internal/train"
)

func ingestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Filter and label raw complaints into the labeled dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := a.cfg.Ingest
			return a.runStage(cmd, "ingest", c.Input, c.Output, func(ctx context.Context) (*outcome, error) {
				l, err := labeler.FromFile(c.RulesFile)
				if err != nil {
					return nil, fmt.Errorf("load rules: %w", err)
				}
				res, err := ingest.Run(ctx, ingest.Options{
					Input:           c.Input,
					Output:          c.Output,
					AllowedProducts: c.AllowedProducts,
					MinTextLen:      c.MinTextLen,
					Seed:            c.Seed,
					Labeler:         l,
					Store:           a.store(),
					Metrics:         a.pipeline(),
					Progress:        cmd.ErrOrStderr(),
				})
				if err != nil {
					return nil, err
				}

				values := map[string]float64{"rows_read": float64(res.RowsRead)}
				for reason, n := range res.Dropped {
					values["dropped_"+reason] = float64(n)
				}
				return &outcome{
					rows:       res.Rows(),
					categories: categoryCounts(res.Distribution),
					values:     values,
					result:     res,
					text:       report.FormatIngest(res),
				}, nil
			})
		},
	}

	cmd.Flags().String("input", "", "raw complaints file (CSV or XLSX, local path or s3://)")
	cmd.Flags().String("output", "", "labeled dataset to write")
	cmd.Flags().String("rules", "", "YAML rule file replacing the built-in rule sets")
	bindFlag(cmd, "input", "ingest.input")
	bindFlag(cmd, "output", "ingest.output")
	bindFlag(cmd, "rules", "ingest.rules_file")

	return cmd
}

func sampleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Cap each category to build a smaller, more balanced dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := a.cfg.Sample
			return a.runStage(cmd, "sample", c.Src, c.Dst, func(ctx context.Context) (*outcome, error) {
				res, err := sample.Run(ctx, sample.Options{
					Src:      c.Src,
					Dst:      c.Dst,
					Cap:      c.Cap,
					CapOther: c.CapOther,
					Seed:     c.Seed,
					Store:    a.store(),
					Metrics:  a.pipeline(),
				})
				if err != nil {
					return nil, err
				}
				return &outcome{
					rows:       res.Sample.Total,
					categories: categoryCounts(res.Sample),
					values:     map[string]float64{"rows_read": float64(res.Full.Total)},
					result:     res,
					text:       report.FormatSample(res),
				}, nil
			})
		},
	}

	cmd.Flags().String("src", "", "labeled dataset to sample")
	cmd.Flags().String("dst", "", "sampled dataset to write")
	cmd.Flags().Int("cap", sample.DefaultCap, "maximum rows per category")
	cmd.Flags().Int("cap-other", sample.DefaultCapOther, "maximum rows for the other category")
	cmd.Flags().Int64("seed", sample.DefaultSeed, "random seed")
	bindFlag(cmd, "src", "sample.src")
	bindFlag(cmd, "dst", "sample.dst")
	bindFlag(cmd, "cap", "sample.cap")
	bindFlag(cmd, "cap-other", "sample.cap_other")
	bindFlag(cmd, "seed", "sample.seed")

	return cmd
}

func preprocessCmd(a *app) *cobra.Command {
	var noDedup bool

	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Clean the labeled dataset and split it into train and test sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := a.cfg.Preprocess
			if noDedup {
				c.Dedup = false
			}
			return a.runStage(cmd, "preprocess", c.Input, c.OutputDir, func(ctx context.Context) (*outcome, error) {
				res, err := preprocess.Run(ctx, preprocess.RunOptions{
					Options: preprocess.Options{
						Dedup:    c.Dedup,
						TestSize: c.TestSize,
						Seed:     c.Seed,
					},
					Input:     c.Input,
					OutputDir: c.OutputDir,
					Store:     a.store(),
					Metrics:   a.pipeline(),
				})
				if err != nil {
					return nil, err
				}
				return &outcome{
					rows: res.Train + res.Test,
					values: map[string]float64{
						"rows_read": float64(res.RowsRead),
						"train":     float64(res.Train),
						"test":      float64(res.Test),
					},
					result: res,
					text:   report.FormatPreprocess(res),
				}, nil
			})
		},
	}

	cmd.Flags().String("input", "", "labeled dataset to split")
	cmd.Flags().String("output-dir", "", "directory for train.csv and test.csv")
	cmd.Flags().BoolVar(&noDedup, "no-dedup", false, "keep duplicate texts")
	cmd.Flags().Float64("test-size", preprocess.DefaultTestSize, "fraction of each category held out for testing")
	cmd.Flags().Int64("random-state", preprocess.DefaultSeed, "random seed for the split")
	bindFlag(cmd, "input", "preprocess.input")
	bindFlag(cmd, "output-dir", "preprocess.output_dir")
	bindFlag(cmd, "test-size", "preprocess.test_size")
	bindFlag(cmd, "random-state", "preprocess.seed")

	return cmd
}

func trainCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit the TF-IDF vectorizer and Naive Bayes classifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := a.cfg.Train
			kind, err := naivebayes.ParseKind(c.ModelType)
			if err != nil {
				return err
			}
			output := c.VectorizerOut + "," + c.ModelOut
			return a.runStage(cmd, "train", c.TrainPath, output, func(ctx context.Context) (*outcome, error) {
				res, err := train.Run(ctx, train.Options{
					TrainPath:     c.TrainPath,
					VectorizerOut: c.VectorizerOut,
					ModelOut:      c.ModelOut,
					ModelType:     kind,
					Alpha:         c.Alpha,
					Vectorizer:    c.Config,
					Store:         a.store(),
					Metrics:       a.pipeline(),
				})
				if err != nil {
					return nil, err
				}
				return &outcome{
					rows:       res.Rows,
					categories: categoryCounts(res.Distribution),
					values: map[string]float64{
						"features":          float64(res.Features),
						"training_accuracy": res.TrainingAccuracy,
					},
					result: res,
					text:   report.FormatTrain(res),
				}, nil
			})
		},
	}

	cmd.Flags().String("train-path", "", "training split")
	cmd.Flags().String("vectorizer-out", "", "where to save the vectorizer")
	cmd.Flags().String("model-out", "", "where to save the classifier")
	cmd.Flags().String("model-type", string(naivebayes.Multinomial), "multinomial or complement")
	cmd.Flags().Float64("alpha", naivebayes.DefaultAlpha, "additive smoothing")
	cmd.Flags().Int("min-df", 2, "ignore terms found in fewer documents")
	cmd.Flags().Float64("max-df", 1.0, "ignore terms found in more than this fraction of documents")
	cmd.Flags().Int("min-ngram", 1, "smallest n-gram length")
	cmd.Flags().Int("max-ngram", 2, "largest n-gram length")
	cmd.Flags().String("analyzer", "word", "word, char or char_wb")
	cmd.Flags().Int("max-features", 0, "keep only the most frequent terms (0 = all)")
	cmd.Flags().Bool("sublinear-tf", false, "use 1 + log(tf)")
	bindFlag(cmd, "train-path", "train.train_path")
	bindFlag(cmd, "vectorizer-out", "train.vectorizer_out")
	bindFlag(cmd, "model-out", "train.model_out")
	bindFlag(cmd, "model-type", "train.model_type")
	bindFlag(cmd, "alpha", "train.alpha")
	bindFlag(cmd, "min-df", "train.min_df")
	bindFlag(cmd, "max-df", "train.max_df")
	bindFlag(cmd, "min-ngram", "train.ngram_min")
	bindFlag(cmd, "max-ngram", "train.ngram_max")
	bindFlag(cmd, "analyzer", "train.analyzer")
	bindFlag(cmd, "max-features", "train.max_features")
	bindFlag(cmd, "sublinear-tf", "train.sublinear_tf")

	return cmd
}

func evaluateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score the trained classifier on the test split",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := a.cfg.Evaluate
			return a.runStage(cmd, "evaluate", c.DataPath, c.OutputXLSX, func(ctx context.Context) (*outcome, error) {
				res, err := evaluate.Run(ctx, evaluate.Options{
					Data:          c.DataPath,
					Vectorizer:    c.Vectorizer,
					Model:         c.Model,
					ConfusionXLSX: c.OutputXLSX,
					Store:         a.store(),
					Metrics:       a.pipeline(),
				})
				if err != nil {
					return nil, err
				}

				support := make(map[string]int, len(res.PerClass))
				for _, pc := range res.PerClass {
					support[pc.Label] = pc.Support
				}
				return &outcome{
					rows:       res.Samples,
					categories: support,
					values: map[string]float64{
						"accuracy":    res.Accuracy,
						"macro_f1":    res.MacroF1,
						"weighted_f1": res.WeightedF1,
					},
					result: res,
					text:   report.FormatEvaluation(res),
				}, nil
			})
		},
	}

	cmd.Flags().String("data-path", "", "labeled test split")
	cmd.Flags().String("vectorizer", "", "saved vectorizer")
	cmd.Flags().String("model", "", "saved classifier")
	cmd.Flags().String("output-xlsx", "", "write the confusion matrix workbook here")
	bindFlag(cmd, "data-path", "evaluate.data_path")
	bindFlag(cmd, "vectorizer", "evaluate.vectorizer")
	bindFlag(cmd, "model", "evaluate.model")
	bindFlag(cmd, "output-xlsx", "evaluate.output_xlsx")

	return cmd
}

func predictCmd(a *app) *cobra.Command {
	var text string

	cmd := &cobra.Command{
		Use:   "predict [TEXT]",
		Short: "Classify one complaint with the saved artifacts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if text == "" && len(args) == 1 {
				text = args[0]
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("predict: %w (use --text)", evaluate.ErrEmptyText)
			}

			c := a.cfg.Evaluate
			p, err := evaluate.Predict(cmd.Context(), a.store(), text, c.Vectorizer, c.Model)
			if err != nil {
				return fmt.Errorf("predict: %w", err)
			}
			return a.print(cmd.OutOrStdout(), p, report.FormatPrediction(p))
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "complaint text to classify")
	cmd.Flags().String("vectorizer", "", "saved vectorizer")
	cmd.Flags().String("model", "", "saved classifier")
	bindFlag(cmd, "vectorizer", "evaluate.vectorizer")
	bindFlag(cmd, "model", "evaluate.model")

	return cmd
}
