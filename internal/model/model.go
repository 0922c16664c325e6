package model

import (
	"fmt"

	"github.com/gomlx/gomlx/models/inceptionv3"
	"github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/layers"
	"github.com/gomlx/gomlx/ml/layers/activations"
)

// Kind selects the classifier backbone.
type Kind string

const (
	// KindInception uses the pretrained InceptionV3 backbone with a fresh
	// binary head.
	KindInception Kind = "inception"
	// KindSmallCNN trains a compact convolutional stack from scratch.
	// It needs no weights download, which also makes it the test model.
	KindSmallCNN Kind = "smallcnn"
)

// Config describes how to build the classifier graph.
type Config struct {
	Kind Kind
	// FreezeBackbone stops gradients into the pretrained backbone so only
	// the binary head trains.
	FreezeBackbone bool
	// WeightsDir is where pretrained backbone weights are cached.
	WeightsDir string
}

// PrepareWeights downloads and unpacks pretrained backbone weights when the
// configured kind needs them. Safe to call repeatedly; the download is
// cached under cfg.WeightsDir.
func PrepareWeights(cfg Config) error {
	if cfg.Kind != KindInception {
		return nil
	}
	if err := inceptionv3.DownloadAndUnpackWeights(cfg.WeightsDir); err != nil {
		return fmt.Errorf("download backbone weights: %w", err)
	}
	return nil
}

// Logit builds the classifier over a batch of normalized single-channel
// images shaped (batch, height, width, 1) and returns one pre-sigmoid
// logit per image, shaped (batch, 1).
func Logit(ctx *context.Context, cfg Config, images *graph.Node) *graph.Node {
	switch cfg.Kind {
	case KindInception:
		return inceptionLogit(ctx, cfg, images)
	default:
		return smallCNNLogit(ctx, images)
	}
}

// Graph adapts Logit to the model-function shape the GoMLX trainer expects.
func Graph(cfg Config) func(ctx *context.Context, spec any, inputs []*graph.Node) []*graph.Node {
	return func(ctx *context.Context, spec any, inputs []*graph.Node) []*graph.Node {
		_ = spec
		return []*graph.Node{Logit(ctx, cfg, inputs[0])}
	}
}

// inceptionLogit adapts the general-purpose backbone to this task: the
// single X-ray channel is replicated to the three channels the pretrained
// stem was trained on, and the thousand-class top is replaced by a single
// binary logit.
func inceptionLogit(ctx *context.Context, cfg Config, images *graph.Node) *graph.Node {
	rgb := graph.Concatenate([]*graph.Node{images, images, images}, -1)

	embedding := inceptionv3.BuildGraph(ctx.In("backbone"), rgb).
		PreTrained(cfg.WeightsDir).
		SetPooling(inceptionv3.MeanPooling).
		Trainable(!cfg.FreezeBackbone).
		Done()

	return layers.Dense(ctx.In("head"), embedding, true, 1)
}

// smallCNNLogit is a compact conv/pool stack ending in one logit.
func smallCNNLogit(ctx *context.Context, images *graph.Node) *graph.Node {
	x := layers.Convolution(ctx.In("conv1"), images).Filters(20).KernelSize(5).PadSame().Done()
	x = activations.Relu(x)
	x = graph.MaxPool(x).Window(2).Done()

	x = layers.Convolution(ctx.In("conv2"), x).Filters(40).KernelSize(3).PadSame().Done()
	x = activations.Relu(x)
	x = graph.MaxPool(x).Window(2).Done()

	dims := x.Shape().Dimensions
	flat := dims[1] * dims[2] * dims[3]
	x = graph.Reshape(x, dims[0], flat)

	x = layers.Dense(ctx.In("hidden"), x, true, 100)
	x = activations.Relu(x)
	return layers.Dense(ctx.In("output"), x, true, 1)
}
