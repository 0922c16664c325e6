package training

import (
	"github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/train/losses"
)

// binaryCrossentropyLoss returns the sigmoid cross-entropy loss function
// fed to the trainer. With posWeight == 1 it is the framework's own
// implementation; otherwise positive samples are scaled by posWeight to
// counter class imbalance. The returned per-sample losses are reduced by
// the trainer.
func binaryCrossentropyLoss(posWeight float64) func(labels, predictions []*graph.Node) *graph.Node {
	if posWeight == 1 {
		return losses.BinaryCrossentropyLogits
	}
	return func(labels, predictions []*graph.Node) *graph.Node {
		logits := predictions[0]
		targets := graph.ConvertDType(labels[0], logits.DType())

		// bce(x, z) = z*softplus(-x) + (1-z)*softplus(x)
		bce := graph.Add(
			graph.Mul(targets, softplus(graph.Neg(logits))),
			graph.Mul(graph.OneMinus(targets), softplus(logits)),
		)
		weight := graph.OnePlus(graph.MulScalar(targets, posWeight-1))
		return graph.Mul(weight, bce)
	}
}

// softplus(x) = log1p(exp(-|x|)) + max(x, 0), the overflow-safe form.
func softplus(x *graph.Node) *graph.Node {
	return graph.Add(
		graph.Log1P(graph.Exp(graph.Neg(graph.Abs(x)))),
		graph.Max(x, graph.ZerosLike(x)),
	)
}
