// Package realness implements GAN training with a discrete realness
// measure: instead of a single real/fake score, the discriminator outputs
// a probability distribution over a fixed set of realness outcomes, and
// both networks are trained by Kullback-Leibler divergence against
// constant anchor distributions built once per run.
//
// The package is organized around a small set of collaborators. A Config
// fixes the topology of both networks; NewGenerator and NewDiscriminator
// build them; NewTrainer ties a pair together with the anchors, the Adam
// optimizers, and an EMA snapshot of the generator. Training runs through
// Trainer.Train with data pulled from an ImageSource, or one batch at a
// time through Trainer.RunStep.
//
// Sub-packages hold the reusable parts: tensor is the dense row-major
// array type everything traffics in, layers the differentiable building
// blocks (including spectral normalization), initializers the weight
// initialization schemes, and optimizers the parameter update rules.
package realness
