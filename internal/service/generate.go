package service

import (
	"context"
	"io"

	"go.uber.org/zap"
)

// Generator runs gateway calls through the job queue and bills them
type Generator struct {
	Gateway Gateway
	Queue   *JobQueue
}

func NewGenerator(g Gateway, q *JobQueue) *Generator {
	return &Generator{Gateway: g, Queue: q}
}

// Image turns a sketch into a generated image for one coin
func (g *Generator) Image(ctx context.Context, l Ledger, userID, filename string, sketch io.Reader) (*ImageResult, int, error) {
	var out *ImageResult

	coins, err := Charge(ctx, l, func(ctx context.Context) error {
		return g.Queue.Do(ctx, userID, func(ctx context.Context) error {
			res, err := g.Gateway.GenerateImage(ctx, filename, sketch)
			if err != nil {
				return err
			}

			out = res
			return nil
		})
	})
	// A job abandoned by a cancelled caller may still be running, so out is
	// only read once the job itself reported success
	if err != nil {
		return nil, coins, err
	}

	return out, coins, nil
}

// Model turns a generated image into a 3D model for one coin
func (g *Generator) Model(ctx context.Context, l Ledger, userID, filename string, image io.Reader) (*ModelResult, int, error) {
	var out *ModelResult

	coins, err := Charge(ctx, l, func(ctx context.Context) error {
		return g.Queue.Do(ctx, userID, func(ctx context.Context) error {
			res, err := g.Gateway.GenerateModel(ctx, filename, image)
			if err != nil {
				return err
			}

			out = res
			return nil
		})
	})
	if err != nil {
		return nil, coins, err
	}

	return out, coins, nil
}

// Charge takes one coin from l and then runs fn. If fn fails the coin is
// given back, so a failed action never costs anything. The returned balance
// is the one after the whole operation
func Charge(ctx context.Context, l Ledger, fn func(ctx context.Context) error) (int, error) {
	coins, err := l.Consume(ctx)
	if err != nil {
		return 0, err
	}

	if err := fn(ctx); err != nil {
		// The request context may already be cancelled
		refunded, rerr := l.Refund(context.WithoutCancel(ctx))
		if rerr != nil {
			zap.L().Error("Failed to refund coin after failed generation", zap.Error(rerr), zap.NamedError("cause", err))
			return coins, err
		}

		return refunded, err
	}

	return coins, nil
}
