package contract

import (
	"context"

	"datachat-be/internal/entity"
	"datachat-be/internal/repository/specification"
)

type TurnRepository interface {
	Create(ctx context.Context, turn *entity.EngineTurn) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.EngineTurn, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
