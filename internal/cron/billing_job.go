package cron

import (
	"context"
	"fmt"

	"github.com/farmcrate/farmcrate-backend/internal/billing"
	"github.com/farmcrate/farmcrate-backend/pkg/logger"
)

type seasonRunner interface {
	RunCurrentSeason(ctx context.Context) (*billing.RunResult, error)
}

// SeasonalBillingJobParams configures the scheduled hosting-fee run.
type SeasonalBillingJobParams struct {
	Logger  *logger.Logger
	Billing seasonRunner
}

type seasonalBillingJob struct {
	logg    *logger.Logger
	billing seasonRunner
}

// NewSeasonalBillingJob wraps the billing service as a scheduled job.
func NewSeasonalBillingJob(params SeasonalBillingJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Billing == nil {
		return nil, fmt.Errorf("billing service required")
	}
	return &seasonalBillingJob{logg: params.Logger, billing: params.Billing}, nil
}

func (j *seasonalBillingJob) Name() string { return "seasonal-billing" }

func (j *seasonalBillingJob) Run(ctx context.Context) error {
	result, err := j.billing.RunCurrentSeason(ctx)
	if result != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"invoiced": result.Invoiced,
			"failed":   result.Failed,
		})
		j.logg.Info(logCtx, "seasonal billing job finished")
	}
	return err
}
