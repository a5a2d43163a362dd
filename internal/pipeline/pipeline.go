package pipeline

import (
	"context"

	commissiondomain "github.com/neturelabs/affiliate/internal/commission/domain"
	conversiondomain "github.com/neturelabs/affiliate/internal/conversion/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Result is one processed order line: the attributed conversion and the
// commission applied to it. Commission is present even in safe mode, as a
// zero-amount record.
type Result struct {
	Conversion *conversiondomain.ConversionEvent `json:"conversion"`
	Commission *commissiondomain.Commission      `json:"commission"`
}

type Service interface {
	ProcessOrderLine(ctx context.Context, req conversiondomain.CreateConversionRequest) (*Result, error)
}

type ServiceParam struct {
	fx.In

	Log         *zap.Logger
	Conversions conversiondomain.Service
	Commissions commissiondomain.Service
}

type service struct {
	log         *zap.Logger
	conversions conversiondomain.Service
	commissions commissiondomain.Service
}

func NewService(p ServiceParam) Service {
	return &service{
		log:         p.Log.Named("pipeline"),
		conversions: p.Conversions,
		commissions: p.Commissions,
	}
}

// ProcessOrderLine runs attribution and commission for one order line in
// sequence. Attribution failures (no attributable click, validation) abort
// the line; policy resolution and calculation never do.
func (s *service) ProcessOrderLine(ctx context.Context, req conversiondomain.CreateConversionRequest) (*Result, error) {
	conversion, err := s.conversions.CreateConversion(ctx, req)
	if err != nil {
		return nil, err
	}

	commission, err := s.commissions.ProcessConversion(ctx, conversion.ID)
	if err != nil {
		return nil, err
	}

	s.log.Info("order line processed",
		zap.String("conversion_id", conversion.ID.String()),
		zap.String("commission_id", commission.ID.String()),
		zap.Float64("commission_amount", commission.Amount),
	)

	return &Result{Conversion: conversion, Commission: commission}, nil
}

var Module = fx.Module("pipeline",
	fx.Provide(NewService),
)
