package repository

import (
	"context"

	"ChochScan/internal/domain/models"
	"ChochScan/internal/domain/repository"
)

// NoopSignalPublisher satisfies SignalPublisher when the bus is disabled.
type NoopSignalPublisher struct{}

func NewNoopSignalPublisher() repository.SignalPublisher { return NoopSignalPublisher{} }

func (NoopSignalPublisher) Publish(context.Context, models.Signal) error        { return nil }
func (NoopSignalPublisher) PublishBatch(context.Context, []models.Signal) error { return nil }
func (NoopSignalPublisher) Close() error                                        { return nil }
