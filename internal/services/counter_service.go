package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sofia-padel/api/internal/repositories"
)

const (
	orderSequence   = "orders"
	invoiceSequence = "invoices"

	orderSequenceStart = 1
	orderSequenceWidth = 7

	invoiceSequenceStart = 100000001
	invoiceSequenceWidth = 10
)

// ErrCounterInvalidInput indicates the caller supplied invalid counter parameters.
var ErrCounterInvalidInput = errors.New("counter: invalid input")

// CounterServiceDeps bundles collaborators required to construct a counter service instance.
type CounterServiceDeps struct {
	Repository repositories.CounterRepository
}

type counterService struct {
	repo repositories.CounterRepository
}

// NewCounterService constructs a service that allocates sequence numbers on top of the repository.
func NewCounterService(deps CounterServiceDeps) (CounterService, error) {
	if deps.Repository == nil {
		return nil, errors.New("counter service: repository is required")
	}

	return &counterService{repo: deps.Repository}, nil
}

// Next allocates the next value of the named sequence and renders it as a
// zero-padded decimal string. The first allocation of an unknown sequence
// returns start; a failed transaction consumes no value.
func (s *counterService) Next(ctx context.Context, sequence string, start int64, width int) (CounterValue, error) {
	sequence = strings.TrimSpace(sequence)
	if sequence == "" {
		return CounterValue{}, fmt.Errorf("%w: sequence is required", ErrCounterInvalidInput)
	}
	if start < 0 {
		return CounterValue{}, fmt.Errorf("%w: start must not be negative", ErrCounterInvalidInput)
	}
	if width <= 0 {
		return CounterValue{}, fmt.Errorf("%w: width must be positive", ErrCounterInvalidInput)
	}

	value, err := s.repo.Next(ctx, sequence, start)
	if err != nil {
		var counterErr *repositories.CounterError
		if errors.As(err, &counterErr) && counterErr.Code == repositories.CounterErrorInvalidInput {
			return CounterValue{}, fmt.Errorf("%w: %s", ErrCounterInvalidInput, counterErr.Message)
		}
		return CounterValue{}, err
	}

	return CounterValue{
		Value:     value,
		Formatted: fmt.Sprintf("%0*d", width, value),
	}, nil
}

func (s *counterService) NextOrderNumber(ctx context.Context) (string, error) {
	result, err := s.Next(ctx, orderSequence, orderSequenceStart, orderSequenceWidth)
	if err != nil {
		return "", err
	}
	return result.Formatted, nil
}

func (s *counterService) NextInvoiceNumber(ctx context.Context) (string, error) {
	result, err := s.Next(ctx, invoiceSequence, invoiceSequenceStart, invoiceSequenceWidth)
	if err != nil {
		return "", err
	}
	return result.Formatted, nil
}
