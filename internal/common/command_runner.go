package common

import (
	"context"
	"fmt"

	"wevolve/internal/errors"
)

// LoadInputFunc gathers the input of a command: a file, the stored profile, a query.
type LoadInputFunc[Input any] func(ctx context.Context) (Input, error)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// OperationFunc is the work of one command.
type OperationFunc[Input, Output any] func(context.Context, Input) (Output, error)

// RunCommand loads the input, runs the operation and writes its result in
// the configured format.
func RunCommand[Input, Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	loadInput LoadInputFunc[Input],
	operation OperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	outputHandler := NewOutputHandler(logger)

	// fail on a bad output path before calling the backend
	if err := outputHandler.fileProcessor.ValidateOutputFile(cmdConfig.OutputFile); err != nil {
		return err
	}

	input, err := loadInput(ctx)
	if err != nil {
		return err
	}

	if logDetails != nil {
		logDetails(input, cmdConfig)
	}

	result, err := operation(ctx, input)
	if err != nil {
		return err
	}

	if err := outputHandler.HandleOutput(result, cmdConfig); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
