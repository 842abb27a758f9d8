package main

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"sp-export/handlers"
	"sp-export/logger"
)

func newLambdaCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Serve invocations from the AWS Lambda runtime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLambda(cmd, opts)
		},
	}
}

func runLambda(cmd *cobra.Command, opts *rootOptions) error {
	rt, err := loadRuntime(cmd, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.log.Info("starting lambda handler", logger.Ctx{
		"storage": string(rt.cfg.Storage.Type),
		"bucket":  rt.cfg.Storage.Bucket,
	})
	lambda.Start(handlers.LambdaHandler(rt.exportService(cmd.Context())))
	return nil
}
