package cli

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"github.com/vvka-141/parquet2pg/internal/handler"
	"github.com/vvka-141/parquet2pg/internal/logging"
	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Serve AWS Lambda invocations",
	Long: `Lambda starts the AWS Lambda runtime loop. Each invocation event has the shape
  {"bucket": "snapshots", "prefix": "exports/"}
where absent fields fall back to SOURCE_S3_BUCKET and SOURCE_S3_PREFIX.

Configuration is read once at cold start from the environment and parquet2pg.yaml.
A failed run is returned to the runtime as an invocation error.`,
	Args: cobra.NoArgs,
	RunE: runLambda,
}

var lambdaFlags runFlagValues

func init() {
	rootCmd.AddCommand(lambdaCmd)

	addConnectionFlags(lambdaCmd, &lambdaFlags.conn)
	addTimeoutFlag(lambdaCmd, &lambdaFlags.timeout)
}

func runLambda(cmd *cobra.Command, _ []string) error {
	verbose := getVerboseFlag(cmd)

	settings, err := buildRunSettings(cmd, &lambdaFlags, verbose)
	if err != nil {
		return err
	}

	logger := logging.NewConsoleLogger(verbose)
	h, err := newHandler(context.Background(), settings, logger)
	if err != nil {
		return err
	}

	lambda.Start(invocationHandler(h, settings, logger))
	return nil
}

// invocationHandler bounds each invocation by the configured timeout. The
// Lambda deadline in ctx still applies when it is shorter.
func invocationHandler(h *handler.Handler, settings *runSettings, logger parquet2pg.Logger) func(context.Context, handler.Request) (*handler.Response, error) {
	return func(ctx context.Context, req handler.Request) (*handler.Response, error) {
		ctx, cancel := context.WithTimeout(ctx, settings.timeout)
		defer cancel()

		resp, err := h.Handle(ctx, req)
		if err != nil {
			logger.Error("Invocation failed: %v", err)
			return nil, err
		}
		return resp, nil
	}
}
