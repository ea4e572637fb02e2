package main

import (
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/flexireact/flexi/internal/config"
	"github.com/flexireact/flexi/pkg/assets"
)

func deployCmd() *cobra.Command {
	var (
		bucket  string
		prefix  string
		region  string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Publish built assets to S3",
		Long: `Publish the built asset directory to an S3 bucket for CDN serving.

Credentials come from the standard AWS environment (env vars, shared
config, instance roles). Run "flexi build" first so the manifest and
fingerprinted files exist.

Examples:
  flexi deploy --bucket my-site-assets
  flexi deploy --bucket my-site-assets --prefix assets/ --region eu-west-1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if bucket == "" {
				return fmt.Errorf("--bucket is required")
			}

			logger := newLogger(verbose)
			cfg, err := config.Load("", logger)
			if err != nil {
				return err
			}

			var opts []func(*awsconfig.LoadOptions) error
			if region != "" {
				opts = append(opts, awsconfig.WithRegion(region))
			}
			awsCfg, err := awsconfig.LoadDefaultConfig(cmd.Context(), opts...)
			if err != nil {
				return fmt.Errorf("loading AWS config: %w", err)
			}

			publisher := assets.NewS3Publisher(s3.NewFromConfig(awsCfg), bucket, prefix)
			if err := publisher.Publish(cmd.Context(), cfg.Static.BuildDir); err != nil {
				return err
			}

			success("published %s to s3://%s/%s", cfg.Static.BuildDir, bucket, prefix)
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "Target S3 bucket (required)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Key prefix inside the bucket")
	cmd.Flags().StringVar(&region, "region", "", "AWS region override")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}
