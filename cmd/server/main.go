package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Brownie44l1/catdog-api/internal/config"
	"github.com/Brownie44l1/catdog-api/internal/server"
)

const ErrExitCode = 1

func main() {
	if err := NewServerCmd().Execute(); err != nil {
		fmt.Println(err.Error())
		os.Exit(ErrExitCode)
	}
}

func NewServerCmd() *cobra.Command {
	options := config.DefaultOptions()
	configFile := ""
	cmd := &cobra.Command{
		Use:          "catdog-api",
		Short:        "classify uploaded images as cat or dog",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if configFile != "" {
				if err := applyConfigFile(cmd.Flags(), configFile, options); err != nil {
					return err
				}
			}

			ctx = logr.NewContext(ctx, server.NewLogger())
			return server.Run(ctx, options)
		},
	}

	bindFlags(cmd.Flags(), options, &configFile)
	return cmd
}

func bindFlags(flags *pflag.FlagSet, options *config.Options, configFile *string) {
	flags.StringVar(configFile, "config", *configFile, "yaml config file")
	flags.StringVar(&options.Listen, "listen", options.Listen, "listen address")
	flags.StringVar(&options.ModelDir, "model-dir", options.ModelDir, "directory holding <name>_model.onnx artifacts")
	flags.StringVar(&options.OnnxLib, "onnx-lib", options.OnnxLib, "onnxruntime shared library path (default $"+config.OnnxLibEnv+")")
	flags.IntVar(&options.Workers, "workers", options.Workers, "max concurrent inferences")
	flags.DurationVar(&options.InferenceTimeout, "inference-timeout", options.InferenceTimeout, "max wait plus run time per inference, 0 for none")
	flags.DurationVar(&options.ShutdownTimeout, "shutdown-timeout", options.ShutdownTimeout, "max time to drain in-flight requests on shutdown, 0 for none")
	flags.Int64Var(&options.MaxUploadSize, "max-upload-size", options.MaxUploadSize, "max request body size in bytes")
	flags.BoolVar(&options.KeepUploads, "keep-uploads", options.KeepUploads, "keep uploaded images after prediction")
	flags.StringVar(&options.Storage.Local.Basepath, "upload-dir", options.Storage.Local.Basepath, "upload directory")
	flags.StringVar(&options.Storage.S3.URL, "s3-url", options.Storage.S3.URL, "s3 url, enables s3 upload storage")
	flags.StringVar(&options.Storage.S3.Bucket, "s3-bucket", options.Storage.S3.Bucket, "s3 bucket")
	flags.StringVar(&options.Storage.S3.Region, "s3-region", options.Storage.S3.Region, "s3 region")
	flags.StringVar(&options.Storage.S3.AccessKey, "s3-access-key", options.Storage.S3.AccessKey, "s3 access key")
	flags.StringVar(&options.Storage.S3.SecretKey, "s3-secret-key", options.Storage.S3.SecretKey, "s3 secret key")
	flags.StringVar(&options.Storage.S3.Prefix, "s3-prefix", options.Storage.S3.Prefix, "s3 key prefix")
	flags.BoolVar(&options.Storage.S3.PathStyle, "s3-path-style", options.Storage.S3.PathStyle, "use path style s3 addressing")
}

// applyConfigFile loads path into options and then re-applies the flags that were set
// explicitly, so the command line wins over the file.
func applyConfigFile(flags *pflag.FlagSet, path string, options *config.Options) error {
	explicit := map[string]string{}
	flags.Visit(func(f *pflag.Flag) {
		explicit[f.Name] = f.Value.String()
	})
	if err := config.LoadFile(path, options); err != nil {
		return err
	}
	for name, value := range explicit {
		if err := flags.Set(name, value); err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
	}
	return options.Validate()
}
