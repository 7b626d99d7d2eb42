package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/local/assistcore/internal/knowledge"
	"github.com/local/assistcore/internal/storage"
)

// uploader is the storage side of `knowledge push`.
type uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

var (
	pushBucket string
	pushKey    string

	knowledgeCmd = &cobra.Command{
		Use:   "knowledge",
		Short: "Manage the knowledge-base bundle",
	}

	knowledgePushCmd = &cobra.Command{
		Use:   "push FILE",
		Short: "Validate a YAML bundle and upload it to S3 (sealed when KNOWLEDGE_S3_PASSPHRASE is set)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket := firstNonEmpty(pushBucket, cfg.Knowledge.S3Bucket)
			if bucket == "" {
				return errors.New("no bucket: pass --bucket or set KNOWLEDGE_S3_BUCKET")
			}
			s3c, err := storage.NewS3Client(cmd.Context(), bucket, cfg.Knowledge.S3Passphrase)
			if err != nil {
				return err
			}
			key := firstNonEmpty(pushKey, cfg.Knowledge.S3Key)
			n, err := pushKnowledge(cmd.Context(), s3c, args[0], key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d entries to s3://%s/%s\n", n, bucket, key)
			return nil
		},
	}
)

func init() {
	knowledgePushCmd.Flags().StringVar(&pushBucket, "bucket", "", "target bucket (default KNOWLEDGE_S3_BUCKET)")
	knowledgePushCmd.Flags().StringVar(&pushKey, "key", "", "object key (default KNOWLEDGE_S3_KEY)")
	knowledgeCmd.AddCommand(knowledgePushCmd)
}

// pushKnowledge refuses to upload a bundle the service could not load.
func pushKnowledge(ctx context.Context, up uploader, path, key string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	kb, err := knowledge.Parse(data)
	if err != nil {
		return 0, fmt.Errorf("invalid bundle %s: %w", path, err)
	}
	if err := up.Upload(ctx, key, data, "application/yaml"); err != nil {
		return 0, err
	}
	return kb.Len(), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
