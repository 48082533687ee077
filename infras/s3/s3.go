package s3

//go:generate go run go.uber.org/mock/mockgen -source=./s3.go -destination=./mocks/s3_mock.go -package=mocks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"roost/config"
	"roost/infras/otel"
	"roost/shared/constant"
)

const (
	receiptsDirectory = "receipts"

	otelAttrObjectKey = "object_key"
	otelAttrBucket    = "bucket"
)

// ReceiptStore archives settlement receipts as immutable JSON objects.
type ReceiptStore interface {
	ArchiveReceipt(ctx context.Context, objectName string, receipt any) (url string, err error)
}

type receiptStoreImpl struct {
	Client *s3.Client
	Config *config.Config
	otel   otel.Otel
}

func (svc *receiptStoreImpl) ArchiveReceipt(ctx context.Context, objectName string, receipt any) (url string, err error) {
	ctx, scope := svc.otel.NewScope(ctx, constant.OtelS3ScopeName, constant.OtelS3ScopeName+".ArchiveReceipt")
	defer scope.End()
	defer scope.TraceIfError(err)

	bucketName := svc.Config.Receipts.Bucket
	objectKey := path.Join(receiptsDirectory, objectName)

	scope.SetAttributes(map[string]any{
		otelAttrObjectKey: objectKey,
		otelAttrBucket:    bucketName,
	})

	payload, err := json.Marshal(receipt)
	if err != nil {
		return constant.Empty, fmt.Errorf("failed to marshal receipt: %w", err)
	}

	fileReader := bytes.NewReader(payload)

	_, err = svc.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucketName),
		Key:           aws.String(objectKey),
		Body:          fileReader,
		ContentType:   aws.String(constant.ContentTypeJSON),
		ContentLength: aws.Int64(fileReader.Size()),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to archive receipt to S3")

		return constant.Empty, fmt.Errorf("failed to archive receipt to S3: %w", err)
	}

	return fmt.Sprintf("s3://%s/%s", bucketName, objectKey), nil
}

func New(config *config.Config, otel otel.Otel) ReceiptStore {
	staticProvider := credentials.NewStaticCredentialsProvider(
		config.Receipts.Key,
		config.Receipts.Secret,
		"",
	)

	cfg, err := awsConfig.LoadDefaultConfig(
		context.TODO(),
		awsConfig.WithCredentialsProvider(staticProvider),
		awsConfig.WithRegion(config.Receipts.Region),
	)

	if err != nil {
		log.Err(err).Msg("Error loading AWS configuration")
	}

	s3Client := s3.NewFromConfig(cfg)

	return &receiptStoreImpl{
		Client: s3Client,
		Config: config,
		otel:   otel,
	}
}
